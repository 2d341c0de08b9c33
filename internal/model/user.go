package model

import (
	"time"
)

// Roles
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Permission flag names, as they appear in JSON and in RequirePermission.
const (
	PermDoctorManagement      = "doctorManagement"
	PermAppointmentManagement = "appointmentManagement"
	PermServiceManagement     = "serviceManagement"
	PermTestimonialManagement = "testimonialManagement"
	PermVideoManagement       = "videoManagement"
	PermSubscriberManagement  = "subscriberManagement"
	PermResultManagement      = "resultManagement"
	PermUserManagement        = "userManagement"
	PermAuditLogView          = "auditLogView"
)

// Permissions is the flat capability set on an admin account.
type Permissions struct {
	DoctorManagement      bool `json:"doctorManagement" bson:"doctorManagement"`
	AppointmentManagement bool `json:"appointmentManagement" bson:"appointmentManagement"`
	ServiceManagement     bool `json:"serviceManagement" bson:"serviceManagement"`
	TestimonialManagement bool `json:"testimonialManagement" bson:"testimonialManagement"`
	VideoManagement       bool `json:"videoManagement" bson:"videoManagement"`
	SubscriberManagement  bool `json:"subscriberManagement" bson:"subscriberManagement"`
	ResultManagement      bool `json:"resultManagement" bson:"resultManagement"`
	UserManagement        bool `json:"userManagement" bson:"userManagement"`
	AuditLogView          bool `json:"auditLogView" bson:"auditLogView"`
}

// Has reports whether the named flag is set. Unknown names are never granted.
func (p Permissions) Has(name string) bool {
	switch name {
	case PermDoctorManagement:
		return p.DoctorManagement
	case PermAppointmentManagement:
		return p.AppointmentManagement
	case PermServiceManagement:
		return p.ServiceManagement
	case PermTestimonialManagement:
		return p.TestimonialManagement
	case PermVideoManagement:
		return p.VideoManagement
	case PermSubscriberManagement:
		return p.SubscriberManagement
	case PermResultManagement:
		return p.ResultManagement
	case PermUserManagement:
		return p.UserManagement
	case PermAuditLogView:
		return p.AuditLogView
	}
	return false
}

func AllPermissions() Permissions {
	return Permissions{
		DoctorManagement:      true,
		AppointmentManagement: true,
		ServiceManagement:     true,
		TestimonialManagement: true,
		VideoManagement:       true,
		SubscriberManagement:  true,
		ResultManagement:      true,
		UserManagement:        true,
		AuditLogView:          true,
	}
}

// User represents a patient or staff account
type User struct {
	Base        `bson:",inline"`
	Name        string      `json:"name" bson:"name"`
	Email       string      `json:"email" bson:"email"`
	Phone       string      `json:"phone,omitempty" bson:"phone,omitempty"`
	Role        string      `json:"role" bson:"role"`
	Permissions Permissions `json:"permissions" bson:"permissions"`
	LastLoginAt *time.Time  `json:"lastLoginAt,omitempty" bson:"lastLoginAt,omitempty"`

	PasswordHash     string     `json:"-" bson:"password"`
	RefreshToken     string     `json:"-" bson:"refreshToken"`
	ResetOTPHash     string     `json:"-" bson:"resetOtp,omitempty"`
	ResetOTPExpiry   *time.Time `json:"-" bson:"resetOtpExpiry,omitempty"`
	ResetOTPVerified bool       `json:"-" bson:"resetOtpVerified"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

// Can reports whether the user holds a permission. super_admin holds all of them.
func (u *User) Can(permission string) bool {
	switch u.Role {
	case RoleSuperAdmin:
		return true
	case RoleAdmin:
		return u.Permissions.Has(permission)
	}
	return false
}

type CreateUserRequest struct {
	Name        string       `json:"name" binding:"required,min=2,max=100"`
	Email       string       `json:"email" binding:"required,email"`
	Password    string       `json:"password" binding:"required,min=8,max=72"`
	Phone       string       `json:"phone" binding:"omitempty,max=30"`
	Role        string       `json:"role" binding:"omitempty,oneof=user admin super_admin"`
	Permissions *Permissions `json:"permissions"`
}

type UpdateUserRequest struct {
	Name        *string      `json:"name" binding:"omitempty,min=2,max=100"`
	Phone       *string      `json:"phone" binding:"omitempty,max=30"`
	Role        *string      `json:"role" binding:"omitempty,oneof=user admin super_admin"`
	Permissions *Permissions `json:"permissions"`
}

type UserFilter struct {
	ListParams
	Role string `form:"role"`
}
