package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	AppointmentStatusPending   = "pending"
	AppointmentStatusConfirmed = "confirmed"
	AppointmentStatusCancelled = "cancelled"
)

type Appointment struct {
	Base         `bson:",inline"`
	PatientName  string              `json:"patientName" bson:"patientName"`
	ParentName   string              `json:"parentName,omitempty" bson:"parentName,omitempty"`
	Phone        string              `json:"phone" bson:"phone"`
	Email        string              `json:"email,omitempty" bson:"email,omitempty"`
	DoctorID     *primitive.ObjectID `json:"doctorId,omitempty" bson:"doctorId,omitempty"`
	DoctorName   string              `json:"doctorName,omitempty" bson:"doctorName,omitempty"`
	Department   string              `json:"department,omitempty" bson:"department,omitempty"`
	Date         string              `json:"date" bson:"date"`
	Time         string              `json:"time" bson:"time"`
	Message      string              `json:"message,omitempty" bson:"message,omitempty"`
	Status       string              `json:"status" bson:"status"`
	CancelReason string              `json:"cancelReason,omitempty" bson:"cancelReason,omitempty"`
	ConfirmedAt  *time.Time          `json:"confirmedAt,omitempty" bson:"confirmedAt,omitempty"`
	CancelledAt  *time.Time          `json:"cancelledAt,omitempty" bson:"cancelledAt,omitempty"`
}

type CreateAppointmentRequest struct {
	PatientName string `json:"patientName" binding:"required,min=2,max=100"`
	ParentName  string `json:"parentName" binding:"omitempty,max=100"`
	Phone       string `json:"phone" binding:"required,min=7,max=30"`
	Email       string `json:"email" binding:"omitempty,email"`
	DoctorID    string `json:"doctorId" binding:"omitempty,objectid"`
	Department  string `json:"department" binding:"omitempty,max=100"`
	Date        string `json:"date" binding:"required,datetime=2006-01-02"`
	Time        string `json:"time" binding:"required,max=20"`
	Message     string `json:"message" binding:"omitempty,max=1000"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

type AppointmentFilter struct {
	ListParams
	Status string `form:"status" binding:"omitempty,oneof=pending confirmed cancelled"`
	Date   string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}
