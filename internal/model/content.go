package model

import "time"

type Doctor struct {
	Base       `bson:",inline"`
	Name       Localized         `json:"name" bson:"name"`
	Field      Localized         `json:"field" bson:"field"`
	Experience OptionalLocalized `json:"experience" bson:"experience"`
	Bio        OptionalLocalized `json:"bio" bson:"bio"`
	PhotoURL   string            `json:"photoUrl,omitempty" bson:"photoUrl,omitempty"`
	PhotoID    string            `json:"photoId,omitempty" bson:"photoId,omitempty"`
}

type DoctorRequest struct {
	Name       Localized         `json:"name" binding:"required"`
	Field      Localized         `json:"field" binding:"required"`
	Experience OptionalLocalized `json:"experience"`
	Bio        OptionalLocalized `json:"bio"`
}

// Department is a clinic service line, listed on the public services page.
type Department struct {
	Base        `bson:",inline"`
	Name        Localized         `json:"name" bson:"name"`
	Description OptionalLocalized `json:"description" bson:"description"`
	Icon        string            `json:"icon,omitempty" bson:"icon,omitempty"`
	Order       int               `json:"order" bson:"order"`
}

type DepartmentRequest struct {
	Name        Localized         `json:"name" binding:"required"`
	Description OptionalLocalized `json:"description"`
	Icon        string            `json:"icon" binding:"omitempty,max=100"`
	Order       int               `json:"order" binding:"min=0"`
}

type Video struct {
	Base         `bson:",inline"`
	Title        Localized         `json:"title" bson:"title"`
	Description  OptionalLocalized `json:"description" bson:"description"`
	YouTubeURL   string            `json:"youtubeUrl" bson:"youtubeUrl"`
	ThumbnailURL string            `json:"thumbnailUrl,omitempty" bson:"thumbnailUrl,omitempty"`
	Category     string            `json:"category,omitempty" bson:"category,omitempty"`
}

type VideoRequest struct {
	Title             Localized         `json:"title" binding:"required"`
	Description       OptionalLocalized `json:"description"`
	YouTubeURL        string            `json:"youtubeUrl" binding:"required,url"`
	ThumbnailURL      string            `json:"thumbnailUrl" binding:"omitempty,url"`
	Category          string            `json:"category" binding:"omitempty,max=50"`
	NotifySubscribers bool              `json:"notifySubscribers"`
}

type VideoFilter struct {
	ListParams
	Category string `form:"category"`
}

const (
	TestimonialStatusPending  = "pending"
	TestimonialStatusApproved = "approved"
	TestimonialStatusRejected = "rejected"
)

type Testimonial struct {
	Base      `bson:",inline"`
	Name      string `json:"name" bson:"name"`
	Message   string `json:"message" bson:"message"`
	Rating    int    `json:"rating,omitempty" bson:"rating,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	ImageID   string `json:"imageId,omitempty" bson:"imageId,omitempty"`
	Status    string `json:"status" bson:"status"`
	IPAddress string `json:"-" bson:"ipAddress,omitempty"`
}

type CreateTestimonialRequest struct {
	Name    string `json:"name" form:"name" binding:"required,min=2,max=100"`
	Message string `json:"message" form:"message" binding:"required,min=5,max=1000"`
	Rating  int    `json:"rating" form:"rating" binding:"omitempty,min=1,max=5"`
}

type TestimonialStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending approved rejected"`
}

type TestimonialFilter struct {
	ListParams
	Status string `form:"status" binding:"omitempty,oneof=pending approved rejected"`
}

type Subscriber struct {
	Base           `bson:",inline"`
	Email          string     `json:"email" bson:"email"`
	Active         bool       `json:"active" bson:"active"`
	UnsubscribedAt *time.Time `json:"unsubscribedAt,omitempty" bson:"unsubscribedAt,omitempty"`
}

type SubscribeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type NewsletterRequest struct {
	Subject string `json:"subject" binding:"required,max=200"`
	Message string `json:"message" binding:"required,max=20000"`
}

type SubscriberFilter struct {
	ListParams
	Active *bool `form:"active"`
}
