package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ResultFile is one uploaded attachment of a Result.
type ResultFile struct {
	URL      string `json:"url" bson:"url"`
	PublicID string `json:"publicId" bson:"publicId"`
	FileName string `json:"fileName" bson:"fileName"`
	MimeType string `json:"mimeType" bson:"mimeType"`
	Size     int64  `json:"size" bson:"size"`
}

// Result is a lab or test result owned by a patient account.
type Result struct {
	Base        `bson:",inline"`
	PatientID   primitive.ObjectID `json:"patientId" bson:"patientId"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Files       []ResultFile       `json:"files" bson:"files"`
	UploadedBy  primitive.ObjectID `json:"uploadedBy" bson:"uploadedBy"`
	IsRead      bool               `json:"isRead" bson:"isRead"`
	ReadAt      *time.Time         `json:"readAt,omitempty" bson:"readAt,omitempty"`
	EmailSent   bool               `json:"emailSent" bson:"emailSent"`
	EmailSentAt *time.Time         `json:"emailSentAt,omitempty" bson:"emailSentAt,omitempty"`
}

// File returns the attachment with the given public id.
func (r *Result) File(publicID string) (*ResultFile, bool) {
	for i := range r.Files {
		if r.Files[i].PublicID == publicID {
			return &r.Files[i], true
		}
	}
	return nil, false
}

type CreateResultRequest struct {
	PatientID   string `form:"patientId" binding:"required,objectid"`
	Title       string `form:"title" binding:"required,max=200"`
	Description string `form:"description" binding:"omitempty,max=2000"`
}

type ResultFilter struct {
	ListParams
	PatientID string `form:"patientId" binding:"omitempty,objectid"`
}
