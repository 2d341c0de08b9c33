package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Base contains common fields for all documents
type Base struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Touch assigns an id on first save and bumps the timestamps.
func (b *Base) Touch(now time.Time) {
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// Localized is a bilingual English/Amharic string.
type Localized struct {
	En string `json:"en" bson:"en" binding:"required,max=2000"`
	Am string `json:"am" bson:"am" binding:"max=2000"`
}

// OptionalLocalized is Localized without the English requirement, used for descriptions.
type OptionalLocalized struct {
	En string `json:"en" bson:"en" binding:"max=5000"`
	Am string `json:"am" bson:"am" binding:"max=5000"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListParams represents common pagination and search parameters
type ListParams struct {
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
	Search string `form:"search"`
}

// Normalize clamps page and limit to sane values.
func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
}

func (p ListParams) Skip() int64 {
	if p.Page < 1 {
		return 0
	}
	return int64((p.Page - 1) * p.Limit)
}
