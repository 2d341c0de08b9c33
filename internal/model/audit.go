package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	AuditActionCreate = "create"
	AuditActionUpdate = "update"
	AuditActionDelete = "delete"
)

type AuditLog struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	AdminID      primitive.ObjectID `json:"adminId" bson:"adminId"`
	AdminName    string             `json:"adminName" bson:"adminName"`
	AdminEmail   string             `json:"adminEmail" bson:"adminEmail"`
	Action       string             `json:"action" bson:"action"`
	ResourceType string             `json:"resourceType" bson:"resourceType"`
	ResourceID   string             `json:"resourceId,omitempty" bson:"resourceId,omitempty"`
	ResourceName string             `json:"resourceName,omitempty" bson:"resourceName,omitempty"`
	Description  string             `json:"description" bson:"description"`
	Method       string             `json:"method" bson:"method"`
	Path         string             `json:"path" bson:"path"`
	StatusCode   int                `json:"statusCode" bson:"statusCode"`
	IPAddress    string             `json:"ipAddress" bson:"ipAddress"`
	UserAgent    string             `json:"userAgent" bson:"userAgent"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
}

type AuditFilter struct {
	ListParams
	AdminID      string     `form:"adminId" binding:"omitempty,objectid"`
	Action       string     `form:"action"`
	ResourceType string     `form:"resourceType"`
	From         *time.Time `form:"from" time_format:"2006-01-02"`
	To           *time.Time `form:"to" time_format:"2006-01-02"`
}

type AuditStats struct {
	Total          int64            `json:"total"`
	ByAction       map[string]int64 `json:"byAction"`
	ByResourceType map[string]int64 `json:"byResourceType"`
}
