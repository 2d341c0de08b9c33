package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
)

func TestContainsFoldEscapesRegex(t *testing.T) {
	rx := containsFold("  a.b+(c) ")
	assert.Equal(t, `a\.b\+\(c\)`, rx.Pattern)
	assert.Equal(t, "i", rx.Options)
}

func TestUserQuery(t *testing.T) {
	q := userQuery(model.UserFilter{Role: model.RoleUser, ListParams: model.ListParams{Search: "abebe"}})
	assert.Equal(t, model.RoleUser, q["role"])

	or, ok := q["$or"].(bson.A)
	require.True(t, ok)
	assert.Len(t, or, 3)

	assert.Empty(t, userQuery(model.UserFilter{}))
}

func TestAuditQuery(t *testing.T) {
	admin := primitive.NewObjectID()
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	q, err := auditQuery(model.AuditFilter{
		AdminID:      admin.Hex(),
		Action:       model.AuditActionDelete,
		ResourceType: "doctor",
		From:         &from,
		To:           &to,
	})
	require.NoError(t, err)

	assert.Equal(t, admin, q["adminId"])
	assert.Equal(t, model.AuditActionDelete, q["action"])
	assert.Equal(t, "doctor", q["resourceType"])

	created := q["createdAt"].(bson.M)
	assert.Equal(t, from, created["$gte"])
	assert.Equal(t, to.AddDate(0, 0, 1), created["$lt"])
}

func TestAuditQueryBadAdminID(t *testing.T) {
	_, err := auditQuery(model.AuditFilter{AdminID: "nope"})
	assert.Error(t, err)
}

func TestResultQuery(t *testing.T) {
	patient := primitive.NewObjectID()
	q, err := resultQuery(model.ResultFilter{PatientID: patient.Hex()})
	require.NoError(t, err)
	assert.Equal(t, patient, q["patientId"])
}

func TestAppointmentQuery(t *testing.T) {
	q := appointmentQuery(model.AppointmentFilter{Status: model.AppointmentStatusPending, Date: "2024-05-01"})
	assert.Equal(t, model.AppointmentStatusPending, q["status"])
	assert.Equal(t, "2024-05-01", q["date"])
	assert.NotContains(t, q, "$or")
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "mom@example.com", normalizeEmail("  Mom@Example.COM "))
}
