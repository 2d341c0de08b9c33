package event

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFillsBegunContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	Begin(c, "Doctor")
	Record(c, Resource{ID: "abc", Name: "Dr. Abebe"})

	ec, ok := From(c)
	require.True(t, ok)
	assert.Equal(t, "Doctor", ec.Type)
	assert.Equal(t, "abc", ec.ID)
	assert.Equal(t, "Dr. Abebe", ec.Name)
	assert.True(t, ec.Recorded)
	assert.Empty(t, ec.Action)
}

func TestRecordActionOverridesType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	Begin(c, "User")
	RecordAction(c, "promote", Resource{Type: "Admin", ID: "1", Name: "Sara"})

	ec, _ := From(c)
	assert.Equal(t, "Admin", ec.Type)
	assert.Equal(t, "promote", ec.Action)
}

func TestRecordWithoutBegin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	Record(c, Resource{Type: "Video", ID: "v1", Name: "Vaccines"})
	ec, ok := From(c)
	require.True(t, ok)
	assert.Equal(t, "Video", ec.Type)
}
