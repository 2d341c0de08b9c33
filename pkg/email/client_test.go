package email

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendDisabled(t *testing.T) {
	c := NewClient(Config{Enabled: false})
	err := c.Send(context.Background(), Welcome("a@b.c", "Abebe"))
	assert.ErrorAs(t, err, &ErrDisabled{})
}

func TestBuildMessageValidation(t *testing.T) {
	tests := []struct {
		name string
		from string
		msg  Message
	}{
		{"missing from", "", Message{To: []string{"a@b.c"}, Subject: "s", TextBody: "t"}},
		{"no recipients", "x@y.z", Message{To: []string{" "}, Subject: "s", TextBody: "t"}},
		{"no subject", "x@y.z", Message{To: []string{"a@b.c"}, TextBody: "t"}},
		{"no body", "x@y.z", Message{To: []string{"a@b.c"}, Subject: "s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildMessage(tt.from, tt.msg)
			var invalid ErrInvalidMessage
			assert.ErrorAs(t, err, &invalid)
		})
	}
}

func TestTemplates(t *testing.T) {
	m := PasswordResetOTP("a@b.c", "Abebe", "042917", 10*time.Minute)
	assert.Equal(t, []string{"a@b.c"}, m.To)
	assert.Contains(t, m.TextBody, "042917")
	assert.Contains(t, m.HTMLBody, "10 minutes")

	n := Newsletter("News", "first\n\nsecond <b>", "https://clinic.et/unsubscribe", []string{"x@y.z", "q@r.s"})
	assert.Empty(t, n.To)
	assert.Len(t, n.BCC, 2)
	assert.Contains(t, n.HTMLBody, "second &lt;b&gt;")

	_, err := buildMessage("no-reply@clinic.et", n)
	require.NoError(t, err)
}
