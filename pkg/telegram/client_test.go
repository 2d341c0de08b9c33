package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Enabled: true, BotToken: "TOKEN", ChatID: "-100", BaseURL: srv.URL})
	require.NoError(t, c.SendMessage(context.Background(), "<b>New appointment</b>"))
	assert.Equal(t, "-100", got.ChatID)
	assert.Equal(t, "HTML", got.ParseMode)
}

func TestSendMessageDisabled(t *testing.T) {
	c := NewClient(Config{Enabled: true})
	assert.ErrorIs(t, c.SendMessage(context.Background(), "x"), ErrDisabled)
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Enabled: true, BotToken: "T", ChatID: "1", BaseURL: srv.URL})
	for i := 0; i < 3; i++ {
		assert.Error(t, c.SendMessage(context.Background(), "x"))
	}

	err := c.SendMessage(context.Background(), "x")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}
