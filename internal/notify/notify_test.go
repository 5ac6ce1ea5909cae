package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	name  string
	err   error
	calls int
}

func (s *fakeSender) Send(ctx context.Context, title, message string) error {
	s.calls++
	return s.err
}

func (s *fakeSender) Name() string { return s.name }

func TestNotifyAllReachesEverySender(t *testing.T) {
	a := &fakeSender{name: "a"}
	b := &fakeSender{name: "b"}
	n := NewNotifier([]Sender{a, b}, slog.Default())

	require.NoError(t, n.NotifyAll(context.Background(), "title", "body"))
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestNotifyAllOneFailureDoesNotStopTheRest(t *testing.T) {
	a := &fakeSender{name: "a", err: errors.New("webhook down")}
	b := &fakeSender{name: "b"}
	n := NewNotifier([]Sender{a, b}, slog.Default())

	err := n.NotifyAll(context.Background(), "title", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a: webhook down")
	assert.Equal(t, 1, b.calls)
}

func TestNotifyAllNoSenders(t *testing.T) {
	n := NewNotifier(nil, slog.Default())
	require.NoError(t, n.NotifyAll(context.Background(), "title", "body"))
}

func TestSlackSenderPostsWebhookPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
	}))
	defer srv.Close()

	s := NewSlackSender(srv.URL)
	require.NoError(t, s.Send(context.Background(), "settlement reached", "session settling"))
	assert.Equal(t, "*settlement reached*\nsession settling", got["text"])
	assert.Equal(t, "slack", s.Name())
}

func TestSlackSenderRejectsNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewSlackSender(srv.URL).Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}
