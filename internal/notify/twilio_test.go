package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalizeMobile(t *testing.T) {
	assert.Equal(t, "+919876543210", NormalizeMobile("9876543210", "+91"))
	assert.Equal(t, "+19876543210", NormalizeMobile("9876543210", "+1"))
	assert.Equal(t, "+449876543210", NormalizeMobile("+449876543210", "+91"))
}

func TestTwilioSend(t *testing.T) {
	var got struct {
		path string
		to   string
		from string
		body string
		user string
		pass string
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got.path = r.URL.Path
		got.to = r.PostForm.Get("To")
		got.from = r.PostForm.Get("From")
		got.body = r.PostForm.Get("Body")
		got.user, got.pass, _ = r.BasicAuth()
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	n := NewTwilioNotifier("AC123", "token", "+15550001111", "+91", zap.NewNop())
	n.baseURL = server.URL

	err := n.Send(context.Background(), "9876543210", "Your Library OTP is: 123456")
	require.NoError(t, err)

	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", got.path)
	assert.Equal(t, "+919876543210", got.to)
	assert.Equal(t, "+15550001111", got.from)
	assert.Equal(t, "Your Library OTP is: 123456", got.body)
	assert.Equal(t, "AC123", got.user)
	assert.Equal(t, "token", got.pass)
}

func TestTwilioSendRejectedByProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	n := NewTwilioNotifier("AC123", "bad-token", "+15550001111", "+91", zap.NewNop())
	n.baseURL = server.URL

	err := n.Send(context.Background(), "9876543210", "hello")
	assert.Error(t, err)
}

func TestLogNotifierNeverFails(t *testing.T) {
	n := NewLogNotifier(zap.NewNop())
	assert.NoError(t, n.Send(context.Background(), "9876543210", "hello"))
}
