package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testMessage() Message {
	return Message{
		ConnectionID: "r1",
		DeviceName:   "Core",
		Rule:         "high_cpu",
		Subject:      "cpu",
		Severity:     SeverityWarning,
		Text:         "CPU load 93% exceeds 80%",
		Time:         time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestWebhookNotifierSignsBody(t *testing.T) {
	var body []byte
	var sig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		sig = r.Header.Get("X-Signature")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{URL: srv.URL, Secret: "k"})
	require.NoError(t, n.Send(context.Background(), testMessage()))

	assert.Equal(t, Sign("k", body), sig)
	var payload webhookPayload
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "alert", payload.EventType)
	assert.Equal(t, "high_cpu", payload.Alert.Rule)
}

func TestWebhookNotifierStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(WebhookConfig{URL: srv.URL}).Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestSMSNotifierPostsToTwilio(t *testing.T) {
	var got []url.Values
	var path, user, pass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		user, pass, _ = r.BasicAuth()
		assert.NoError(t, r.ParseForm())
		got = append(got, r.PostForm)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	n := NewSMSNotifier(SMSConfig{AccountSID: "AC123", AuthToken: "tok", From: "+100", To: []string{"+200", "+300"}})
	n.baseURL = srv.URL
	require.NoError(t, n.Send(context.Background(), testMessage()))

	assert.Equal(t, "/Accounts/AC123/Messages.json", path)
	assert.Equal(t, "AC123", user)
	assert.Equal(t, "tok", pass)
	require.Len(t, got, 2)
	assert.Equal(t, "+200", got[0].Get("To"))
	assert.Equal(t, "+100", got[0].Get("From"))
	assert.Equal(t, "[warning] Core: CPU load 93% exceeds 80%", got[0].Get("Body"))
}

func TestEmailNotifierComposesMessage(t *testing.T) {
	n := NewEmailNotifier(EmailConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "noc@example.com", To: []string{"ops@example.com"}})

	var addr string
	var raw []byte
	n.sendMail = func(a string, auth smtp.Auth, from string, to []string, msg []byte) error {
		addr = a
		raw = msg
		assert.NotNil(t, auth)
		assert.Equal(t, "noc@example.com", from)
		assert.Equal(t, []string{"ops@example.com"}, to)
		return nil
	}

	require.NoError(t, n.Send(context.Background(), testMessage()))
	assert.Equal(t, "smtp.example.com:587", addr)
	assert.True(t, strings.Contains(string(raw), "Subject: [warning] Core: CPU load 93% exceeds 80%\r\n"))
	assert.Contains(t, string(raw), "Device: Core")
}

func TestEmailNotifierWithoutRecipientsIsNoop(t *testing.T) {
	n := NewEmailNotifier(EmailConfig{Host: "smtp.example.com", Port: 25})
	n.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("no mail expected")
		return nil
	}
	assert.NoError(t, n.Send(context.Background(), testMessage()))
}

type stubNotifier struct {
	name string
	err  error
	sent []Message
}

func (s *stubNotifier) Name() string { return s.name }

func (s *stubNotifier) Send(_ context.Context, msg Message) error {
	s.sent = append(s.sent, msg)
	return s.err
}

func TestDispatcherFansOutAndJoinsErrors(t *testing.T) {
	ok := &stubNotifier{name: "ok"}
	bad := &stubNotifier{name: "bad", err: errors.New("down")}
	last := &stubNotifier{name: "last"}

	d := NewDispatcher(zap.NewNop(), ok, bad, last)
	err := d.Send(context.Background(), testMessage())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: down")
	assert.Len(t, ok.sent, 1)
	assert.Len(t, bad.sent, 1)
	assert.Len(t, last.sent, 1)
	assert.Equal(t, 3, d.Len())
}
