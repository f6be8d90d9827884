// Package notifications delivers alert messages over email, SMS and webhooks.
package notifications

import (
	"context"
	"fmt"
	"time"
)

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Message is one alert about one router.
type Message struct {
	ConnectionID string    `json:"connectionId"`
	DeviceName   string    `json:"deviceName"`
	Rule         string    `json:"rule"`
	Subject      string    `json:"subject"`
	Severity     Severity  `json:"severity"`
	Text         string    `json:"text"`
	Time         time.Time `json:"time"`
}

// Title is the one-line summary used for email subjects and SMS bodies.
func (m Message) Title() string {
	return fmt.Sprintf("[%s] %s: %s", m.Severity, m.DeviceName, m.Text)
}

// Notifier delivers a message over one channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}
