package notifications

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var _ Notifier = (*Dispatcher)(nil)

// Dispatcher sends every message to all of its notifiers. One failing
// channel does not stop the others.
type Dispatcher struct {
	notifiers []Notifier
	log       *zap.Logger
}

func NewDispatcher(log *zap.Logger, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers, log: log}
}

func (d *Dispatcher) Name() string { return "dispatcher" }

func (d *Dispatcher) Len() int { return len(d.notifiers) }

// Channels lists the configured notifier names in delivery order.
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.notifiers))
	for _, n := range d.notifiers {
		names = append(names, n.Name())
	}
	return names
}

func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	var errList []error
	for _, n := range d.notifiers {
		if err := n.Send(ctx, msg); err != nil {
			d.log.Warn("notification delivery failed",
				zap.String("channel", n.Name()),
				zap.String("rule", msg.Rule),
				zap.String("connection_id", msg.ConnectionID),
				zap.Error(err),
			)
			errList = append(errList, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		d.log.Debug("notification delivered",
			zap.String("channel", n.Name()),
			zap.String("rule", msg.Rule),
			zap.String("connection_id", msg.ConnectionID),
		)
	}
	return errors.Join(errList...)
}
