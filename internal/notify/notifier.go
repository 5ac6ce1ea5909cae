// Package notify delivers session lifecycle alerts to operator channels.
// Start, settlement, and failure messages go to every configured sender;
// delivery is best-effort and never blocks the decision loop.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Sender is one notification channel.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns the channel identifier (e.g. "slack").
	Name() string
}

// Notifier fans one notification out to every configured sender. One failing
// sender does not stop delivery to the rest.
type Notifier struct {
	senders []Sender
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. A Notifier
// with no senders is valid and drops everything.
func NewNotifier(senders []Sender, logger *slog.Logger) *Notifier {
	return &Notifier{
		senders: senders,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// NotifyAll sends a notification to every sender and returns the joined
// errors of the senders that failed.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.Warn("sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %w", errors.Join(errs...))
	}
	return nil
}
