// Package notify delivers fire-and-forget notifications raised after
// prayer-request and new-person commits.
package notify

import (
	"context"
	"errors"
	"log/slog"
)

// Notifier receives a notification. It matches engine.Notifier.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// LogSink writes notifications to a structured logger. It is the fallback
// when no broker is configured.
type LogSink struct {
	Logger *slog.Logger
}

// Notify logs the notification at Info.
func (s LogSink) Notify(ctx context.Context, subject, body string) error {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	l.InfoContext(ctx, "notification", "subject", subject, "body", body)
	return nil
}

// Fanout delivers to every sink and joins their errors. One failing sink
// does not stop the others.
type Fanout []Notifier

// Notify implements Notifier.
func (f Fanout) Notify(ctx context.Context, subject, body string) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, subject, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
