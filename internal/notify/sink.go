// Package notify delivers best-effort notifications about circulation events.
package notify

import (
	"context"
	"errors"

	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/logger"
)

// Sink delivers one notification. Failures never affect the operation that
// produced the notification.
type Sink interface {
	Name() string
	Notify(ctx context.Context, n domain.Notification) error
}

// LogSink writes notifications to the structured log.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Notify(ctx context.Context, n domain.Notification) error {
	logger.InfoContext(ctx, "Notification", "type", n.Type, "title", n.Title, "message", n.Message, "recipient", n.Recipient)
	return nil
}

// MultiSink fans a notification out to every sink and joins the errors.
type MultiSink []Sink

func (m MultiSink) Name() string { return "multi" }

func (m MultiSink) Notify(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
