// Package notify defines the outbound notification contract consumed by
// the booking engine, the broadcast service, and the reminder scheduler.
// Actual chat delivery (bot transport, webhook plumbing) lives outside
// this repository; callers inject an implementation at startup.
//
// Delivery failures are expected (a recipient may have blocked the bot)
// and must never fail or roll back the booking operation that triggered
// them: callers log the error and move on.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Notifier delivers a message to a chat identity. Implementations must be
// safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, message string) error
}

// LogNotifier writes every message to the structured log instead of a chat
// transport. It is the default wiring in development and tests.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify logs the outbound message and always succeeds.
func (n LogNotifier) Notify(_ context.Context, chatID int64, message string) error {
	n.Logger.Info().
		Int64("chat_id", chatID).
		Str("message", message).
		Msg("notification")
	return nil
}

// Func adapts a plain function to the Notifier interface.
type Func func(ctx context.Context, chatID int64, message string) error

// Notify calls f.
func (f Func) Notify(ctx context.Context, chatID int64, message string) error {
	return f(ctx, chatID, message)
}
