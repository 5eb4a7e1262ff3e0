package application

import "context"

// Notifier pushes lifecycle messages (started, stopped, startup failure) to
// the household's phones.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopNotifier struct{}

func (n *NoopNotifier) Notify(_ context.Context, _ string) error {
	return nil
}
