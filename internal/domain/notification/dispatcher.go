// internal/domain/notification/dispatcher.go
package notification

import (
	"context"
	"errors"
)

// Dispatcher delivers a built message to an outbound channel.
// test marks messages produced by the startup self-test.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message, test bool) error
}

// IdentityDirectory resolves a student id to the university login name.
type IdentityDirectory interface {
	LookupLogin(ctx context.Context, studentID string) (string, error)
}

// ErrNoWebhook is returned by a Dispatcher that has no endpoint configured.
// The message is skipped without counting as a failure.
var ErrNoWebhook = errors.New("no webhook URL configured")
