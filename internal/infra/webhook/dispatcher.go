package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"grade_watchdog/internal/domain/notification"

	"github.com/go-resty/resty/v2"
)

var ErrUnexpectedStatus = errors.New("webhook rejected the message")

// Dispatcher posts messages to a Discord-compatible webhook. Test messages
// go to the test webhook when one is configured.
type Dispatcher struct {
	http    *resty.Client
	url     string
	testURL string
}

func NewDispatcher(url, testURL string, timeout time.Duration) *Dispatcher {
	client := resty.New()
	client.SetTimeout(timeout)
	return &Dispatcher{http: client, url: url, testURL: testURL}
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg notification.Message, test bool) error {
	target := d.url
	if test && d.testURL != "" {
		target = d.testURL
	}
	if target == "" {
		return notification.ErrNoWebhook
	}

	res, err := d.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(msg).
		Post(target)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("%w: status %d: %s", ErrUnexpectedStatus, res.StatusCode(), res.String())
	}
	return nil
}
