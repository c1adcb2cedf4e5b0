package app

import (
	"context"
	"errors"
	"sync"

	"grade_watchdog/internal/domain/notification"
	"grade_watchdog/internal/domain/result"
)

type fakeFetcher struct {
	records     []result.Record
	err         error
	detailCalls []string
}

func (f *fakeFetcher) FetchResults(context.Context) ([]result.Record, error) {
	return f.records, f.err
}

func (f *fakeFetcher) FetchDetail(_ context.Context, studentID string) result.Detail {
	f.detailCalls = append(f.detailCalls, studentID)
	return result.Detail{
		Comment:        "Komentář pro " + studentID,
		SubmissionDate: "12.01.2025 23:59",
		DocumentURL:    "https://kiv/" + studentID + "/dokumentace.pdf",
		DetailURL:      "https://kiv/detail/" + studentID,
	}
}

type recordingNotifier struct {
	sent         []Notification
	failDelivery bool
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) bool {
	r.sent = append(r.sent, n)
	return !r.failDelivery
}

type sentMessage struct {
	msg  notification.Message
	test bool
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, msg notification.Message, test bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{msg: msg, test: test})
	return f.err
}

type fakeDirectory struct {
	logins map[string]string
}

func (f fakeDirectory) LookupLogin(_ context.Context, studentID string) (string, error) {
	login, ok := f.logins[studentID]
	if !ok {
		return "", errors.New("not found")
	}
	return login, nil
}
