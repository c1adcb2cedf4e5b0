package app

import (
	"context"
	"errors"

	"grade_watchdog/internal/domain/result"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// WatchdogService runs the startup self-test and the periodic check cycle.
// Cycles must not run concurrently; the scheduler guarantees that.
type WatchdogService struct {
	fetcher     result.Fetcher
	store       result.StateStore
	notifier    NotificationService
	myStudentID string
	logger      *logrus.Entry
}

func NewWatchdogService(
	fetcher result.Fetcher,
	store result.StateStore,
	notifier NotificationService,
	myStudentID string,
	logger *logrus.Entry,
) *WatchdogService {
	return &WatchdogService{
		fetcher:     fetcher,
		store:       store,
		notifier:    notifier,
		myStudentID: myStudentID,
		logger:      logger,
	}
}

// RunStartupTest sends one test notification for the operator's own row so
// the whole pipeline is verified at startup. It never touches the history.
func (s *WatchdogService) RunStartupTest(ctx context.Context) {
	log := s.logger.WithField("student_id", s.myStudentID)
	log.Info("Running startup test")

	records, err := s.fetcher.FetchResults(ctx)
	if err != nil {
		log.WithError(err).Error("Startup test failed: could not fetch results")
		return
	}

	var mine *result.Record
	for i := range records {
		if s.myStudentID != "" && records[i].StudentID == s.myStudentID {
			mine = &records[i]
			break
		}
	}
	if mine == nil {
		log.Warn("Own student id not found in the results table")
		return
	}

	targets, err := s.store.LoadTargets(ctx)
	if err != nil {
		log.WithError(err).Warn("Could not load notification targets")
	}

	log.Info("Own row found, fetching detail")
	delivered := s.notifier.Notify(ctx, Notification{
		StudentID: mine.StudentID,
		Previous:  result.Record{StudentID: mine.StudentID, Result: result.StartupTestResult},
		Current:   *mine,
		Detail:    s.fetcher.FetchDetail(ctx, mine.StudentID),
		Targets:   targets,
		Test:      true,
	})
	if !delivered {
		log.Error("Startup test message was not delivered")
		return
	}
	log.Info("Startup test message sent")
}

// CheckForChanges runs one check cycle. Errors end the cycle early and are
// logged; the next cycle starts from scratch.
func (s *WatchdogService) CheckForChanges(ctx context.Context) {
	log := s.logger.WithField("cycle_id", uuid.NewString())

	targets, err := s.store.LoadTargets(ctx)
	if err != nil {
		log.WithError(err).Warn("Could not load notification targets, continuing without them")
		targets = result.Targets{}
	}

	records, err := s.fetcher.FetchResults(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to fetch results")
		return
	}
	if len(records) == 0 {
		log.Warn("Results table is empty, skipping cycle")
		return
	}

	previous, err := s.store.LoadHistory(ctx)
	if err != nil {
		if !errors.Is(err, result.ErrCorruptState) {
			log.WithError(err).Error("Failed to load history")
			return
		}
		log.WithError(err).Warn("History is unreadable, treating it as empty")
		previous = result.Snapshot{}
	}

	changes := result.Detect(records, previous, s.myStudentID, targets)
	if len(changes) == 0 {
		log.Info("No changes")
		return
	}

	for _, c := range changes {
		if ctx.Err() != nil {
			// history stays as is so the remaining changes are announced next run
			log.Warn("Cycle interrupted, history not updated")
			return
		}
		log.WithFields(logrus.Fields{
			"student_id":    c.StudentID,
			"new":           c.IsNew,
			"result_before": c.Previous.Result,
			"result_after":  c.Current.Result,
			"sp_points":     c.Current.SPPoints,
			"total_points":  c.Current.TotalPoints,
			"tutor":         c.Current.Tutor,
		}).Warn("Change detected")

		s.notifier.Notify(ctx, Notification{
			StudentID: c.StudentID,
			Previous:  c.Previous,
			Current:   c.Current,
			Detail:    s.fetcher.FetchDetail(ctx, c.StudentID),
			Targets:   targets,
		})
	}

	if err := s.store.SaveHistory(ctx, result.SnapshotOf(records)); err != nil {
		log.WithError(err).Error("Failed to save history")
		return
	}
	log.WithField("changes", len(changes)).Info("History updated")
}
