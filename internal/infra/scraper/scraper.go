package scraper

import (
	"context"
	"fmt"

	"grade_watchdog/internal/domain/result"

	"github.com/sirupsen/logrus"
)

// PageFetcher returns the decoded body of a page, handling the session.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Scraper implements result.Fetcher on top of a session-aware PageFetcher.
type Scraper struct {
	pages     PageFetcher
	targetURL string
	detailURL func(studentID string) string
	logger    *logrus.Entry
}

func New(pages PageFetcher, targetURL string, detailURL func(string) string, logger *logrus.Entry) *Scraper {
	return &Scraper{
		pages:     pages,
		targetURL: targetURL,
		detailURL: detailURL,
		logger:    logger,
	}
}

func (s *Scraper) FetchResults(ctx context.Context) ([]result.Record, error) {
	page, err := s.pages.Fetch(ctx, s.targetURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch results page: %w", err)
	}
	records, err := ParseResults(page)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		s.logger.Debug("Results table missing or empty")
	}
	return records, nil
}

func (s *Scraper) FetchDetail(ctx context.Context, studentID string) result.Detail {
	url := s.detailURL(studentID)
	page, err := s.pages.Fetch(ctx, url)
	if err != nil {
		s.logger.WithError(err).WithField("student_id", studentID).Warn("Could not load assessment detail")
		return result.UnavailableDetail(url)
	}
	detail, err := ParseDetail(page, url)
	if err != nil {
		s.logger.WithError(err).WithField("student_id", studentID).Warn("Could not parse assessment detail")
		return result.UnavailableDetail(url)
	}
	return detail
}
