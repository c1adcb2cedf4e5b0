package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"grade_watchdog/internal/domain/notification"
	"grade_watchdog/internal/domain/result"

	"github.com/sirupsen/logrus"
)

const (
	UnknownIdentity    = "NEZNÁMÉ"
	MaxCommentRunes    = 950
	TruncationSuffix   = "... (zkráceno)"
	DefaultSendPause   = time.Second
	messageAuthor      = "KIV/PC: VÝSLEDKY"
	messageTitle       = "ZMĚNA HODNOCENÍ"
	messageTitleTest   = " (TEST)"
	messageUsername    = "KIV-PC Bot"
	messageColor       = 16744448
	footerTimeLayout   = "02.01.2006 15:04:05"
	submissionDateTail = "\n-------------------->"
)

// Notification is everything needed to announce one change.
type Notification struct {
	StudentID string
	Previous  result.Record
	Current   result.Record
	Detail    result.Detail
	Targets   result.Targets
	Test      bool
}

// NotificationService builds grade change messages and hands them to the
// configured dispatchers.
type NotificationService interface {
	// Notify is best effort: failures are logged and never returned. It
	// reports whether at least one channel accepted the message.
	Notify(ctx context.Context, n Notification) bool
}

type NotificationServiceImpl struct {
	dispatchers       []notification.Dispatcher
	directory         notification.IdentityDirectory
	myStudentID       string
	fallbackMentionID string
	pause             time.Duration
	now               func() time.Time
	logger            *logrus.Entry
}

func NewNotificationServiceImpl(
	dispatchers []notification.Dispatcher,
	directory notification.IdentityDirectory,
	myStudentID string,
	fallbackMentionID string,
	pause time.Duration,
	logger *logrus.Entry,
) *NotificationServiceImpl {
	return &NotificationServiceImpl{
		dispatchers:       dispatchers,
		directory:         directory,
		myStudentID:       myStudentID,
		fallbackMentionID: fallbackMentionID,
		pause:             pause,
		now:               time.Now,
		logger:            logger,
	}
}

func (s *NotificationServiceImpl) Notify(ctx context.Context, n Notification) bool {
	log := s.logger.WithFields(logrus.Fields{
		"student_id": n.StudentID,
		"test":       n.Test,
	})

	login := s.lookupIdentity(ctx, n.StudentID, log)
	msg := s.buildMessage(n, login)

	delivered := false
	for _, d := range s.dispatchers {
		err := d.Dispatch(ctx, msg, n.Test)
		switch {
		case errors.Is(err, notification.ErrNoWebhook):
			log.Debug("No webhook configured, skipping")
		case err != nil:
			log.WithError(err).Error("Failed to dispatch notification")
		default:
			delivered = true
		}
	}
	if !delivered {
		return false
	}

	log.Info("Notification sent")
	if s.pause > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(s.pause):
		}
	}
	return true
}

// mentionFor prefers the target mapping; the operator's own id falls back to
// the configured mention id.
func (s *NotificationServiceImpl) mentionFor(studentID string, targets result.Targets) string {
	if userID, ok := targets[studentID]; ok && userID != "" {
		return notification.Mention(userID)
	}
	if s.myStudentID != "" && studentID == s.myStudentID {
		return notification.Mention(s.fallbackMentionID)
	}
	return ""
}

func (s *NotificationServiceImpl) lookupIdentity(ctx context.Context, studentID string, log *logrus.Entry) string {
	if s.directory == nil {
		return UnknownIdentity
	}
	login, err := s.directory.LookupLogin(ctx, studentID)
	if err != nil {
		log.WithError(err).Warn("Identity lookup failed")
		return UnknownIdentity
	}
	return login
}

func (s *NotificationServiceImpl) buildMessage(n Notification, login string) notification.Message {
	title := messageTitle
	if n.Test {
		title += messageTitleTest
	}
	tutor := n.Current.Tutor
	if tutor == "" {
		tutor = result.UnknownTutor
	}

	embed := notification.Embed{
		Author:      &notification.Author{Name: messageAuthor},
		Title:       title,
		URL:         n.Detail.DetailURL,
		Description: "```\n" + truncateComment(n.Detail.Comment) + "\n```",
		Color:       messageColor,
		Fields: []notification.Field{
			{Name: "O. ČÍSLO", Value: n.StudentID, Inline: true},
			{Name: "ORION", Value: login, Inline: true},
			{Name: "CVIČENÍ", Value: tutor, Inline: true},
			{Name: "ČAS ODEVZDÁNÍ SP", Value: n.Detail.SubmissionDate + submissionDateTail},
			{Name: "BODY SP", Value: n.Current.SPPoints + "/70", Inline: true},
			{Name: "BODY CELKEM", Value: n.Current.TotalPoints + "/100", Inline: true},
			{Name: "VÝSLEDEK", Value: n.Current.Result},
			{Name: "ODKAZY", Value: fmt.Sprintf("[ODKAZ NA DOKUMENTACI](%s)\n[ODKAZ NA DETAIL OHODNOCENÍ](%s)", n.Detail.DocumentURL, n.Detail.DetailURL)},
		},
		Footer: &notification.Footer{Text: "Čas kontroly: " + s.now().Format(footerTimeLayout)},
	}

	return notification.Message{
		Content:  s.mentionFor(n.StudentID, n.Targets),
		Username: messageUsername,
		Embeds:   []notification.Embed{embed},
	}
}

func truncateComment(comment string) string {
	runes := []rune(comment)
	if len(runes) <= MaxCommentRunes {
		return comment
	}
	return string(runes[:MaxCommentRunes]) + TruncationSuffix
}
