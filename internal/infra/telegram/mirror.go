package telegram

import (
	"context"
	"strings"

	"grade_watchdog/internal/domain/notification"

	"gopkg.in/telebot.v3"
)

// Mirror repeats every notification into a Telegram chat as plain text.
type Mirror struct {
	client Client
	chatID int64
}

func NewMirror(client Client, chatID int64) *Mirror {
	return &Mirror{client: client, chatID: chatID}
}

func (m *Mirror) Dispatch(_ context.Context, msg notification.Message, _ bool) error {
	return m.client.SendMessage(m.chatID, RenderText(msg), &telebot.SendOptions{DisableWebPagePreview: true})
}

// RenderText flattens the embeds of a message. Discord mentions are dropped
// since they mean nothing outside Discord.
func RenderText(msg notification.Message) string {
	var b strings.Builder
	for i, e := range msg.Embeds {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if e.Author != nil && e.Author.Name != "" {
			b.WriteString(e.Author.Name)
			b.WriteString("\n")
		}
		if e.Title != "" {
			b.WriteString(e.Title)
			b.WriteString("\n")
		}
		if desc := stripFence(e.Description); desc != "" {
			b.WriteString("\n")
			b.WriteString(desc)
			b.WriteString("\n")
		}
		if len(e.Fields) > 0 {
			b.WriteString("\n")
		}
		for _, f := range e.Fields {
			b.WriteString(f.Name)
			b.WriteString(": ")
			b.WriteString(strings.ReplaceAll(f.Value, "\n", " "))
			b.WriteString("\n")
		}
		if e.Footer != nil && e.Footer.Text != "" {
			b.WriteString("\n")
			b.WriteString(e.Footer.Text)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
