// internal/infra/telegram/sender.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"bill_reminder_service/internal/domain/notify"

	"gopkg.in/telebot.v3"
)

// Sender delivers reminders to a Telegram chat using the gopkg.in/telebot.v3
// library. The account address is expected to hold the numeric chat ID.
type Sender struct {
	bot *telebot.Bot
}

func NewSender(b *telebot.Bot) *Sender {
	return &Sender{bot: b}
}

func (s *Sender) Send(ctx context.Context, address string, msg notify.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", notify.Transient(err)
	}

	chatID, err := strconv.ParseInt(address, 10, 64)
	if err != nil {
		return "", notify.Permanent(fmt.Errorf("address %q is not a telegram chat ID: %w", address, err))
	}

	text := msg.Subject + "\n\n" + msg.Body
	sent, err := s.bot.Send(&telebot.User{ID: chatID}, text, &telebot.SendOptions{})
	if err != nil {
		return "", classify(err)
	}
	return strconv.Itoa(sent.ID), nil
}

// classify maps telebot errors onto the closed dispatch error kinds. Flood
// limits recover on their own; a missing or blocking chat never will.
func classify(err error) error {
	var flood telebot.FloodError
	if errors.As(err, &flood) {
		return notify.Transient(err)
	}
	switch {
	case errors.Is(err, telebot.ErrChatNotFound),
		errors.Is(err, telebot.ErrBlockedByUser),
		errors.Is(err, telebot.ErrUserIsDeactivated):
		return notify.Permanent(err)
	}
	return notify.Transient(err)
}
