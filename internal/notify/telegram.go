// Package notify pushes operator notifications for job lifecycle events
// that need a human: an open login window, or a settled outcome.
package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kleinvault/kleinvault/internal/logging"
	"github.com/kleinvault/kleinvault/internal/models"
)

// Notifier receives job lifecycle events. Implementations must not
// block the orchestrator for long.
type Notifier interface {
	// JobWaiting fires when a job enters waiting_for_user: a browser
	// window is open and someone has to log in.
	JobWaiting(job *models.LoginJob)
	// JobSettled fires when a job reaches a terminal status.
	JobSettled(job *models.LoginJob)
}

// Noop discards all events.
type Noop struct{}

func (Noop) JobWaiting(*models.LoginJob) {}
func (Noop) JobSettled(*models.LoginJob) {}

// Telegram sends one-off messages to a fixed chat. Each send creates a
// throwaway bot client; no long-lived connection is held.
type Telegram struct {
	token  string
	chatID int64
	logger *logging.Logger

	// send is swapped out in tests.
	send func(token string, chatID int64, text string) error
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(token string, chatID int64, logger *logging.Logger) *Telegram {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &Telegram{
		token:  token,
		chatID: chatID,
		logger: logger,
		send:   sendMessage,
	}
}

func sendMessage(token string, chatID int64, text string) error {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	_, err = bot.Send(msg)
	return err
}

func (t *Telegram) notify(text string) {
	if strings.TrimSpace(t.token) == "" || t.chatID == 0 || strings.TrimSpace(text) == "" {
		return
	}
	if err := t.send(t.token, t.chatID, text); err != nil {
		t.logger.Warn("telegram notification failed", "error", err.Error())
	}
}

// JobWaiting notifies that a login window is open and waiting.
func (t *Telegram) JobWaiting(job *models.LoginJob) {
	t.notify(fmt.Sprintf("🔑 Job *%d* (%s): browser window open, waiting for manual login", job.ID, job.Email))
}

// JobSettled notifies about a terminal job outcome.
func (t *Telegram) JobSettled(job *models.LoginJob) {
	switch job.Status {
	case models.StatusValid:
		t.notify(fmt.Sprintf("✅ Job *%d* (%s): login valid, account promoted", job.ID, job.Email))
	case models.StatusInvalid:
		t.notify(fmt.Sprintf("❌ Job *%d* (%s): login invalid", job.ID, job.Email))
	}
}

// Ensure both implementations satisfy the interface
var (
	_ Notifier = (*Telegram)(nil)
	_ Notifier = Noop{}
)
