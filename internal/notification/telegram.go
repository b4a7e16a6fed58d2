package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/profithive/profithive-go/internal/config"
)

// alertCooldown suppresses repeat alerts for the same series so a flapping
// subprocess does not flood the channel.
const alertCooldown = 15 * time.Minute

// messageSender is the slice of the telegram bot API the service uses.
type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// TelegramNotifier posts an operator alert when forecasts degrade to the
// local ensemble engine. Alert delivery is fire-and-forget: failures are
// logged, never surfaced to the forecast path.
type TelegramNotifier struct {
	sender messageSender
	chatID int64
	logger *logrus.Logger
	now    func() time.Time

	mu        sync.Mutex
	lastAlert map[string]time.Time
}

// NewTelegramNotifier builds a notifier, or returns nil when no bot token is
// configured. A nil notifier is valid: callers simply skip alerting.
func NewTelegramNotifier(cfg config.TelegramConfig, logger *logrus.Logger) (*TelegramNotifier, error) {
	if cfg.BotToken == "" || cfg.AlertChatID == 0 {
		return nil, nil
	}
	b, err := bot.New(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}
	return newTelegramNotifier(b, cfg.AlertChatID, logger), nil
}

func newTelegramNotifier(sender messageSender, chatID int64, logger *logrus.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		sender:    sender,
		chatID:    chatID,
		logger:    logger,
		now:       time.Now,
		lastAlert: make(map[string]time.Time),
	}
}

// NotifyDegraded posts a degradation alert for the series unless one went out
// within the cooldown window.
func (n *TelegramNotifier) NotifyDegraded(ctx context.Context, seriesID string, reason error) {
	if !n.shouldAlert(seriesID) {
		return
	}

	text := fmt.Sprintf(
		"⚠️ *Forecast degraded*\nSeries: `%s`\nEngine: ensemble fallback\nReason: %s",
		seriesID, reason.Error(),
	)
	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		n.logger.WithFields(logrus.Fields{
			"series_id": seriesID,
			"error":     err.Error(),
		}).Warn("Failed to send telegram degradation alert")
		return
	}

	n.logger.WithField("series_id", seriesID).Info("Sent telegram degradation alert")
}

func (n *TelegramNotifier) shouldAlert(seriesID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	if last, ok := n.lastAlert[seriesID]; ok && now.Sub(last) < alertCooldown {
		return false
	}
	n.lastAlert[seriesID] = now
	return true
}
