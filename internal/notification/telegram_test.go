package notification

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profithive/profithive-go/internal/config"
)

type fakeSender struct {
	sent []*bot.SendMessageParams
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	f.sent = append(f.sent, params)
	if f.err != nil {
		return nil, f.err
	}
	return &tgmodels.Message{}, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestNotifyDegraded_SendsAlert(t *testing.T) {
	sender := &fakeSender{}
	n := newTelegramNotifier(sender, 1234, quietLogger())

	n.NotifyDegraded(context.Background(), "shop-42", errors.New("prophet failed after 3 attempts"))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(1234), sender.sent[0].ChatID)
	assert.Contains(t, sender.sent[0].Text, "shop-42")
	assert.Contains(t, sender.sent[0].Text, "prophet failed after 3 attempts")
}

func TestNotifyDegraded_CooldownSuppressesRepeats(t *testing.T) {
	sender := &fakeSender{}
	n := newTelegramNotifier(sender, 1234, quietLogger())

	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return base }

	reason := errors.New("timeout")
	n.NotifyDegraded(context.Background(), "shop-42", reason)
	n.NotifyDegraded(context.Background(), "shop-42", reason)
	assert.Len(t, sender.sent, 1, "repeat alert within cooldown must be suppressed")

	// A different series alerts independently.
	n.NotifyDegraded(context.Background(), "shop-99", reason)
	assert.Len(t, sender.sent, 2)

	// After the cooldown the same series alerts again.
	n.now = func() time.Time { return base.Add(16 * time.Minute) }
	n.NotifyDegraded(context.Background(), "shop-42", reason)
	assert.Len(t, sender.sent, 3)
}

func TestNotifyDegraded_SendFailureIsSwallowed(t *testing.T) {
	sender := &fakeSender{err: errors.New("telegram unreachable")}
	n := newTelegramNotifier(sender, 1234, quietLogger())

	assert.NotPanics(t, func() {
		n.NotifyDegraded(context.Background(), "shop-42", errors.New("timeout"))
	})
}

func TestNewTelegramNotifier_DisabledWithoutToken(t *testing.T) {
	n, err := NewTelegramNotifier(config.TelegramConfig{}, quietLogger())
	require.NoError(t, err)
	assert.Nil(t, n)
}
