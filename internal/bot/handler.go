package bot

import (
	"context"
	"fmt"
	"math"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ivanoskov/ledger_bot/internal/charts"
	"github.com/ivanoskov/ledger_bot/internal/service"
)

const commandChart = "/chart"

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	message := update.Message
	if message == nil || message.From == nil || message.Text == "" {
		return nil
	}

	if !b.isAllowed(message.From.ID) {
		b.logger.Warn("message from unauthorized user", zap.Int64("user_id", message.From.ID))
		return nil
	}

	identity := identityOf(message.From)
	if !b.limiter.Allow(identity) {
		wait := b.limiter.RetryAfter(identity)
		b.logger.Warn("rate limited", zap.String("identity", identity), zap.Duration("retry_after", wait))
		return b.send(message.Chat.ID, fmt.Sprintf(
			"⏳ Too many messages. Please wait %d seconds and try again.", int(math.Ceil(wait.Seconds()))))
	}

	text := normalizeInput(message)
	if text == commandChart {
		return b.handleChart(ctx, message.Chat.ID)
	}

	reply := b.engine.HandleMessage(ctx, identity, text)
	return b.send(message.Chat.ID, reply)
}

func (b *Bot) handleChart(ctx context.Context, chatID int64) error {
	if b.spending == nil || b.charts == nil {
		return b.sendErrorMessage(chatID, "Charts are not enabled.")
	}

	stats, err := b.spending.SpendingByCategory(ctx, service.MaxRecentLimit)
	if err != nil {
		b.logger.Error("spending report failed", zap.Error(err))
		message := "the finance service is unavailable, please try again"
		if e, ok := service.AsError(err); ok && e.Message != "" {
			message = e.Message
		}
		return b.sendErrorMessage(chatID, "Could not build the chart: "+message)
	}

	img, err := b.charts.GenerateSpendingPie(stats)
	if err != nil {
		b.logger.Error("chart rendering failed", zap.Error(err))
		return b.sendErrorMessage(chatID, "Could not build the chart.")
	}
	if img == nil {
		return b.send(chatID, "📊 No expenses to chart yet.")
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "spending.png", Bytes: img})
	photo.Caption = charts.Caption(stats, b.currency)
	photo.ReplyMarkup = getMainKeyboard()
	if _, err := b.api.Send(photo); err != nil {
		return fmt.Errorf("failed to send chart: %w", err)
	}
	return nil
}

func (b *Bot) isAllowed(userID int64) bool {
	if len(b.allowed) == 0 {
		return true
	}
	_, ok := b.allowed[userID]
	return ok
}
