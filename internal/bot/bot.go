package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ivanoskov/ledger_bot/internal/charts"
	"github.com/ivanoskov/ledger_bot/internal/model"
)

const pollTimeout = 60

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Engine produces the reply to one chat message.
type Engine interface {
	HandleMessage(ctx context.Context, identity, text string) string
}

// Limiter admits messages per identity.
type Limiter interface {
	Allow(identity string) bool
	RetryAfter(identity string) time.Duration
}

// SpendingSource feeds the /chart command.
type SpendingSource interface {
	SpendingByCategory(ctx context.Context, limit int) ([]model.CategoryStats, error)
}

type Option func(*Bot)

func WithLogger(logger *zap.Logger) Option {
	return func(b *Bot) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithAllowedUsers restricts the bot to the given Telegram user ids. An empty
// list allows everyone.
func WithAllowedUsers(ids []int64) Option {
	return func(b *Bot) {
		if len(ids) == 0 {
			b.allowed = nil
			return
		}
		b.allowed = make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			b.allowed[id] = struct{}{}
		}
	}
}

// WithCharts enables the /chart command.
func WithCharts(source SpendingSource, generator *charts.ChartGenerator, currency string) Option {
	return func(b *Bot) {
		b.spending = source
		b.charts = generator
		b.currency = currency
	}
}

type Bot struct {
	api     API
	engine  Engine
	limiter Limiter
	logger  *zap.Logger
	allowed map[int64]struct{}

	spending SpendingSource
	charts   *charts.ChartGenerator
	currency string
}

// NewBot connects to Telegram with token.
func NewBot(token string, engine Engine, limiter Limiter, opts ...Option) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	return New(api, engine, limiter, opts...)
}

func New(api API, engine Engine, limiter Limiter, opts ...Option) (*Bot, error) {
	if api == nil {
		return nil, fmt.Errorf("bot: telegram api must not be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("bot: engine must not be nil")
	}
	if limiter == nil {
		return nil, fmt.Errorf("bot: rate limiter must not be nil")
	}

	b := &Bot{
		api:     api,
		engine:  engine,
		limiter: limiter,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Start receives updates by long polling until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.logger.Info("bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := b.handleUpdate(ctx, update); err != nil {
				// log and keep going
				b.logger.Error("error handling update", zap.Int("update_id", update.UpdateID), zap.Error(err))
			}
		}
	}
}

// HandleWebhook processes one update delivered by a Telegram webhook. A body
// that is not an update fails with errBadUpdate.
func (b *Bot) HandleWebhook(ctx context.Context, body []byte) error {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return fmt.Errorf("%w: %v", errBadUpdate, err)
	}

	return b.handleUpdate(ctx, update)
}

func (b *Bot) send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = getMainKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (b *Bot) sendErrorMessage(chatID int64, text string) error {
	return b.send(chatID, "❌ "+text)
}

func identityOf(user *tgbotapi.User) string {
	return strconv.FormatInt(user.ID, 10)
}
