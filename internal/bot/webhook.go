package bot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	webhookBodyLimit       = 1 * 1024 * 1024
	webhookShutdownTimeout = 10 * time.Second
)

var errBadUpdate = errors.New("failed to decode update")

// ServeWebhook registers link with Telegram and serves updates posted to its
// path on addr until ctx is cancelled.
func (b *Bot) ServeWebhook(ctx context.Context, link, addr string) error {
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if err := b.registerWebhook(link); err != nil {
		return err
	}

	app := b.webhookApp(ctx, u.Path)

	errCh := make(chan error, 1)
	go func() { errCh <- app.Listen(addr) }()

	b.logger.Info("webhook server started", zap.String("addr", addr), zap.String("path", routePath(u.Path)))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), webhookShutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	}
}

func (b *Bot) registerWebhook(link string) error {
	wh, err := tgbotapi.NewWebhook(link)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("failed to register webhook: %w", err)
	}
	return nil
}

// webhookApp answers 400 to bodies that are not updates. Any other failure is
// logged and acknowledged so Telegram does not redeliver the update.
func (b *Bot) webhookApp(ctx context.Context, path string) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:             webhookBodyLimit,
		DisableStartupMessage: true,
	})

	app.Post(routePath(path), func(c *fiber.Ctx) error {
		err := b.HandleWebhook(ctx, c.Body())
		switch {
		case errors.Is(err, errBadUpdate):
			b.logger.Warn("rejected webhook body", zap.Error(err))
			return c.SendStatus(fiber.StatusBadRequest)
		case err != nil:
			b.logger.Error("error handling webhook update", zap.Error(err))
		}
		return c.SendStatus(fiber.StatusOK)
	})

	return app
}

func routePath(path string) string {
	if path == "" {
		return "/"
	}
	return path
}
