package dispatch

import (
	"context"
	"log/slog"

	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
)

// PushClient — заглушка web-push доставки: подписка логируется, доставка
// считается успешной. Реальная отправка требует VAPID-ключей и шифрования
// payload, TODO: подключить webpush-go, когда появятся ключи в конфиге.
type PushClient struct {
	logger *slog.Logger
}

type PushSender interface {
	SendPush(ctx context.Context, subscription string, match *models.Match) error
}

func NewPushClient(logger *slog.Logger) PushSender {
	return &PushClient{logger: logger}
}

func (c *PushClient) SendPush(ctx context.Context, subscription string, match *models.Match) error {
	c.logger.Info("Push-уведомление (заглушка)",
		"subscription", truncate(subscription, 32),
		"match", match.Key(),
	)

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
