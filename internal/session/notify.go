package session

import (
	"log/slog"
	"sync"
)

// BrowserNotifier — системное уведомление сессии. Тег дедуплицирует:
// уведомление с тем же тегом замещает предыдущее, а не добавляется.
type BrowserNotifier interface {
	Notify(tag, title, body string)
}

// LogNotifier — заглушка browser-уведомлений: пишет в лог и ведёт учёт
// тегов, чтобы поведение замещения было наблюдаемым в тестах.
type LogNotifier struct {
	logger *slog.Logger

	mu   sync.Mutex
	last map[string]string
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{
		logger: logger,
		last:   make(map[string]string),
	}
}

func (n *LogNotifier) Notify(tag, title, body string) {
	n.mu.Lock()
	_, replaced := n.last[tag]
	n.last[tag] = body
	n.mu.Unlock()

	n.logger.Info("Browser-уведомление (заглушка)",
		"tag", tag,
		"title", title,
		"replaced", replaced,
	)
}

// Shown возвращает последнее тело уведомления по тегу.
func (n *LogNotifier) Shown(tag string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	body, ok := n.last[tag]

	return body, ok
}
