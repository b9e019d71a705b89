package models

import (
	"time"

	"github.com/google/uuid"
)

// Watcher — серверная подписка на появление номеров.
// Авторизация по management-токену, без пользовательских аккаунтов.
type Watcher struct {
	ID        string `json:"id"`
	TokenHash string `json:"-"`

	Email             string `json:"email,omitempty"`
	DiscordWebhookURL string `json:"discordWebhookUrl,omitempty"`
	DiscordMention    string `json:"discordMention,omitempty"`
	PhoneNumber       string `json:"phoneNumber,omitempty"`
	PushSubscription  string `json:"pushSubscription,omitempty"`

	// Фильтры. Nil/пустое значение — фильтр не задан.
	// Ценовой фильтр вотчера сравнивается с nightly rate снапшота.
	HotelID         string   `json:"hotelId,omitempty"`
	MaxNightlyRate  *float64 `json:"maxNightlyRate,omitempty"`
	MaxDistance     *float64 `json:"maxDistance,omitempty"`
	RequireSkywalk  bool     `json:"requireSkywalk"`
	RoomTypePattern string   `json:"roomTypePattern,omitempty"`

	Active                 bool       `json:"active"`
	CooldownMinutes        int        `json:"cooldownMinutes"`
	LastNotifiedAt         *time.Time `json:"lastNotifiedAt,omitempty"`
	NotificationsSentToday int        `json:"notificationsSentToday"`
	DailyLimit             int        `json:"dailyLimit"`
	Year                   int        `json:"year"`
	CreatedAt              time.Time  `json:"createdAt"`
}

const (
	DefaultCooldownMinutes = 15
	DefaultWatcherDailyCap = 50
)

func NewWatcher(tokenHash string, year int) *Watcher {
	return &Watcher{
		ID:              uuid.NewString(),
		TokenHash:       tokenHash,
		Active:          true,
		CooldownMinutes: DefaultCooldownMinutes,
		DailyLimit:      DefaultWatcherDailyCap,
		Year:            year,
		CreatedAt:       time.Now(),
	}
}

// HasContact — у вотчера должен быть хотя бы один способ доставки.
func (w *Watcher) HasContact() bool {
	return w.Email != "" || w.DiscordWebhookURL != "" || w.PhoneNumber != "" || w.PushSubscription != ""
}

func (w *Watcher) Cooldown() time.Duration {
	if w.CooldownMinutes <= 0 {
		return DefaultCooldownMinutes * time.Minute
	}

	return time.Duration(w.CooldownMinutes) * time.Minute
}

// InCooldown сообщает, не истёк ли период тишины после последнего уведомления.
func (w *Watcher) InCooldown(now time.Time) bool {
	if w.LastNotifiedAt == nil {
		return false
	}

	return now.Sub(*w.LastNotifiedAt) < w.Cooldown()
}
