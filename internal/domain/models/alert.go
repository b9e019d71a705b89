package models

import (
	"time"

	"github.com/google/uuid"
)

// Alert — пользовательская (локальная или синхронизированная) подписка
// для визуальных/звуковых каналов и привязанных Discord/телефона.
// Ценовой фильтр алерта сравнивается с total price снапшота.
type Alert struct {
	ID     string `json:"id"`
	UserID string `json:"userId,omitempty"`

	HotelName          string   `json:"hotelName,omitempty"`
	MaxTotalPrice      *float64 `json:"maxTotalPrice,omitempty"`
	MaxDistance        *float64 `json:"maxDistance,omitempty"`
	RequireSkywalk     bool     `json:"requireSkywalk"`
	Areas              []string `json:"areas,omitempty"`
	MinNightsAvailable *int     `json:"minNightsAvailable,omitempty"`
	DowntownOnly       bool     `json:"downtownOnly"`

	Enabled           bool   `json:"enabled"`
	SoundEnabled      bool   `json:"soundEnabled"`
	FullScreenEnabled bool   `json:"fullScreenEnabled"`
	DiscordWatcherID  string `json:"discordWatcherId,omitempty"`
	PhoneNumber       string `json:"phoneNumber,omitempty"`
	SMSBody           string `json:"smsBody,omitempty"`

	CooldownMinutes int        `json:"cooldownMinutes"`
	LastNotifiedAt  *time.Time `json:"lastNotifiedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func NewAlert(userID string) *Alert {
	return &Alert{
		ID:              uuid.NewString(),
		UserID:          userID,
		Enabled:         true,
		SoundEnabled:    true,
		CooldownMinutes: DefaultCooldownMinutes,
		CreatedAt:       time.Now(),
	}
}

// HasCriteria — безусловный алерт отклоняется при создании.
func (a *Alert) HasCriteria() bool {
	return a.HotelName != "" ||
		a.MaxTotalPrice != nil ||
		a.MaxDistance != nil ||
		a.RequireSkywalk ||
		len(a.Areas) > 0 ||
		a.MinNightsAvailable != nil ||
		a.DowntownOnly
}

// HasChannel — хотя бы один канал уведомления должен быть включён.
func (a *Alert) HasChannel() bool {
	return a.SoundEnabled || a.FullScreenEnabled || a.DiscordWatcherID != "" || a.PhoneNumber != ""
}

func (a *Alert) Cooldown() time.Duration {
	if a.CooldownMinutes <= 0 {
		return DefaultCooldownMinutes * time.Minute
	}

	return time.Duration(a.CooldownMinutes) * time.Minute
}

func (a *Alert) InCooldown(now time.Time) bool {
	if a.LastNotifiedAt == nil {
		return false
	}

	return now.Sub(*a.LastNotifiedAt) < a.Cooldown()
}
