package models

import "time"

type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusFailed    DeliveryStatus = "failed"
	StatusInitiated DeliveryStatus = "initiated"
)

// NotificationRecord — append-only запись о попытке доставки.
// После записи не изменяется.
type NotificationRecord struct {
	ID                string         `json:"id"`
	WatcherID         string         `json:"watcherId,omitempty"`
	UserID            string         `json:"userId,omitempty"`
	RoomSnapshotID    string         `json:"roomSnapshotId"`
	Channel           ChannelKind    `json:"channel"`
	Destination       string         `json:"destination,omitempty"`
	PayloadSummary    string         `json:"payloadSummary,omitempty"`
	Status            DeliveryStatus `json:"status"`
	ProviderMessageID string         `json:"providerMessageId,omitempty"`
	ErrorMessage      string         `json:"errorMessage,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
}

// ChannelResult — итог попытки доставки по одному каналу.
// Ошибка одного канала не влияет на остальные.
type ChannelResult struct {
	Channel           ChannelKind
	Status            DeliveryStatus
	ProviderMessageID string
	Err               error
}

// PhonePermission — выданное администратором разрешение на SMS/звонки
// с дневными квотами; счётчики сбрасываются на границе суток.
type PhonePermission struct {
	UserID         string    `json:"userId"`
	Enabled        bool      `json:"enabled"`
	DailySMSLimit  int       `json:"dailySmsLimit"`
	DailyCallLimit int       `json:"dailyCallLimit"`
	SMSSentToday   int       `json:"smsSentToday"`
	CallsSentToday int       `json:"callsSentToday"`
	LastResetDate  time.Time `json:"lastResetDate"`
}
