package models

import "time"

// RoomSnapshot — одно наблюдение скрапера за типом номера в отеле.
// Для ядра уведомлений снапшоты read-only.
type RoomSnapshot struct {
	ID             string    `json:"id"`
	ScrapeRunID    string    `json:"scrapeRunId,omitempty"`
	HotelID        string    `json:"hotelId"`
	RoomType       string    `json:"roomType"`
	AvailableCount int       `json:"availableCount"`
	NightlyRate    float64   `json:"nightlyRate"`
	TotalPrice     float64   `json:"totalPrice"`
	CheckIn        time.Time `json:"checkIn"`
	CheckOut       time.Time `json:"checkOut"`
	Year           int       `json:"year"`

	// Частичная доступность: номер есть не на все ночи запрошенного диапазона.
	PartialAvailability bool `json:"partialAvailability"`
	NightsAvailable     int  `json:"nightsAvailable"`
	TotalNights         int  `json:"totalNights"`

	ScrapedAt time.Time `json:"scrapedAt"`
}

// SnapshotEvent — событие вставки снапшота, которое потребляет ядро.
// Формат повторяет payload триггера match-watchers скрапера.
type SnapshotEvent struct {
	Type     string       `json:"type"`
	Table    string       `json:"table"`
	Snapshot RoomSnapshot `json:"record"`
}

type Hotel struct {
	ID              string     `json:"id"`
	PasskeyHotelID  int64      `json:"passkeyHotelId"`
	Name            string     `json:"name"`
	DistanceFromICC *float64   `json:"distanceFromIcc,omitempty"`
	DistanceUnit    string     `json:"distanceUnit,omitempty"`
	HasSkywalk      bool       `json:"hasSkywalk"`
	Area            string     `json:"area,omitempty"`
	Year            int        `json:"year"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}
