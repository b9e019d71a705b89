// Package matcher — чистый предикат соответствия снапшота критериям
// вотчера или алерта. Без побочных эффектов: вызывается на каждый
// снапшот для каждого активного критерия.
package matcher

import (
	"strings"

	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
)

const downtownArea = "downtown"

// MatchesWatcher проверяет снапшот против фильтров вотчера.
// Незаданный фильтр считается выполненным; все заданные должны сойтись.
func MatchesWatcher(snapshot *models.RoomSnapshot, hotel *models.Hotel, w *models.Watcher) bool {
	if w == nil || !w.Active {
		return false
	}

	if snapshot == nil || snapshot.AvailableCount <= 0 {
		return false
	}

	if w.HotelID != "" && w.HotelID != snapshot.HotelID {
		return false
	}

	// Вотчер фильтрует по nightly rate.
	if w.MaxNightlyRate != nil && snapshot.NightlyRate > *w.MaxNightlyRate {
		return false
	}

	if !distanceOK(hotel, w.MaxDistance) {
		return false
	}

	if w.RequireSkywalk && (hotel == nil || !hotel.HasSkywalk) {
		return false
	}

	if w.RoomTypePattern != "" && !containsFold(snapshot.RoomType, w.RoomTypePattern) {
		return false
	}

	return true
}

// MatchesAlert проверяет снапшот против фильтров алерта.
// Частичная доступность по умолчанию исключается: номер на часть ночей
// не должен молча совпасть с алертом на весь диапазон. Порог
// MinNightsAvailable переключает исключение на сравнение по ночам.
func MatchesAlert(snapshot *models.RoomSnapshot, hotel *models.Hotel, a *models.Alert) bool {
	if a == nil || !a.Enabled {
		return false
	}

	if snapshot == nil {
		return false
	}

	if a.MinNightsAvailable != nil {
		if snapshot.PartialAvailability {
			if snapshot.NightsAvailable < *a.MinNightsAvailable {
				return false
			}
		} else if snapshot.AvailableCount <= 0 {
			return false
		}
	} else {
		if snapshot.PartialAvailability || snapshot.AvailableCount <= 0 {
			return false
		}
	}

	if a.HotelName != "" {
		if hotel == nil || !containsFold(hotel.Name, a.HotelName) {
			return false
		}
	}

	// Алерт фильтрует по total price.
	if a.MaxTotalPrice != nil && snapshot.TotalPrice > *a.MaxTotalPrice {
		return false
	}

	if !distanceOK(hotel, a.MaxDistance) {
		return false
	}

	if a.RequireSkywalk && (hotel == nil || !hotel.HasSkywalk) {
		return false
	}

	// Skywalk неявно ограничивает выбор центром, но явный список районов
	// всё равно проверяется, даже если UI не даёт задать оба фильтра сразу.
	if len(a.Areas) > 0 {
		if hotel == nil || !areaIn(hotel.Area, a.Areas) {
			return false
		}
	}

	if a.DowntownOnly {
		if hotel == nil || !strings.EqualFold(hotel.Area, downtownArea) {
			return false
		}
	}

	return true
}

// distanceOK: null-дистанция не проходит заданный числовой фильтр —
// неизмеренный отель не должен выдавать себя за близкий.
func distanceOK(hotel *models.Hotel, maxDistance *float64) bool {
	if maxDistance == nil {
		return true
	}

	if hotel == nil || hotel.DistanceFromICC == nil {
		return false
	}

	return *hotel.DistanceFromICC <= *maxDistance
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func areaIn(area string, areas []string) bool {
	for _, a := range areas {
		if strings.EqualFold(a, area) {
			return true
		}
	}

	return false
}
