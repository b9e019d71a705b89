package dispatch

import (
	"fmt"
	"strings"

	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
)

const dateLayout = "Mon, Jan 2"

// Summary — короткая строка для журнала уведомлений и SMS.
// Тексты для получателей намеренно на английском.
func Summary(match *models.Match) string {
	snapshot := match.Snapshot

	var b strings.Builder

	fmt.Fprintf(&b, "%s: %s", hotelName(match), snapshot.RoomType)
	fmt.Fprintf(&b, ", $%.0f/night ($%.0f total)", snapshot.NightlyRate, snapshot.TotalPrice)
	fmt.Fprintf(&b, ", %s - %s", snapshot.CheckIn.Format(dateLayout), snapshot.CheckOut.Format(dateLayout))

	if snapshot.PartialAvailability {
		fmt.Fprintf(&b, " (%d of %d nights)", snapshot.NightsAvailable, snapshot.TotalNights)
	}

	return b.String()
}

// SMSBody строит тело SMS. Провайдеры режут длинные сообщения на сегменты,
// поэтому текст сжат до одного сегмента.
func SMSBody(match *models.Match, customBody string) string {
	if customBody != "" {
		return customBody
	}

	return "Hotel room found! " + Summary(match)
}

// CallScript — текст, который синтезатор зачитывает при звонке.
func CallScript(match *models.Match) string {
	snapshot := match.Snapshot

	script := fmt.Sprintf(
		"A hotel room matching your alert is available. %s, %s, %.0f dollars per night.",
		hotelName(match), snapshot.RoomType, snapshot.NightlyRate)

	return script + " Check your booking portal now. Goodbye."
}

func hotelName(match *models.Match) string {
	if match.Hotel != nil && match.Hotel.Name != "" {
		return match.Hotel.Name
	}

	return "Unknown hotel"
}

func distanceLine(hotel *models.Hotel) string {
	if hotel == nil || hotel.DistanceFromICC == nil {
		return "unknown"
	}

	unit := hotel.DistanceUnit
	if unit == "" {
		unit = "blocks"
	}

	line := fmt.Sprintf("%.1f %s", *hotel.DistanceFromICC, unit)

	if hotel.HasSkywalk {
		line += " (skywalk)"
	}

	return line
}
