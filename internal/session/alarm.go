package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/central-university-dev/go-RoomWatcher/internal/common/metrics"
)

// Beeper — один звуковой сигнал. Реализация зависит от окружения сессии.
type Beeper interface {
	Beep()
}

// AlarmService — повторяющийся звуковой сигнал до явной остановки.
// Повторный Start при активной тревоге — no-op: вторая горутина не
// запускается, сигнал не ускоряется.
type AlarmService struct {
	beeper   Beeper
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	stop   chan struct{}
	active bool
}

func NewAlarmService(beeper Beeper, interval time.Duration, logger *slog.Logger) *AlarmService {
	return &AlarmService{
		beeper:   beeper,
		interval: interval,
		logger:   logger,
	}
}

func (a *AlarmService) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active {
		return
	}

	a.active = true
	a.stop = make(chan struct{})

	metrics.SessionAlarmsStarted.Inc()

	a.logger.Info("Запуск звуковой тревоги",
		"interval", a.interval.String(),
	)

	// Первый сигнал сразу, дальше по тикеру.
	a.beeper.Beep()

	go a.loop(a.stop)
}

func (a *AlarmService) loop(stop chan struct{}) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.beeper.Beep()
		case <-stop:
			return
		}
	}
}

func (a *AlarmService) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.active {
		return
	}

	a.active = false
	close(a.stop)

	a.logger.Info("Остановка звуковой тревоги")
}

func (a *AlarmService) IsActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.active
}
