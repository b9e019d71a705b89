package models

import "time"

// Match — единица дедупликации и доставки:
// пара (критерий, снапшот) плюс момент обнаружения.
type Match struct {
	CriteriaID string    `json:"criteriaId"`
	SnapshotID string    `json:"snapshotId"`
	Snapshot   *RoomSnapshot
	Hotel      *Hotel
	FoundAt    time.Time `json:"foundAt"`
}

// Key — ключ дедупликации "criteriaId:snapshotId".
func (m Match) Key() string {
	return m.CriteriaID + ":" + m.SnapshotID
}

// MatchOutcome — терминальное состояние обработки пары из конечного автомата:
// pending -> evaluated -> (deduped-out | cooldown-suppressed | dispatched).
type MatchOutcome string

const (
	OutcomeNoMatch            MatchOutcome = "no-match"
	OutcomeDedupedOut         MatchOutcome = "deduped-out"
	OutcomeCooldownSuppressed MatchOutcome = "cooldown-suppressed"
	OutcomeDailyCapReached    MatchOutcome = "daily-cap-reached"
	OutcomeDispatched         MatchOutcome = "dispatched"
)
