package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeProgressUpdate  Type = "progress_update"
	TypeLevelUp         Type = "level_up"
	TypeRankUp          Type = "rank_up"
	TypeStreakMilestone Type = "streak_milestone"
)

// Event is a domain event emitted after the owning transaction commits.
// Delivery failures never roll the transaction back.
type Event struct {
	Type       Type           `json:"type"`
	UserID     uuid.UUID      `json:"user_id"`
	Data       map[string]any `json:"data"`
	OccurredAt time.Time      `json:"occurred_at"`
}
