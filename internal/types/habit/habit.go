package habit

import (
	"time"

	"github.com/google/uuid"
)

type Difficulty string

const (
	DifficultyEasy    Difficulty = "easy"
	DifficultyMedium  Difficulty = "medium"
	DifficultyHard    Difficulty = "hard"
	DifficultyExtreme Difficulty = "extreme"
)

type Habit struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	UserID            uuid.UUID  `json:"user_id" db:"user_id"`
	Name              string     `json:"name" db:"name"`
	Difficulty        Difficulty `json:"difficulty" db:"difficulty"`
	XPReward          *int       `json:"xp_reward" db:"xp_reward"`
	TargetDaysPerWeek int        `json:"target_days_per_week" db:"target_days_per_week"`
	CurrentStreak     int        `json:"current_streak" db:"current_streak"`
	LongestStreak     int        `json:"longest_streak" db:"longest_streak"`
	TotalCompletions  int        `json:"total_completions" db:"total_completions"`
	LastCompletedDate *time.Time `json:"last_completed_date" db:"last_completed_date"`
	IsActive          bool       `json:"is_active" db:"is_active"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// Completion is one row per day the habit was completed. XPEarned and
// StreakAtCompletion are an immutable audit of what the completion paid
// out, used to reverse it exactly on uncomplete.
type Completion struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	HabitID            uuid.UUID `json:"habit_id" db:"habit_id"`
	UserID             uuid.UUID `json:"user_id" db:"user_id"`
	Date               time.Time `json:"date" db:"date"`
	XPEarned           int       `json:"xp_earned" db:"xp_earned"`
	StreakAtCompletion int       `json:"streak_at_completion" db:"streak_at_completion"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

type CompleteHabitRequest struct {
	Date *time.Time `json:"date,omitempty"`
}
