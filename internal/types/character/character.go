package character

import (
	"time"

	"github.com/google/uuid"
)

// MaxXPPerEvent caps a single award or removal. Amounts above it are
// rejected, not clamped.
const MaxXPPerEvent = 1_000_000

type Character struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	ClerkID       string    `json:"clerk_id" db:"clerk_id"`
	Username      string    `json:"username" db:"username"`
	CurrentXP     int       `json:"current_xp" db:"current_xp"`
	TotalXP       int       `json:"total_xp" db:"total_xp"`
	Level         int       `json:"level" db:"level"`
	XPToNextLevel int       `json:"xp_to_next_level" db:"xp_to_next_level"`
	RankID        uuid.UUID `json:"rank_id" db:"rank_id"`
	StreakDays    int       `json:"streak_days" db:"streak_days"`
	LongestStreak int       `json:"longest_streak" db:"longest_streak"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

type Rank struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Color     string    `json:"color" db:"color"`
	MinLevel  int       `json:"min_level" db:"min_level"`
	MaxLevel  *int      `json:"max_level" db:"max_level"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// XPResult reports what an award or removal did to a character.
type XPResult struct {
	Character   *Character `json:"character"`
	Amount      int        `json:"amount"`
	Removed     bool       `json:"removed"`
	Source      string     `json:"source"`
	OldLevel    int        `json:"old_level"`
	NewLevel    int        `json:"new_level"`
	LeveledUp   bool       `json:"leveled_up"`
	LeveledDown bool       `json:"leveled_down"`
	OldRank     *Rank      `json:"old_rank,omitempty"`
	NewRank     *Rank      `json:"new_rank,omitempty"`
	RankedUp    bool       `json:"ranked_up"`
	RankedDown  bool       `json:"ranked_down"`
	CurrentXP   int        `json:"current_xp"`
	XPToNext    int        `json:"xp_for_next_level"`
}

type AwardXPRequest struct {
	Amount int    `json:"amount"`
	Source string `json:"source"`
}
