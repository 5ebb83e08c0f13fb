package leaderboard

import "github.com/google/uuid"

// ChallengeEntry is one row of a challenge leaderboard, ordered by
// total points, then completed tasks, then current progress.
type ChallengeEntry struct {
	UserID              uuid.UUID `json:"user_id" db:"user_id"`
	Username            string    `json:"username" db:"username"`
	TotalPoints         int       `json:"total_points" db:"total_points"`
	CompletedTasksCount int       `json:"completed_tasks_count" db:"completed_tasks_count"`
	CurrentProgress     int       `json:"current_progress" db:"current_progress"`
	Rank                int       `json:"rank" db:"rank"`
}

type ChallengeLeaderboard struct {
	Entries           []*ChallengeEntry `json:"entries"`
	UserPosition      *ChallengeEntry   `json:"user_position"`
	TotalParticipants int               `json:"total_participants"`
}

// GlobalEntry is one row of the character leaderboard, ordered by
// level then total XP.
type GlobalEntry struct {
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	Username string    `json:"username" db:"username"`
	Level    int       `json:"level" db:"level"`
	TotalXP  int       `json:"total_xp" db:"total_xp"`
	RankName string    `json:"rank_name" db:"rank_name"`
	Rank     int       `json:"rank" db:"rank"`
}

type GlobalLeaderboard struct {
	Entries      []*GlobalEntry `json:"entries"`
	UserPosition *GlobalEntry   `json:"user_position"`
	TotalUsers   int            `json:"total_users"`
}
