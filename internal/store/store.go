// Package store defines the typed repository contracts the progression
// engine needs from persistence, plus the unit-of-work boundary every
// write path runs inside.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"levelQuestAPI/internal/types/challenge"
	"levelQuestAPI/internal/types/character"
	"levelQuestAPI/internal/types/habit"
	"levelQuestAPI/internal/types/leaderboard"
	"levelQuestAPI/internal/types/task"
)

type CharacterRepo interface {
	GetByClerkID(ctx context.Context, clerkID string) (*character.Character, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*character.Character, error)
	// GetByUserIDForUpdate locks the character row for the remainder of
	// the transaction. Concurrent completions by the same user serialize
	// on this lock.
	GetByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*character.Character, error)
	Update(ctx context.Context, c *character.Character) error
}

type RankRepo interface {
	// List returns all ranks ordered by min_level ascending.
	List(ctx context.Context) ([]*character.Rank, error)
}

type HabitRepo interface {
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*habit.Habit, error)
	Update(ctx context.Context, h *habit.Habit) error
}

type HabitCompletionRepo interface {
	Create(ctx context.Context, c *habit.Completion) error
	GetByHabitAndDate(ctx context.Context, habitID uuid.UUID, date time.Time) (*habit.Completion, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// ListDates returns the habit's completion days, newest first.
	ListDates(ctx context.Context, habitID uuid.UUID) ([]time.Time, error)
	CountInRange(ctx context.Context, habitID uuid.UUID, from, to time.Time) (int, error)
}

type TaskRepo interface {
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*task.Task, error)
	Update(ctx context.Context, t *task.Task) error
}

type TaskCompletionRepo interface {
	Create(ctx context.Context, c *task.Completion) error
	GetLatestByTask(ctx context.Context, taskID uuid.UUID) (*task.Completion, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ChallengeRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*challenge.GroupChallenge, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*challenge.GroupChallenge, error)
	GetByInviteCode(ctx context.Context, code string) (*challenge.GroupChallenge, error)
	Update(ctx context.Context, ch *challenge.GroupChallenge) error
	// ListUnfinalized returns non-terminal challenges whose end date has
	// passed, for the background finalizer scan.
	ListUnfinalized(ctx context.Context, now time.Time) ([]*challenge.GroupChallenge, error)
}

type ParticipantRepo interface {
	Create(ctx context.Context, p *challenge.Participant) error
	Get(ctx context.Context, challengeID, userID uuid.UUID) (*challenge.Participant, error)
	GetForUpdate(ctx context.Context, challengeID, userID uuid.UUID) (*challenge.Participant, error)
	GetByID(ctx context.Context, id uuid.UUID) (*challenge.Participant, error)
	Update(ctx context.Context, p *challenge.Participant) error
	CountActive(ctx context.Context, challengeID uuid.UUID) (int, error)
}

type ChallengeTaskRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*challenge.Task, error)
}

type ChallengeTaskCompletionRepo interface {
	Create(ctx context.Context, c *challenge.TaskCompletion) error
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*challenge.TaskCompletion, error)
	Update(ctx context.Context, c *challenge.TaskCompletion) error
	// CountNonRejected counts a participant's approved plus pending
	// completions of one task.
	CountNonRejected(ctx context.Context, taskID, participantID uuid.UUID) (int, error)
	Count(ctx context.Context, taskID, participantID uuid.UUID) (int, error)
	HasApproved(ctx context.Context, taskID, participantID uuid.UUID) (bool, error)
}

type ChallengeProgressRepo interface {
	// AddDaily upserts the (participant, date) aggregate row,
	// incrementing its counters by the delta.
	AddDaily(ctx context.Context, participantID uuid.UUID, date time.Time, delta challenge.ProgressDelta) error
}

type LeaderboardRepo interface {
	ChallengeTop(ctx context.Context, challengeID uuid.UUID, limit, offset int) ([]*leaderboard.ChallengeEntry, error)
	// ChallengeRank computes one participant's rank with the same
	// three-key comparison the paged list orders by.
	ChallengeRank(ctx context.Context, challengeID, userID uuid.UUID) (*leaderboard.ChallengeEntry, error)
	ChallengeParticipantCount(ctx context.Context, challengeID uuid.UUID) (int, error)
	GlobalTop(ctx context.Context, limit, offset int) ([]*leaderboard.GlobalEntry, error)
	GlobalRank(ctx context.Context, userID uuid.UUID) (*leaderboard.GlobalEntry, error)
	GlobalCount(ctx context.Context) (int, error)
}

// Tx is the repository view available inside one unit of work.
type Tx interface {
	Characters() CharacterRepo
	Ranks() RankRepo
	Habits() HabitRepo
	HabitCompletions() HabitCompletionRepo
	Tasks() TaskRepo
	TaskCompletions() TaskCompletionRepo
	Challenges() ChallengeRepo
	Participants() ParticipantRepo
	ChallengeTasks() ChallengeTaskRepo
	ChallengeTaskCompletions() ChallengeTaskCompletionRepo
	ChallengeProgress() ChallengeProgressRepo
}

// Store is the root persistence handle. Reads outside a transaction go
// through the embedded Tx view; WithinTx runs fn in one transaction and
// rolls every mutation back if fn returns an error.
type Store interface {
	Tx
	Leaderboards() LeaderboardRepo
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
