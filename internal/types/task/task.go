package task

import (
	"time"

	"github.com/google/uuid"

	"levelQuestAPI/internal/types/habit"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusDeleted    Status = "deleted"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

type Task struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	UserID       uuid.UUID        `json:"user_id" db:"user_id"`
	Title        string           `json:"title" db:"title"`
	Status       Status           `json:"status" db:"status"`
	DueDate      *time.Time       `json:"due_date" db:"due_date"`
	XPReward     *int             `json:"xp_reward" db:"xp_reward"`
	Priority     Priority         `json:"priority" db:"priority"`
	Difficulty   habit.Difficulty `json:"difficulty" db:"difficulty"`
	IsRecurring  bool             `json:"is_recurring" db:"is_recurring"`
	ParentTaskID *uuid.UUID       `json:"parent_task_id" db:"parent_task_id"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

type Completion struct {
	ID          uuid.UUID `json:"id" db:"id"`
	TaskID      uuid.UUID `json:"task_id" db:"task_id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	XPEarned    int       `json:"xp_earned" db:"xp_earned"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}
