package challenge

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further status transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type GoalType string

const (
	GoalTaskCount   GoalType = "task_count"
	GoalTotalXP     GoalType = "total_xp"
	GoalHabitStreak GoalType = "habit_streak"
	GoalCustom      GoalType = "custom"
)

type VerificationType string

const (
	VerificationNone   VerificationType = "none"
	VerificationManual VerificationType = "manual"
	VerificationAI     VerificationType = "ai"
)

type GroupChallenge struct {
	ID                  uuid.UUID        `json:"id" db:"id"`
	CreatorID           uuid.UUID        `json:"creator_id" db:"creator_id"`
	Name                string           `json:"name" db:"name"`
	Description         string           `json:"description" db:"description"`
	Status              Status           `json:"status" db:"status"`
	GoalType            GoalType         `json:"goal_type" db:"goal_type"`
	GoalTarget          int              `json:"goal_target" db:"goal_target"`
	StartDate           time.Time        `json:"start_date" db:"start_date"`
	EndDate             time.Time        `json:"end_date" db:"end_date"`
	CurrentParticipants int              `json:"current_participants" db:"current_participants"`
	XPReward            int              `json:"xp_reward" db:"xp_reward"`
	VerificationType    VerificationType `json:"verification_type" db:"verification_type"`
	InviteCode          string           `json:"invite_code" db:"invite_code"`
	CompletedAt         *time.Time       `json:"completed_at" db:"completed_at"`
	CreatedAt           time.Time        `json:"created_at" db:"created_at"`
}

type ParticipantStatus string

const (
	ParticipantActive     ParticipantStatus = "active"
	ParticipantCompleted  ParticipantStatus = "completed"
	ParticipantDroppedOut ParticipantStatus = "dropped_out"
)

type Participant struct {
	ID                  uuid.UUID         `json:"id" db:"id"`
	ChallengeID         uuid.UUID         `json:"challenge_id" db:"challenge_id"`
	UserID              uuid.UUID         `json:"user_id" db:"user_id"`
	Status              ParticipantStatus `json:"status" db:"status"`
	CurrentProgress     int               `json:"current_progress" db:"current_progress"`
	TotalPoints         int               `json:"total_points" db:"total_points"`
	TotalXPEarned       int               `json:"total_xp_earned" db:"total_xp_earned"`
	CompletedTasksCount int               `json:"completed_tasks_count" db:"completed_tasks_count"`
	StreakDays          int               `json:"streak_days" db:"streak_days"`
	LongestStreak       int               `json:"longest_streak" db:"longest_streak"`
	LastActivityDate    *time.Time        `json:"last_activity_date" db:"last_activity_date"`
	Rank                int               `json:"rank" db:"rank"`
	CompletedAt         *time.Time        `json:"completed_at" db:"completed_at"`
	JoinedAt            time.Time         `json:"joined_at" db:"joined_at"`
}

type Task struct {
	ID             uuid.UUID   `json:"id" db:"id"`
	ChallengeID    uuid.UUID   `json:"challenge_id" db:"challenge_id"`
	Title          string      `json:"title" db:"title"`
	Description    string      `json:"description" db:"description"`
	PointValue     int         `json:"point_value" db:"point_value"`
	XPReward       int         `json:"xp_reward" db:"xp_reward"`
	IsRepeatable   bool        `json:"is_repeatable" db:"is_repeatable"`
	MaxCompletions *int        `json:"max_completions" db:"max_completions"`
	Prerequisites  []uuid.UUID `json:"prerequisites" db:"prerequisites"`
	RequiresProof  bool        `json:"requires_proof" db:"requires_proof"`
	AvailableFrom  *time.Time  `json:"available_from" db:"available_from"`
	AvailableUntil *time.Time  `json:"available_until" db:"available_until"`
	IsActive       bool        `json:"is_active" db:"is_active"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}

type CompletionStatus string

const (
	CompletionPending  CompletionStatus = "pending"
	CompletionApproved CompletionStatus = "approved"
	CompletionRejected CompletionStatus = "rejected"
)

type TaskCompletion struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	ChallengeTaskID  uuid.UUID        `json:"challenge_task_id" db:"challenge_task_id"`
	ParticipantID    uuid.UUID        `json:"participant_id" db:"participant_id"`
	Status           CompletionStatus `json:"status" db:"status"`
	CompletionNumber int              `json:"completion_number" db:"completion_number"`
	ProofText        *string          `json:"proof_text" db:"proof_text"`
	ProofImageURL    *string          `json:"proof_image_url" db:"proof_image_url"`
	IsVerified       bool             `json:"is_verified" db:"is_verified"`
	RejectionReason  *string          `json:"rejection_reason" db:"rejection_reason"`
	CompletedAt      time.Time        `json:"completed_at" db:"completed_at"`
}

// Progress is the per-(participant, day) aggregate kept for charting.
// The participant row stays authoritative; this is an upsert log.
type Progress struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	ParticipantID      uuid.UUID `json:"participant_id" db:"participant_id"`
	Date               time.Time `json:"date" db:"date"`
	ProgressValue      int       `json:"progress_value" db:"progress_value"`
	TasksCompleted     int       `json:"tasks_completed" db:"tasks_completed"`
	XPEarned           int       `json:"xp_earned" db:"xp_earned"`
	PointsEarned       int       `json:"points_earned" db:"points_earned"`
	CumulativeProgress int       `json:"cumulative_progress" db:"cumulative_progress"`
	StreakCount        int       `json:"streak_count" db:"streak_count"`
}

// ProgressDelta is one approved completion's contribution to the daily
// Progress row.
type ProgressDelta struct {
	ProgressValue      int
	TasksCompleted     int
	XPEarned           int
	PointsEarned       int
	CumulativeProgress int
	StreakCount        int
}

type VerificationResult struct {
	Approved bool    `json:"approved"`
	Reason   *string `json:"reason,omitempty"`
}

type CompleteTaskRequest struct {
	ProofText     *string `json:"proof_text,omitempty"`
	ProofImageURL *string `json:"proof_image_url,omitempty"`
}

type VerifyCompletionRequest struct {
	Approved bool    `json:"approved"`
	Reason   *string `json:"reason,omitempty"`
}

type JoinChallengeRequest struct {
	InviteCode string `json:"invite_code,omitempty"`
}

type InviteResponse struct {
	InviteCode   string `json:"invite_code"`
	ShareLink    string `json:"share_link"`
	QrCodeBase64 string `json:"qr_code_base64"`
}
