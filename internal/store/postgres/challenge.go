package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"levelQuestAPI/internal/apperr"
	"levelQuestAPI/internal/types/challenge"
)

type challengeRepo struct {
	q querier
}

const challengeColumns = `id, creator_id, name, description, status, goal_type, goal_target, start_date, end_date, current_participants, xp_reward, verification_type, invite_code, completed_at, created_at`

func scanChallenge(row pgx.Row) (*challenge.GroupChallenge, error) {
	ch := &challenge.GroupChallenge{}
	err := row.Scan(
		&ch.ID,
		&ch.CreatorID,
		&ch.Name,
		&ch.Description,
		&ch.Status,
		&ch.GoalType,
		&ch.GoalTarget,
		&ch.StartDate,
		&ch.EndDate,
		&ch.CurrentParticipants,
		&ch.XPReward,
		&ch.VerificationType,
		&ch.InviteCode,
		&ch.CompletedAt,
		&ch.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("challenge not found")
		}
		return nil, fmt.Errorf("failed to scan challenge: %w", err)
	}
	return ch, nil
}

func (r *challengeRepo) GetByID(ctx context.Context, id uuid.UUID) (*challenge.GroupChallenge, error) {
	query := fmt.Sprintf(`SELECT %s FROM group_challenges WHERE id = $1`, challengeColumns)
	return scanChallenge(r.q.QueryRow(ctx, query, id))
}

func (r *challengeRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*challenge.GroupChallenge, error) {
	query := fmt.Sprintf(`SELECT %s FROM group_challenges WHERE id = $1 FOR UPDATE`, challengeColumns)
	return scanChallenge(r.q.QueryRow(ctx, query, id))
}

func (r *challengeRepo) GetByInviteCode(ctx context.Context, code string) (*challenge.GroupChallenge, error) {
	query := fmt.Sprintf(`SELECT %s FROM group_challenges WHERE invite_code = $1`, challengeColumns)
	return scanChallenge(r.q.QueryRow(ctx, query, code))
}

func (r *challengeRepo) Update(ctx context.Context, ch *challenge.GroupChallenge) error {
	query := `
	UPDATE group_challenges
	SET status = $2, current_participants = $3, completed_at = $4
	WHERE id = $1
	`
	_, err := r.q.Exec(ctx, query, ch.ID, ch.Status, ch.CurrentParticipants, ch.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to update challenge: %w", err)
	}
	return nil
}

func (r *challengeRepo) ListUnfinalized(ctx context.Context, now time.Time) ([]*challenge.GroupChallenge, error) {
	query := fmt.Sprintf(`
	SELECT %s FROM group_challenges
	WHERE status IN ('upcoming', 'active') AND end_date <= $1
	`, challengeColumns)
	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list unfinalized challenges: %w", err)
	}
	defer rows.Close()

	var challenges []*challenge.GroupChallenge
	for rows.Next() {
		ch, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, ch)
	}
	return challenges, rows.Err()
}

type participantRepo struct {
	q querier
}

const participantColumns = `id, challenge_id, user_id, status, current_progress, total_points, total_xp_earned, completed_tasks_count, streak_days, longest_streak, last_activity_date, rank, completed_at, joined_at`

func scanParticipant(row pgx.Row) (*challenge.Participant, error) {
	p := &challenge.Participant{}
	err := row.Scan(
		&p.ID,
		&p.ChallengeID,
		&p.UserID,
		&p.Status,
		&p.CurrentProgress,
		&p.TotalPoints,
		&p.TotalXPEarned,
		&p.CompletedTasksCount,
		&p.StreakDays,
		&p.LongestStreak,
		&p.LastActivityDate,
		&p.Rank,
		&p.CompletedAt,
		&p.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("participant not found")
		}
		return nil, fmt.Errorf("failed to scan participant: %w", err)
	}
	return p, nil
}

func (r *participantRepo) Create(ctx context.Context, p *challenge.Participant) error {
	query := `
	INSERT INTO challenge_participants (
		id, challenge_id, user_id, status, current_progress, total_points,
		total_xp_earned, completed_tasks_count, streak_days, longest_streak,
		last_activity_date, rank, completed_at, joined_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.ChallengeID, p.UserID, p.Status, p.CurrentProgress, p.TotalPoints,
		p.TotalXPEarned, p.CompletedTasksCount, p.StreakDays, p.LongestStreak,
		p.LastActivityDate, p.Rank, p.CompletedAt, p.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

func (r *participantRepo) Get(ctx context.Context, challengeID, userID uuid.UUID) (*challenge.Participant, error) {
	query := fmt.Sprintf(`SELECT %s FROM challenge_participants WHERE challenge_id = $1 AND user_id = $2`, participantColumns)
	return scanParticipant(r.q.QueryRow(ctx, query, challengeID, userID))
}

func (r *participantRepo) GetForUpdate(ctx context.Context, challengeID, userID uuid.UUID) (*challenge.Participant, error) {
	query := fmt.Sprintf(`SELECT %s FROM challenge_participants WHERE challenge_id = $1 AND user_id = $2 FOR UPDATE`, participantColumns)
	return scanParticipant(r.q.QueryRow(ctx, query, challengeID, userID))
}

func (r *participantRepo) GetByID(ctx context.Context, id uuid.UUID) (*challenge.Participant, error) {
	query := fmt.Sprintf(`SELECT %s FROM challenge_participants WHERE id = $1`, participantColumns)
	return scanParticipant(r.q.QueryRow(ctx, query, id))
}

func (r *participantRepo) Update(ctx context.Context, p *challenge.Participant) error {
	query := `
	UPDATE challenge_participants
	SET status = $2, current_progress = $3, total_points = $4, total_xp_earned = $5,
	    completed_tasks_count = $6, streak_days = $7, longest_streak = $8,
	    last_activity_date = $9, rank = $10, completed_at = $11
	WHERE id = $1
	`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.Status, p.CurrentProgress, p.TotalPoints, p.TotalXPEarned,
		p.CompletedTasksCount, p.StreakDays, p.LongestStreak,
		p.LastActivityDate, p.Rank, p.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}
	return nil
}

func (r *participantRepo) CountActive(ctx context.Context, challengeID uuid.UUID) (int, error) {
	var count int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM challenge_participants WHERE challenge_id = $1 AND status = 'active'`,
		challengeID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active participants: %w", err)
	}
	return count, nil
}

type challengeTaskRepo struct {
	q querier
}

func (r *challengeTaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*challenge.Task, error) {
	query := `
	SELECT id, challenge_id, title, description, point_value, xp_reward,
	       is_repeatable, max_completions, prerequisites, requires_proof,
	       available_from, available_until, is_active, created_at
	FROM challenge_tasks
	WHERE id = $1
	`
	t := &challenge.Task{}
	err := r.q.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.ChallengeID,
		&t.Title,
		&t.Description,
		&t.PointValue,
		&t.XPReward,
		&t.IsRepeatable,
		&t.MaxCompletions,
		&t.Prerequisites,
		&t.RequiresProof,
		&t.AvailableFrom,
		&t.AvailableUntil,
		&t.IsActive,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("challenge task %s not found", id)
		}
		return nil, fmt.Errorf("failed to get challenge task: %w", err)
	}
	return t, nil
}

type challengeTaskCompletionRepo struct {
	q querier
}

const completionColumns = `id, challenge_task_id, participant_id, status, completion_number, proof_text, proof_image_url, is_verified, rejection_reason, completed_at`

func scanTaskCompletion(row pgx.Row) (*challenge.TaskCompletion, error) {
	c := &challenge.TaskCompletion{}
	err := row.Scan(
		&c.ID,
		&c.ChallengeTaskID,
		&c.ParticipantID,
		&c.Status,
		&c.CompletionNumber,
		&c.ProofText,
		&c.ProofImageURL,
		&c.IsVerified,
		&c.RejectionReason,
		&c.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("challenge task completion not found")
		}
		return nil, fmt.Errorf("failed to scan challenge task completion: %w", err)
	}
	return c, nil
}

func (r *challengeTaskCompletionRepo) Create(ctx context.Context, c *challenge.TaskCompletion) error {
	query := `
	INSERT INTO challenge_task_completions (
		id, challenge_task_id, participant_id, status, completion_number,
		proof_text, proof_image_url, is_verified, rejection_reason, completed_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.ChallengeTaskID, c.ParticipantID, c.Status, c.CompletionNumber,
		c.ProofText, c.ProofImageURL, c.IsVerified, c.RejectionReason, c.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create challenge task completion: %w", err)
	}
	return nil
}

func (r *challengeTaskCompletionRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*challenge.TaskCompletion, error) {
	query := fmt.Sprintf(`SELECT %s FROM challenge_task_completions WHERE id = $1 FOR UPDATE`, completionColumns)
	return scanTaskCompletion(r.q.QueryRow(ctx, query, id))
}

func (r *challengeTaskCompletionRepo) Update(ctx context.Context, c *challenge.TaskCompletion) error {
	query := `
	UPDATE challenge_task_completions
	SET status = $2, is_verified = $3, rejection_reason = $4
	WHERE id = $1
	`
	_, err := r.q.Exec(ctx, query, c.ID, c.Status, c.IsVerified, c.RejectionReason)
	if err != nil {
		return fmt.Errorf("failed to update challenge task completion: %w", err)
	}
	return nil
}

func (r *challengeTaskCompletionRepo) CountNonRejected(ctx context.Context, taskID, participantID uuid.UUID) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM challenge_task_completions
		WHERE challenge_task_id = $1 AND participant_id = $2 AND status != 'rejected'
	`, taskID, participantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}
	return count, nil
}

func (r *challengeTaskCompletionRepo) Count(ctx context.Context, taskID, participantID uuid.UUID) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM challenge_task_completions
		WHERE challenge_task_id = $1 AND participant_id = $2
	`, taskID, participantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}
	return count, nil
}

func (r *challengeTaskCompletionRepo) HasApproved(ctx context.Context, taskID, participantID uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM challenge_task_completions
			WHERE challenge_task_id = $1 AND participant_id = $2 AND status = 'approved'
		)
	`, taskID, participantID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check approved completion: %w", err)
	}
	return exists, nil
}

type challengeProgressRepo struct {
	q querier
}

func (r *challengeProgressRepo) AddDaily(ctx context.Context, participantID uuid.UUID, date time.Time, delta challenge.ProgressDelta) error {
	query := `
	INSERT INTO challenge_progress (
		id, participant_id, date, progress_value, tasks_completed,
		xp_earned, points_earned, cumulative_progress, streak_count
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (participant_id, date)
	DO UPDATE SET
		progress_value = challenge_progress.progress_value + $4,
		tasks_completed = challenge_progress.tasks_completed + $5,
		xp_earned = challenge_progress.xp_earned + $6,
		points_earned = challenge_progress.points_earned + $7,
		cumulative_progress = $8,
		streak_count = $9
	`
	_, err := r.q.Exec(ctx, query,
		uuid.New(), participantID, date,
		delta.ProgressValue, delta.TasksCompleted, delta.XPEarned,
		delta.PointsEarned, delta.CumulativeProgress, delta.StreakCount,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert challenge progress: %w", err)
	}
	return nil
}
