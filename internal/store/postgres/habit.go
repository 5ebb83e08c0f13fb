package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"levelQuestAPI/internal/apperr"
	"levelQuestAPI/internal/types/habit"
)

type habitRepo struct {
	q querier
}

func (r *habitRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*habit.Habit, error) {
	query := `
	SELECT id, user_id, name, difficulty, xp_reward, target_days_per_week,
	       current_streak, longest_streak, total_completions, last_completed_date,
	       is_active, created_at, updated_at
	FROM habits
	WHERE id = $1
	FOR UPDATE
	`
	h := &habit.Habit{}
	err := r.q.QueryRow(ctx, query, id).Scan(
		&h.ID,
		&h.UserID,
		&h.Name,
		&h.Difficulty,
		&h.XPReward,
		&h.TargetDaysPerWeek,
		&h.CurrentStreak,
		&h.LongestStreak,
		&h.TotalCompletions,
		&h.LastCompletedDate,
		&h.IsActive,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("habit %s not found", id)
		}
		return nil, fmt.Errorf("failed to get habit: %w", err)
	}
	return h, nil
}

func (r *habitRepo) Update(ctx context.Context, h *habit.Habit) error {
	query := `
	UPDATE habits
	SET current_streak = $2, longest_streak = $3, total_completions = $4,
	    last_completed_date = $5, updated_at = NOW()
	WHERE id = $1
	`
	_, err := r.q.Exec(ctx, query,
		h.ID, h.CurrentStreak, h.LongestStreak, h.TotalCompletions, h.LastCompletedDate,
	)
	if err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
	}
	return nil
}

type habitCompletionRepo struct {
	q querier
}

func (r *habitCompletionRepo) Create(ctx context.Context, c *habit.Completion) error {
	query := `
	INSERT INTO habit_completions (id, habit_id, user_id, date, xp_earned, streak_at_completion, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.HabitID, c.UserID, c.Date, c.XPEarned, c.StreakAtCompletion,
	)
	if err != nil {
		return fmt.Errorf("failed to create habit completion: %w", err)
	}
	return nil
}

func (r *habitCompletionRepo) GetByHabitAndDate(ctx context.Context, habitID uuid.UUID, date time.Time) (*habit.Completion, error) {
	query := `
	SELECT id, habit_id, user_id, date, xp_earned, streak_at_completion, created_at
	FROM habit_completions
	WHERE habit_id = $1 AND date = $2
	`
	c := &habit.Completion{}
	err := r.q.QueryRow(ctx, query, habitID, date).Scan(
		&c.ID, &c.HabitID, &c.UserID, &c.Date, &c.XPEarned, &c.StreakAtCompletion, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("no completion for habit %s on %s", habitID, date.Format("2006-01-02"))
		}
		return nil, fmt.Errorf("failed to get habit completion: %w", err)
	}
	return c, nil
}

func (r *habitCompletionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM habit_completions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete habit completion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("habit completion %s not found", id)
	}
	return nil
}

func (r *habitCompletionRepo) ListDates(ctx context.Context, habitID uuid.UUID) ([]time.Time, error) {
	query := `
	SELECT date FROM habit_completions
	WHERE habit_id = $1
	ORDER BY date DESC
	`
	rows, err := r.q.Query(ctx, query, habitID)
	if err != nil {
		return nil, fmt.Errorf("failed to list habit completion dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan completion date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (r *habitCompletionRepo) CountInRange(ctx context.Context, habitID uuid.UUID, from, to time.Time) (int, error) {
	query := `
	SELECT COUNT(*) FROM habit_completions
	WHERE habit_id = $1 AND date >= $2 AND date <= $3
	`
	var count int
	if err := r.q.QueryRow(ctx, query, habitID, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count habit completions: %w", err)
	}
	return count, nil
}
