package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"levelQuestAPI/internal/apperr"
	"levelQuestAPI/internal/types/task"
)

type taskRepo struct {
	q querier
}

func (r *taskRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	query := `
	SELECT id, user_id, title, status, due_date, xp_reward, priority, difficulty,
	       is_recurring, parent_task_id, created_at, updated_at
	FROM tasks
	WHERE id = $1
	FOR UPDATE
	`
	t := &task.Task{}
	err := r.q.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Status,
		&t.DueDate,
		&t.XPReward,
		&t.Priority,
		&t.Difficulty,
		&t.IsRecurring,
		&t.ParentTaskID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("task %s not found", id)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

func (r *taskRepo) Update(ctx context.Context, t *task.Task) error {
	query := `
	UPDATE tasks
	SET status = $2, updated_at = NOW()
	WHERE id = $1
	`
	_, err := r.q.Exec(ctx, query, t.ID, t.Status)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

type taskCompletionRepo struct {
	q querier
}

func (r *taskCompletionRepo) Create(ctx context.Context, c *task.Completion) error {
	query := `
	INSERT INTO task_completions (id, task_id, user_id, xp_earned, completed_at)
	VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.q.Exec(ctx, query, c.ID, c.TaskID, c.UserID, c.XPEarned, c.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to create task completion: %w", err)
	}
	return nil
}

func (r *taskCompletionRepo) GetLatestByTask(ctx context.Context, taskID uuid.UUID) (*task.Completion, error) {
	query := `
	SELECT id, task_id, user_id, xp_earned, completed_at
	FROM task_completions
	WHERE task_id = $1
	ORDER BY completed_at DESC
	LIMIT 1
	`
	c := &task.Completion{}
	err := r.q.QueryRow(ctx, query, taskID).Scan(
		&c.ID, &c.TaskID, &c.UserID, &c.XPEarned, &c.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("no completions for task %s", taskID)
		}
		return nil, fmt.Errorf("failed to get task completion: %w", err)
	}
	return c, nil
}

func (r *taskCompletionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM task_completions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task completion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("task completion %s not found", id)
	}
	return nil
}
