package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"levelQuestAPI/internal/apperr"
	"levelQuestAPI/internal/store"
	"levelQuestAPI/internal/types/character"
	"levelQuestAPI/internal/types/task"
	"levelQuestAPI/utils"
)

type TaskService struct {
	store       store.Store
	progression *ProgressionService
	now         func() time.Time
}

func NewTaskService(st store.Store, progression *ProgressionService) *TaskService {
	return &TaskService{store: st, progression: progression, now: time.Now}
}

type TaskCompletionResponse struct {
	Task       *task.Task          `json:"task"`
	Completion *task.Completion    `json:"completion,omitempty"`
	XP         *character.XPResult `json:"xp"`
}

// CompleteTask scores the task, records the completion and awards the
// XP in one transaction. Recurring tasks reset to pending instead of
// staying completed.
func (s *TaskService) CompleteTask(ctx context.Context, clerkID string, taskID uuid.UUID) (*TaskCompletionResponse, error) {
	completedAt := s.now().UTC()

	var resp *TaskCompletionResponse
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		c, err := tx.Characters().GetByClerkID(ctx, clerkID)
		if err != nil {
			return err
		}

		t, err := tx.Tasks().GetByIDForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if t.UserID != c.UserID {
			return apperr.NotFound("task %s not found", taskID)
		}
		switch t.Status {
		case task.StatusCompleted:
			return apperr.Conflict("task is already completed")
		case task.StatusDeleted:
			return apperr.Conflict("task is deleted")
		}

		xp, err := utils.TaskCompletionXP(t.XPReward, t.Difficulty, t.Priority, t.DueDate, completedAt)
		if err != nil {
			return apperr.Wrap(apperr.KindValidation, err, "failed to score task completion")
		}

		completion := &task.Completion{
			ID:          uuid.New(),
			TaskID:      t.ID,
			UserID:      t.UserID,
			XPEarned:    xp,
			CompletedAt: completedAt,
		}
		if err := tx.TaskCompletions().Create(ctx, completion); err != nil {
			return err
		}

		if t.IsRecurring {
			t.Status = task.StatusPending
		} else {
			t.Status = task.StatusCompleted
		}
		if err := tx.Tasks().Update(ctx, t); err != nil {
			return err
		}

		res, err := s.progression.Award(ctx, tx, t.UserID, xp, "task")
		if err != nil {
			return err
		}

		resp = &TaskCompletionResponse{Task: t, Completion: completion, XP: res}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.progression.PublishXPEvents(resp.XP)
	return resp, nil
}

// UncompleteTask deletes the task's most recent completion and removes
// exactly the XP it earned.
func (s *TaskService) UncompleteTask(ctx context.Context, clerkID string, taskID uuid.UUID) (*TaskCompletionResponse, error) {
	var resp *TaskCompletionResponse
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		c, err := tx.Characters().GetByClerkID(ctx, clerkID)
		if err != nil {
			return err
		}

		t, err := tx.Tasks().GetByIDForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if t.UserID != c.UserID {
			return apperr.NotFound("task %s not found", taskID)
		}

		completion, err := tx.TaskCompletions().GetLatestByTask(ctx, taskID)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				return apperr.Conflict("task has no completion to reverse")
			}
			return err
		}
		if err := tx.TaskCompletions().Delete(ctx, completion.ID); err != nil {
			return err
		}

		t.Status = task.StatusPending
		if err := tx.Tasks().Update(ctx, t); err != nil {
			return err
		}

		res, err := s.progression.Remove(ctx, tx, t.UserID, completion.XPEarned, "task")
		if err != nil {
			return err
		}

		resp = &TaskCompletionResponse{Task: t, XP: res}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.progression.PublishXPEvents(resp.XP)
	return resp, nil
}
