package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"levelQuestAPI/internal/apperr"
	"levelQuestAPI/internal/store"
	"levelQuestAPI/internal/types/character"
	"levelQuestAPI/internal/types/event"
	"levelQuestAPI/internal/types/habit"
	"levelQuestAPI/utils"
)

var streakMilestones = map[int]bool{7: true, 30: true, 100: true}

type HabitService struct {
	store       store.Store
	progression *ProgressionService
	publisher   EventPublisher
	now         func() time.Time
}

func NewHabitService(st store.Store, progression *ProgressionService, publisher EventPublisher) *HabitService {
	return &HabitService{
		store:       st,
		progression: progression,
		publisher:   publisher,
		now:         time.Now,
	}
}

type HabitCompletionResponse struct {
	Habit      *habit.Habit        `json:"habit"`
	Completion *habit.Completion   `json:"completion,omitempty"`
	XP         *character.XPResult `json:"xp"`
}

// CompleteHabit records a completion for the given day (default today),
// advances the streak, scores XP and awards it, all in one transaction.
func (s *HabitService) CompleteHabit(ctx context.Context, clerkID string, habitID uuid.UUID, date *time.Time) (*HabitCompletionResponse, error) {
	now := s.now().UTC()
	day := utils.DateOnly(now)
	if date != nil {
		day = utils.DateOnly(*date)
	}
	if day.After(utils.DateOnly(now)) {
		return nil, apperr.Validation("cannot complete a habit in the future")
	}

	var resp *HabitCompletionResponse
	var milestone int

	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		c, err := tx.Characters().GetByClerkID(ctx, clerkID)
		if err != nil {
			return err
		}

		h, err := tx.Habits().GetByIDForUpdate(ctx, habitID)
		if err != nil {
			return err
		}
		if h.UserID != c.UserID {
			return apperr.NotFound("habit %s not found", habitID)
		}
		if !h.IsActive {
			return apperr.Conflict("habit is not active")
		}

		if existing, err := tx.HabitCompletions().GetByHabitAndDate(ctx, habitID, day); err == nil && existing != nil {
			return apperr.Conflict("habit already completed on %s", day.Format("2006-01-02"))
		} else if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
			return err
		}

		firstCompletion := h.TotalCompletions == 0

		// Backdated completions cannot use the simple advance rule, so
		// they rebuild the streak from the full history.
		if h.LastCompletedDate != nil && day.Before(utils.DateOnly(*h.LastCompletedDate)) {
			dates, err := tx.HabitCompletions().ListDates(ctx, habitID)
			if err != nil {
				return err
			}
			dates = append(dates, day)
			h.CurrentStreak, _ = utils.RecomputeStreak(dates, now)
			// Last completed date keeps the newest completion.
		} else {
			h.CurrentStreak = utils.AdvanceStreak(h.CurrentStreak, h.LastCompletedDate, day)
			h.LastCompletedDate = &day
		}
		if h.CurrentStreak > h.LongestStreak {
			h.LongestStreak = h.CurrentStreak
		}
		h.TotalCompletions++

		weekStart := startOfWeek(day)
		weekCount, err := tx.HabitCompletions().CountInRange(ctx, habitID, weekStart, weekStart.AddDate(0, 0, 6))
		if err != nil {
			return err
		}

		// The completion being recorded counts toward the week's target.
		xp, err := utils.HabitCompletionXP(h.XPReward, h.Difficulty, h.CurrentStreak, firstCompletion, weekCount+1, h.TargetDaysPerWeek)
		if err != nil {
			return apperr.Wrap(apperr.KindValidation, err, "failed to score habit completion")
		}

		completion := &habit.Completion{
			ID:                 uuid.New(),
			HabitID:            h.ID,
			UserID:             h.UserID,
			Date:               day,
			XPEarned:           xp,
			StreakAtCompletion: h.CurrentStreak,
		}
		if err := tx.HabitCompletions().Create(ctx, completion); err != nil {
			return err
		}
		if err := tx.Habits().Update(ctx, h); err != nil {
			return err
		}

		res, err := s.progression.Award(ctx, tx, h.UserID, xp, "habit")
		if err != nil {
			return err
		}

		if streakMilestones[h.CurrentStreak] {
			milestone = h.CurrentStreak
		}
		resp = &HabitCompletionResponse{Habit: h, Completion: completion, XP: res}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.progression.PublishXPEvents(resp.XP)
	if milestone > 0 && s.publisher != nil {
		s.publisher.Publish(&event.Event{
			Type:   event.TypeStreakMilestone,
			UserID: resp.Habit.UserID,
			Data: map[string]any{
				"streak":         resp.Habit.CurrentStreak,
				"longest_streak": resp.Habit.LongestStreak,
			},
			OccurredAt: now,
		})
	}
	return resp, nil
}

// UncompleteHabit removes the completion for the given day, rebuilds
// the streak from the remaining history and reverses the XP that
// completion earned. The longest streak is never reduced.
func (s *HabitService) UncompleteHabit(ctx context.Context, clerkID string, habitID uuid.UUID, date time.Time) (*HabitCompletionResponse, error) {
	now := s.now().UTC()
	day := utils.DateOnly(date)

	var resp *HabitCompletionResponse
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		c, err := tx.Characters().GetByClerkID(ctx, clerkID)
		if err != nil {
			return err
		}

		h, err := tx.Habits().GetByIDForUpdate(ctx, habitID)
		if err != nil {
			return err
		}
		if h.UserID != c.UserID {
			return apperr.NotFound("habit %s not found", habitID)
		}

		completion, err := tx.HabitCompletions().GetByHabitAndDate(ctx, habitID, day)
		if err != nil {
			return err
		}
		if err := tx.HabitCompletions().Delete(ctx, completion.ID); err != nil {
			return err
		}

		remaining, err := tx.HabitCompletions().ListDates(ctx, habitID)
		if err != nil {
			return err
		}
		h.CurrentStreak, h.LastCompletedDate = utils.RecomputeStreak(remaining, now)
		if h.TotalCompletions > 0 {
			h.TotalCompletions--
		}
		if err := tx.Habits().Update(ctx, h); err != nil {
			return err
		}

		res, err := s.progression.Remove(ctx, tx, h.UserID, completion.XPEarned, "habit")
		if err != nil {
			return err
		}

		resp = &HabitCompletionResponse{Habit: h, XP: res}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.progression.PublishXPEvents(resp.XP)
	return resp, nil
}

// startOfWeek returns the Monday of day's week.
func startOfWeek(day time.Time) time.Time {
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return day.AddDate(0, 0, -(weekday - 1))
}
