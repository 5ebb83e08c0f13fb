package utils

import (
	"fmt"
	"math"
	"time"

	"levelQuestAPI/internal/types/habit"
	"levelQuestAPI/internal/types/task"
)

// MaxXPPerEvent caps the computed XP of one completion. The cap clamps
// the computed ceiling only; invalid inputs are rejected, never clamped.
const MaxXPPerEvent = 1_000_000

var taskDifficultyXP = map[habit.Difficulty]int{
	habit.DifficultyEasy:    10,
	habit.DifficultyMedium:  25,
	habit.DifficultyHard:    50,
	habit.DifficultyExtreme: 100,
}

var habitDifficultyXP = map[habit.Difficulty]int{
	habit.DifficultyEasy:    5,
	habit.DifficultyMedium:  15,
	habit.DifficultyHard:    30,
	habit.DifficultyExtreme: 60,
}

var priorityFactor = map[task.Priority]float64{
	task.PriorityLow:      0.9,
	task.PriorityMedium:   1.0,
	task.PriorityHigh:     1.2,
	task.PriorityCritical: 1.4,
}

// TaskCompletionXP scores one task completion: base reward (explicit or
// difficulty default), priority factor, then a due-date adjustment of
// 5% per day early (capped +20%) or 5% per day late (capped -30%).
func TaskCompletionXP(xpReward *int, difficulty habit.Difficulty, priority task.Priority, dueDate *time.Time, completedAt time.Time) (int, error) {
	base, err := baseXP(xpReward, difficulty, taskDifficultyXP)
	if err != nil {
		return 0, err
	}

	factor, ok := priorityFactor[priority]
	if !ok {
		return 0, fmt.Errorf("unknown priority %q", priority)
	}

	amount := float64(base) * factor

	if dueDate != nil {
		// Whole days only, so finishing hours before the deadline is
		// still on time rather than a prorated bonus.
		daysEarly := math.Trunc(completedAt.Sub(*dueDate).Hours() / -24)
		adjustment := daysEarly * 0.05
		if adjustment > 0.20 {
			adjustment = 0.20
		}
		if adjustment < -0.30 {
			adjustment = -0.30
		}
		amount *= 1 + adjustment
	}

	return finishXP(amount)
}

// HabitCompletionXP scores one habit completion. currentStreak must be
// the already-updated streak so the bonus reflects this completion.
// Streak bonus is +2% per full 7-day block, capped at +30%; the habit's
// very first completion pays 1.5x; meeting the weekly target-day count
// (counting this completion) pays +15%.
func HabitCompletionXP(xpReward *int, difficulty habit.Difficulty, currentStreak int, firstCompletion bool, weekCompletions, weeklyTarget int) (int, error) {
	base, err := baseXP(xpReward, difficulty, habitDifficultyXP)
	if err != nil {
		return 0, err
	}
	if currentStreak < 0 {
		return 0, fmt.Errorf("negative streak %d", currentStreak)
	}

	streakBonus := float64(currentStreak/7) * 0.02
	if streakBonus > 0.30 {
		streakBonus = 0.30
	}

	amount := float64(base) * (1 + streakBonus)

	if firstCompletion {
		amount *= 1.5
	}

	if weeklyTarget > 0 && weekCompletions >= weeklyTarget {
		amount *= 1.15
	}

	return finishXP(amount)
}

func baseXP(xpReward *int, difficulty habit.Difficulty, defaults map[habit.Difficulty]int) (int, error) {
	if xpReward != nil {
		if *xpReward < 0 || *xpReward > MaxXPPerEvent {
			return 0, fmt.Errorf("xp reward %d out of range", *xpReward)
		}
		return *xpReward, nil
	}
	base, ok := defaults[difficulty]
	if !ok {
		return 0, fmt.Errorf("unknown difficulty %q", difficulty)
	}
	return base, nil
}

func finishXP(amount float64) (int, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return 0, fmt.Errorf("computed invalid xp amount %f", amount)
	}
	xp := int(math.Round(amount))
	if xp > MaxXPPerEvent {
		xp = MaxXPPerEvent
	}
	return xp, nil
}
