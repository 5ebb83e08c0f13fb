package services

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"levelQuestAPI/internal/apperr"
	"levelQuestAPI/internal/store"
	"levelQuestAPI/internal/types/character"
	"levelQuestAPI/internal/types/event"
)

// EventPublisher receives domain events after the owning transaction
// commits. Publishing is fire-and-forget; delivery failure never rolls
// anything back.
type EventPublisher interface {
	Publish(e *event.Event)
}

type ProgressionService struct {
	store     store.Store
	publisher EventPublisher
}

func NewProgressionService(st store.Store, publisher EventPublisher) *ProgressionService {
	return &ProgressionService{store: st, publisher: publisher}
}

// XPToNextLevel is the only level-threshold formula: level 1→2 costs
// 100 XP, growing ~15% per level.
func XPToNextLevel(level int) int {
	return int(math.Round(100 * math.Pow(1.15, float64(level-1))))
}

func validateXPAmount(amount int) error {
	if amount < 0 {
		return apperr.Validation("xp amount must be non-negative, got %d", amount)
	}
	if amount > character.MaxXPPerEvent {
		return apperr.Validation("xp amount %d exceeds per-event cap %d", amount, character.MaxXPPerEvent)
	}
	return nil
}

// sanitizeCharacter repairs corrupted stored numerics before use. This
// is defensive recovery only; it never bypasses validation.
func sanitizeCharacter(c *character.Character) {
	if c.Level < 1 {
		log.Printf("Progression: sanitizing character %s level %d -> 1", c.ID, c.Level)
		c.Level = 1
	}
	if c.CurrentXP < 0 {
		log.Printf("Progression: sanitizing character %s negative current_xp %d", c.ID, c.CurrentXP)
		c.CurrentXP = 0
	}
	if c.TotalXP < 0 {
		log.Printf("Progression: sanitizing character %s negative total_xp %d", c.ID, c.TotalXP)
		c.TotalXP = 0
	}
	c.XPToNextLevel = XPToNextLevel(c.Level)
}

// rankForLevel returns the highest rank whose min_level is at or below
// level. ranks must be sorted by min_level ascending.
func rankForLevel(ranks []*character.Rank, level int) *character.Rank {
	var best *character.Rank
	for _, r := range ranks {
		if r.MinLevel <= level {
			best = r
		}
	}
	return best
}

func applyAward(c *character.Character, amount int, ranks []*character.Rank) *character.XPResult {
	res := &character.XPResult{Character: c, Amount: amount, OldLevel: c.Level}

	c.CurrentXP += amount
	c.TotalXP += amount

	for c.CurrentXP >= c.XPToNextLevel {
		c.CurrentXP -= c.XPToNextLevel
		c.Level++
		c.XPToNextLevel = XPToNextLevel(c.Level)
	}

	res.NewLevel = c.Level
	res.LeveledUp = c.Level > res.OldLevel
	resolveRank(c, ranks, res)
	res.CurrentXP = c.CurrentXP
	res.XPToNext = c.XPToNextLevel
	return res
}

func applyRemove(c *character.Character, amount int, ranks []*character.Rank) *character.XPResult {
	res := &character.XPResult{Character: c, Amount: amount, OldLevel: c.Level}

	c.CurrentXP -= amount
	if amount > c.TotalXP {
		c.TotalXP = 0
	} else {
		c.TotalXP -= amount
	}

	for c.CurrentXP < 0 && c.Level > 1 {
		c.Level--
		c.XPToNextLevel = XPToNextLevel(c.Level)
		c.CurrentXP += c.XPToNextLevel
	}
	if c.CurrentXP < 0 {
		c.CurrentXP = 0
	}

	res.NewLevel = c.Level
	res.LeveledDown = c.Level < res.OldLevel
	resolveRank(c, ranks, res)
	res.CurrentXP = c.CurrentXP
	res.XPToNext = c.XPToNextLevel
	return res
}

func resolveRank(c *character.Character, ranks []*character.Rank, res *character.XPResult) {
	newRank := rankForLevel(ranks, c.Level)
	if newRank == nil {
		return
	}
	for _, r := range ranks {
		if r.ID == c.RankID {
			res.OldRank = r
			break
		}
	}
	res.NewRank = newRank
	if newRank.ID != c.RankID {
		if res.OldRank == nil || newRank.MinLevel > res.OldRank.MinLevel {
			res.RankedUp = true
		} else {
			res.RankedDown = true
		}
		c.RankID = newRank.ID
	}
}

// Award applies amount to the character inside the caller's unit of
// work. The character row is locked until the transaction ends, which
// serializes concurrent completions by the same user.
func (s *ProgressionService) Award(ctx context.Context, tx store.Tx, userID uuid.UUID, amount int, source string) (*character.XPResult, error) {
	if err := validateXPAmount(amount); err != nil {
		return nil, err
	}

	c, err := tx.Characters().GetByUserIDForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	sanitizeCharacter(c)

	ranks, err := tx.Ranks().List(ctx)
	if err != nil {
		return nil, err
	}

	res := applyAward(c, amount, ranks)
	res.Source = source

	if err := tx.Characters().Update(ctx, c); err != nil {
		return nil, err
	}
	return res, nil
}

// Remove reverses an award. Removing the exact amount of the previous
// award with no intervening change restores level, current XP, total
// XP and rank exactly.
func (s *ProgressionService) Remove(ctx context.Context, tx store.Tx, userID uuid.UUID, amount int, source string) (*character.XPResult, error) {
	if err := validateXPAmount(amount); err != nil {
		return nil, err
	}

	c, err := tx.Characters().GetByUserIDForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	sanitizeCharacter(c)

	ranks, err := tx.Ranks().List(ctx)
	if err != nil {
		return nil, err
	}

	res := applyRemove(c, amount, ranks)
	res.Removed = true
	res.Source = source

	if err := tx.Characters().Update(ctx, c); err != nil {
		return nil, err
	}
	return res, nil
}

// AwardXP is the standalone entry point for callers outside another
// unit of work.
func (s *ProgressionService) AwardXP(ctx context.Context, clerkID string, amount int, source string) (*character.XPResult, error) {
	var res *character.XPResult
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		c, err := tx.Characters().GetByClerkID(ctx, clerkID)
		if err != nil {
			return err
		}
		res, err = s.Award(ctx, tx, c.UserID, amount, source)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.PublishXPEvents(res)
	return res, nil
}

func (s *ProgressionService) RemoveXP(ctx context.Context, clerkID string, amount int, source string) (*character.XPResult, error) {
	var res *character.XPResult
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		c, err := tx.Characters().GetByClerkID(ctx, clerkID)
		if err != nil {
			return err
		}
		res, err = s.Remove(ctx, tx, c.UserID, amount, source)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.PublishXPEvents(res)
	return res, nil
}

// PublishXPEvents emits the post-commit domain events and metrics for
// one ledger result. Call only after the owning transaction has
// committed; a rolled-back unit of work must not reach the counters.
func (s *ProgressionService) PublishXPEvents(res *character.XPResult) {
	if res == nil {
		return
	}

	if res.Removed {
		xpRemovedTotal.Add(float64(res.Amount))
	} else {
		xpAwardedTotal.Add(float64(res.Amount))
		if res.LeveledUp {
			levelUpsTotal.Inc()
		}
	}

	if s.publisher == nil {
		return
	}
	c := res.Character
	now := time.Now().UTC()

	s.publisher.Publish(&event.Event{
		Type:   event.TypeProgressUpdate,
		UserID: c.UserID,
		Data: map[string]any{
			"xp_earned":        res.Amount,
			"current_xp":       c.CurrentXP,
			"total_xp":         c.TotalXP,
			"level":            c.Level,
			"xp_to_next_level": c.XPToNextLevel,
			"source":           res.Source,
		},
		OccurredAt: now,
	})

	if res.LeveledUp || res.LeveledDown {
		s.publisher.Publish(&event.Event{
			Type:   event.TypeLevelUp,
			UserID: c.UserID,
			Data: map[string]any{
				"old_level": res.OldLevel,
				"new_level": res.NewLevel,
			},
			OccurredAt: now,
		})
	}

	if (res.RankedUp || res.RankedDown) && res.NewRank != nil {
		data := map[string]any{"new_rank": res.NewRank.Name}
		if res.OldRank != nil {
			data["old_rank"] = res.OldRank.Name
		}
		s.publisher.Publish(&event.Event{
			Type:       event.TypeRankUp,
			UserID:     c.UserID,
			Data:       data,
			OccurredAt: now,
		})
	}
}

func (s *ProgressionService) GetCharacter(ctx context.Context, clerkID string) (*character.Character, error) {
	return s.store.Characters().GetByClerkID(ctx, clerkID)
}

func (s *ProgressionService) GetRanks(ctx context.Context) ([]*character.Rank, error) {
	return s.store.Ranks().List(ctx)
}
