package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"levelQuestAPI/internal/apperr"
	"levelQuestAPI/internal/store"
	"levelQuestAPI/internal/types/character"
	"levelQuestAPI/internal/types/event"
)

// seedCharacter puts a fresh level-1 character and a two-tier rank
// ladder into the fake store.
func seedCharacter(f *fakeStore) *character.Character {
	bronze := &character.Rank{ID: uuid.New(), Name: "Bronze", MinLevel: 1}
	silver := &character.Rank{ID: uuid.New(), Name: "Silver", MinLevel: 5}
	f.ranks = []*character.Rank{bronze, silver}

	c := &character.Character{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		ClerkID:       "clerk_test",
		Username:      "tester",
		Level:         1,
		XPToNextLevel: 100,
		RankID:        bronze.ID,
	}
	f.characters[c.UserID] = c
	return c
}

func TestXPToNextLevel(t *testing.T) {
	cases := []struct {
		level int
		want  int
	}{
		{1, 100},
		{2, 115},
		{3, 132},
		{4, 152},
	}
	for _, c := range cases {
		if got := XPToNextLevel(c.level); got != c.want {
			t.Errorf("level %d: got %d, want %d", c.level, got, c.want)
		}
	}

	for level := 1; level < 100; level++ {
		if XPToNextLevel(level+1) <= XPToNextLevel(level) {
			t.Fatalf("threshold not strictly increasing at level %d", level)
		}
	}
}

func TestAwardXPLevelUp(t *testing.T) {
	f := newFakeStore()
	seeded := seedCharacter(f)
	svc := NewProgressionService(f, nil)
	ctx := context.Background()

	if _, err := svc.AwardXP(ctx, seeded.ClerkID, 80, "task"); err != nil {
		t.Fatalf("first award: %v", err)
	}

	res, err := svc.AwardXP(ctx, seeded.ClerkID, 30, "task")
	if err != nil {
		t.Fatalf("second award: %v", err)
	}

	if !res.LeveledUp {
		t.Error("expected a level up")
	}
	if res.NewLevel != 2 {
		t.Errorf("level: got %d, want 2", res.NewLevel)
	}

	c := f.characters[seeded.UserID]
	if c.Level != 2 || c.CurrentXP != 10 || c.TotalXP != 110 {
		t.Errorf("stored character: level=%d current=%d total=%d, want 2/10/110", c.Level, c.CurrentXP, c.TotalXP)
	}
	if c.XPToNextLevel != 115 {
		t.Errorf("threshold: got %d, want 115", c.XPToNextLevel)
	}
}

func TestAwardXPMultiLevelJump(t *testing.T) {
	f := newFakeStore()
	seeded := seedCharacter(f)
	svc := NewProgressionService(f, nil)

	// 100 + 115 + 132 = 347 XP spans three level-ups with 5 left over.
	res, err := svc.AwardXP(context.Background(), seeded.ClerkID, 352, "task")
	if err != nil {
		t.Fatalf("award: %v", err)
	}

	if res.NewLevel != 4 {
		t.Errorf("level: got %d, want 4", res.NewLevel)
	}
	if res.CurrentXP != 5 {
		t.Errorf("current xp: got %d, want 5", res.CurrentXP)
	}
}

func TestRemoveXPRoundTrip(t *testing.T) {
	f := newFakeStore()
	seeded := seedCharacter(f)
	svc := NewProgressionService(f, nil)
	ctx := context.Background()

	// Build up arbitrary prior state first.
	if _, err := svc.AwardXP(ctx, seeded.ClerkID, 263, "task"); err != nil {
		t.Fatalf("setup award: %v", err)
	}
	before := *f.characters[seeded.UserID]

	amounts := []int{1, 99, 100, 117, 352, 5000}
	for _, amount := range amounts {
		if _, err := svc.AwardXP(ctx, seeded.ClerkID, amount, "task"); err != nil {
			t.Fatalf("award %d: %v", amount, err)
		}
		if _, err := svc.RemoveXP(ctx, seeded.ClerkID, amount, "task"); err != nil {
			t.Fatalf("remove %d: %v", amount, err)
		}

		after := f.characters[seeded.UserID]
		if after.Level != before.Level || after.CurrentXP != before.CurrentXP ||
			after.TotalXP != before.TotalXP || after.RankID != before.RankID {
			t.Errorf("remove(award(%d)) not identity: level=%d current=%d total=%d, want level=%d current=%d total=%d",
				amount, after.Level, after.CurrentXP, after.TotalXP, before.Level, before.CurrentXP, before.TotalXP)
		}
	}
}

func TestRemoveXPClampsAtLevelOne(t *testing.T) {
	f := newFakeStore()
	seeded := seedCharacter(f)
	svc := NewProgressionService(f, nil)
	ctx := context.Background()

	if _, err := svc.AwardXP(ctx, seeded.ClerkID, 50, "task"); err != nil {
		t.Fatalf("award: %v", err)
	}

	res, err := svc.RemoveXP(ctx, seeded.ClerkID, 5000, "task")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}

	if res.NewLevel != 1 {
		t.Errorf("level: got %d, want 1", res.NewLevel)
	}
	c := f.characters[seeded.UserID]
	if c.CurrentXP != 0 || c.TotalXP != 0 {
		t.Errorf("got current=%d total=%d, want 0/0", c.CurrentXP, c.TotalXP)
	}
}

func TestXPAmountValidation(t *testing.T) {
	f := newFakeStore()
	seeded := seedCharacter(f)
	svc := NewProgressionService(f, nil)
	ctx := context.Background()

	if _, err := svc.AwardXP(ctx, seeded.ClerkID, -1, "task"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("negative award: got %v, want validation error", err)
	}
	if _, err := svc.AwardXP(ctx, seeded.ClerkID, character.MaxXPPerEvent+1, "task"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("oversized award: got %v, want validation error", err)
	}
	if _, err := svc.RemoveXP(ctx, seeded.ClerkID, -1, "task"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("negative remove: got %v, want validation error", err)
	}

	if c := f.characters[seeded.UserID]; c.TotalXP != 0 {
		t.Errorf("rejected awards must not change state, total=%d", c.TotalXP)
	}
}

func TestXPInvariantsHold(t *testing.T) {
	f := newFakeStore()
	seeded := seedCharacter(f)
	svc := NewProgressionService(f, nil)
	ctx := context.Background()

	ops := []struct {
		remove bool
		amount int
	}{
		{false, 10}, {false, 250}, {true, 40}, {false, 999},
		{true, 700}, {true, 600}, {false, 1}, {true, 1},
	}

	for i, op := range ops {
		var err error
		if op.remove {
			_, err = svc.RemoveXP(ctx, seeded.ClerkID, op.amount, "task")
		} else {
			_, err = svc.AwardXP(ctx, seeded.ClerkID, op.amount, "task")
		}
		if err != nil {
			t.Fatalf("op %d: %v", i, err)
		}

		c := f.characters[seeded.UserID]
		if c.Level < 1 {
			t.Fatalf("op %d: level %d below 1", i, c.Level)
		}
		if c.CurrentXP < 0 || c.CurrentXP >= XPToNextLevel(c.Level) {
			t.Fatalf("op %d: current xp %d out of [0, %d)", i, c.CurrentXP, XPToNextLevel(c.Level))
		}
		if c.TotalXP < 0 {
			t.Fatalf("op %d: total xp %d negative", i, c.TotalXP)
		}
	}
}

func TestRankTransitions(t *testing.T) {
	f := newFakeStore()
	seeded := seedCharacter(f)
	svc := NewProgressionService(f, nil)
	ctx := context.Background()

	// 100+115+132+152 = 499 XP reaches level 5, the Silver floor.
	res, err := svc.AwardXP(ctx, seeded.ClerkID, 499, "task")
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if !res.RankedUp || res.NewRank == nil || res.NewRank.Name != "Silver" {
		t.Errorf("expected rank up to Silver, got ranked_up=%v rank=%+v", res.RankedUp, res.NewRank)
	}

	res, err = svc.RemoveXP(ctx, seeded.ClerkID, 499, "task")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !res.RankedDown || res.NewRank == nil || res.NewRank.Name != "Bronze" {
		t.Errorf("expected rank down to Bronze, got ranked_down=%v rank=%+v", res.RankedDown, res.NewRank)
	}
}

func TestAwardXPPublishesEvents(t *testing.T) {
	f := newFakeStore()
	seeded := seedCharacter(f)
	pub := &recordingPublisher{}
	svc := NewProgressionService(f, pub)

	if _, err := svc.AwardXP(context.Background(), seeded.ClerkID, 120, "habit"); err != nil {
		t.Fatalf("award: %v", err)
	}

	if got := len(pub.ofType(event.TypeProgressUpdate)); got != 1 {
		t.Errorf("progress events: got %d, want 1", got)
	}
	levelEvents := pub.ofType(event.TypeLevelUp)
	if len(levelEvents) != 1 {
		t.Fatalf("level events: got %d, want 1", len(levelEvents))
	}
	if levelEvents[0].Data["new_level"] != 2 {
		t.Errorf("new_level: got %v, want 2", levelEvents[0].Data["new_level"])
	}
}

func TestXPCountersMoveOnlyAfterCommit(t *testing.T) {
	f := newFakeStore()
	seeded := seedCharacter(f)
	svc := NewProgressionService(f, nil)
	ctx := context.Background()

	awardedBefore := testutil.ToFloat64(xpAwardedTotal)
	levelUpsBefore := testutil.ToFloat64(levelUpsTotal)
	removedBefore := testutil.ToFloat64(xpRemovedTotal)

	// A later failure in the same unit of work rolls back the award, so
	// no counter may have moved.
	boom := errors.New("boom")
	err := f.WithinTx(ctx, func(tx store.Tx) error {
		if _, err := svc.Award(ctx, tx, seeded.UserID, 120, "task"); err != nil {
			t.Fatalf("award: %v", err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want rollback error", err)
	}
	if got := testutil.ToFloat64(xpAwardedTotal); got != awardedBefore {
		t.Errorf("awarded counter moved on rollback: %v -> %v", awardedBefore, got)
	}
	if got := testutil.ToFloat64(levelUpsTotal); got != levelUpsBefore {
		t.Errorf("level-up counter moved on rollback: %v -> %v", levelUpsBefore, got)
	}

	if _, err := svc.AwardXP(ctx, seeded.ClerkID, 120, "task"); err != nil {
		t.Fatalf("award: %v", err)
	}
	if got := testutil.ToFloat64(xpAwardedTotal); got != awardedBefore+120 {
		t.Errorf("awarded counter: got %v, want %v", got, awardedBefore+120)
	}
	if got := testutil.ToFloat64(levelUpsTotal); got != levelUpsBefore+1 {
		t.Errorf("level-up counter: got %v, want %v", got, levelUpsBefore+1)
	}

	if _, err := svc.RemoveXP(ctx, seeded.ClerkID, 120, "task"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := testutil.ToFloat64(xpRemovedTotal); got != removedBefore+120 {
		t.Errorf("removed counter: got %v, want %v", got, removedBefore+120)
	}
}
