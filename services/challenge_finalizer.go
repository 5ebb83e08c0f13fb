package services

import (
	"context"
	"log"
	"time"

	"levelQuestAPI/internal/store"
	"levelQuestAPI/internal/types/challenge"
)

// FinalizeIfNeeded transitions a non-terminal challenge to completed
// when its end date has passed, or, when checkParticipants is set, when
// no active participants remain. It is idempotent: terminal challenges
// are untouched and completed_at is never overwritten.
func FinalizeIfNeeded(ctx context.Context, tx store.Tx, ch *challenge.GroupChallenge, now time.Time, checkParticipants bool) (bool, error) {
	if ch.Status.Terminal() {
		return false, nil
	}

	timeTriggered := !now.Before(ch.EndDate)
	participantTriggered := false
	if !timeTriggered && checkParticipants {
		active, err := tx.Participants().CountActive(ctx, ch.ID)
		if err != nil {
			return false, err
		}
		participantTriggered = active == 0
	}

	if !timeTriggered && !participantTriggered {
		return false, nil
	}

	ch.Status = challenge.StatusCompleted
	if ch.CompletedAt == nil {
		if timeTriggered {
			endDate := ch.EndDate
			ch.CompletedAt = &endDate
		} else {
			ch.CompletedAt = &now
		}
	}

	if err := tx.Challenges().Update(ctx, ch); err != nil {
		return false, err
	}
	return true, nil
}

// ChallengeFinalizer periodically sweeps expired challenges. The clock
// is injected so tests run without wall time; FinalizeIfNeeded's
// idempotence makes overlapping sweeps safe.
type ChallengeFinalizer struct {
	store    store.Store
	interval time.Duration
	now      func() time.Time
	stopChan chan struct{}
}

func NewChallengeFinalizer(st store.Store, interval time.Duration) *ChallengeFinalizer {
	return &ChallengeFinalizer{
		store:    st,
		interval: interval,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Run blocks until Stop is called. Start it with `go finalizer.Run()`.
func (f *ChallengeFinalizer) Run() {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.Sweep(context.Background())
		case <-f.stopChan:
			return
		}
	}
}

func (f *ChallengeFinalizer) Stop() {
	close(f.stopChan)
}

// Sweep finalizes every challenge whose end date has passed. Each
// challenge gets its own transaction so one failure does not hold up
// the rest.
func (f *ChallengeFinalizer) Sweep(ctx context.Context) {
	now := f.now().UTC()

	challenges, err := f.store.Challenges().ListUnfinalized(ctx, now)
	if err != nil {
		log.Printf("Finalizer: failed to list challenges: %v", err)
		return
	}

	for _, ch := range challenges {
		err := f.store.WithinTx(ctx, func(tx store.Tx) error {
			locked, err := tx.Challenges().GetByIDForUpdate(ctx, ch.ID)
			if err != nil {
				return err
			}
			finalized, err := FinalizeIfNeeded(ctx, tx, locked, now, true)
			if err != nil {
				return err
			}
			if finalized {
				log.Printf("Finalizer: challenge %s marked %s", locked.ID, locked.Status)
			}
			return nil
		})
		if err != nil {
			log.Printf("Finalizer: failed to finalize challenge %s: %v", ch.ID, err)
		}
	}
}
