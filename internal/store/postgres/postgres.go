// Package postgres implements the store contracts over a pgx pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"levelQuestAPI/internal/store"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so every repo
// works inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
	q    querier
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

// WithinTx runs fn with a repository view bound to one transaction.
// Any error from fn rolls back everything fn's repos wrote.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	pgtx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer pgtx.Rollback(ctx)

	if err := fn(&Store{pool: s.pool, q: pgtx}); err != nil {
		return err
	}

	if err := pgtx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Characters() store.CharacterRepo   { return &characterRepo{q: s.q} }
func (s *Store) Ranks() store.RankRepo             { return &rankRepo{q: s.q} }
func (s *Store) Habits() store.HabitRepo           { return &habitRepo{q: s.q} }
func (s *Store) HabitCompletions() store.HabitCompletionRepo {
	return &habitCompletionRepo{q: s.q}
}
func (s *Store) Tasks() store.TaskRepo { return &taskRepo{q: s.q} }
func (s *Store) TaskCompletions() store.TaskCompletionRepo {
	return &taskCompletionRepo{q: s.q}
}
func (s *Store) Challenges() store.ChallengeRepo     { return &challengeRepo{q: s.q} }
func (s *Store) Participants() store.ParticipantRepo { return &participantRepo{q: s.q} }
func (s *Store) ChallengeTasks() store.ChallengeTaskRepo {
	return &challengeTaskRepo{q: s.q}
}
func (s *Store) ChallengeTaskCompletions() store.ChallengeTaskCompletionRepo {
	return &challengeTaskCompletionRepo{q: s.q}
}
func (s *Store) ChallengeProgress() store.ChallengeProgressRepo {
	return &challengeProgressRepo{q: s.q}
}
func (s *Store) Leaderboards() store.LeaderboardRepo { return &leaderboardRepo{q: s.q} }
