package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"levelQuestAPI/internal/apperr"
	"levelQuestAPI/internal/types/character"
)

type characterRepo struct {
	q querier
}

const characterColumns = `id, user_id, clerk_id, username, current_xp, total_xp, level, xp_to_next_level, rank_id, streak_days, longest_streak, created_at, updated_at`

func scanCharacter(row pgx.Row) (*character.Character, error) {
	c := &character.Character{}
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.ClerkID,
		&c.Username,
		&c.CurrentXP,
		&c.TotalXP,
		&c.Level,
		&c.XPToNextLevel,
		&c.RankID,
		&c.StreakDays,
		&c.LongestStreak,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("character not found")
		}
		return nil, fmt.Errorf("failed to scan character: %w", err)
	}
	return c, nil
}

func (r *characterRepo) GetByClerkID(ctx context.Context, clerkID string) (*character.Character, error) {
	query := fmt.Sprintf(`SELECT %s FROM characters WHERE clerk_id = $1`, characterColumns)
	return scanCharacter(r.q.QueryRow(ctx, query, clerkID))
}

func (r *characterRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*character.Character, error) {
	query := fmt.Sprintf(`SELECT %s FROM characters WHERE user_id = $1`, characterColumns)
	return scanCharacter(r.q.QueryRow(ctx, query, userID))
}

func (r *characterRepo) GetByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*character.Character, error) {
	query := fmt.Sprintf(`SELECT %s FROM characters WHERE user_id = $1 FOR UPDATE`, characterColumns)
	return scanCharacter(r.q.QueryRow(ctx, query, userID))
}

func (r *characterRepo) Update(ctx context.Context, c *character.Character) error {
	query := `
	UPDATE characters
	SET current_xp = $2, total_xp = $3, level = $4, xp_to_next_level = $5,
	    rank_id = $6, streak_days = $7, longest_streak = $8, updated_at = NOW()
	WHERE id = $1
	`
	tag, err := r.q.Exec(ctx, query,
		c.ID, c.CurrentXP, c.TotalXP, c.Level, c.XPToNextLevel,
		c.RankID, c.StreakDays, c.LongestStreak,
	)
	if err != nil {
		return fmt.Errorf("failed to update character: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("character %s not found", c.ID)
	}
	return nil
}

type rankRepo struct {
	q querier
}

func (r *rankRepo) List(ctx context.Context) ([]*character.Rank, error) {
	query := `
	SELECT id, name, color, min_level, max_level, created_at
	FROM ranks
	ORDER BY min_level ASC
	`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list ranks: %w", err)
	}
	defer rows.Close()

	var ranks []*character.Rank
	for rows.Next() {
		rank := &character.Rank{}
		if err := rows.Scan(&rank.ID, &rank.Name, &rank.Color, &rank.MinLevel, &rank.MaxLevel, &rank.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rank: %w", err)
		}
		ranks = append(ranks, rank)
	}
	return ranks, rows.Err()
}
