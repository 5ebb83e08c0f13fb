package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"levelQuestAPI/internal/apperr"
	"levelQuestAPI/internal/types/leaderboard"
)

type leaderboardRepo struct {
	q querier
}

// Challenge leaderboards order by total_points, completed_tasks_count,
// current_progress. Ranks come from RANK() over those three keys so
// exact ties share a number and agree with the my-rank query below;
// joined_at and id only break ties for stable pagination.
func (r *leaderboardRepo) ChallengeTop(ctx context.Context, challengeID uuid.UUID, limit, offset int) ([]*leaderboard.ChallengeEntry, error) {
	query := `
	SELECT p.user_id, c.username, p.total_points, p.completed_tasks_count, p.current_progress,
	       RANK() OVER (
	           ORDER BY p.total_points DESC, p.completed_tasks_count DESC,
	                    p.current_progress DESC
	       ) AS rank
	FROM challenge_participants p
	JOIN characters c ON c.user_id = p.user_id
	WHERE p.challenge_id = $1
	ORDER BY rank, p.joined_at ASC, p.id ASC
	LIMIT $2 OFFSET $3
	`
	rows, err := r.q.Query(ctx, query, challengeID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query challenge leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*leaderboard.ChallengeEntry
	for rows.Next() {
		e := &leaderboard.ChallengeEntry{}
		if err := rows.Scan(&e.UserID, &e.Username, &e.TotalPoints, &e.CompletedTasksCount, &e.CurrentProgress, &e.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *leaderboardRepo) ChallengeRank(ctx context.Context, challengeID, userID uuid.UUID) (*leaderboard.ChallengeEntry, error) {
	query := `
	SELECT me.user_id, c.username, me.total_points, me.completed_tasks_count, me.current_progress,
	       1 + (
	           SELECT COUNT(*) FROM challenge_participants p
	           WHERE p.challenge_id = me.challenge_id AND (
	               p.total_points > me.total_points
	               OR (p.total_points = me.total_points
	                   AND p.completed_tasks_count > me.completed_tasks_count)
	               OR (p.total_points = me.total_points
	                   AND p.completed_tasks_count = me.completed_tasks_count
	                   AND p.current_progress > me.current_progress)
	           )
	       ) AS rank
	FROM challenge_participants me
	JOIN characters c ON c.user_id = me.user_id
	WHERE me.challenge_id = $1 AND me.user_id = $2
	`
	e := &leaderboard.ChallengeEntry{}
	err := r.q.QueryRow(ctx, query, challengeID, userID).Scan(
		&e.UserID, &e.Username, &e.TotalPoints, &e.CompletedTasksCount, &e.CurrentProgress, &e.Rank,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("participant not found in challenge %s", challengeID)
		}
		return nil, fmt.Errorf("failed to compute challenge rank: %w", err)
	}
	return e, nil
}

func (r *leaderboardRepo) ChallengeParticipantCount(ctx context.Context, challengeID uuid.UUID) (int, error) {
	var count int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM challenge_participants WHERE challenge_id = $1`, challengeID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return count, nil
}

func (r *leaderboardRepo) GlobalTop(ctx context.Context, limit, offset int) ([]*leaderboard.GlobalEntry, error) {
	query := `
	SELECT c.user_id, c.username, c.level, c.total_xp, r.name,
	       RANK() OVER (ORDER BY c.level DESC, c.total_xp DESC) AS rank
	FROM characters c
	JOIN ranks r ON r.id = c.rank_id
	ORDER BY rank, c.created_at ASC
	LIMIT $1 OFFSET $2
	`
	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query global leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*leaderboard.GlobalEntry
	for rows.Next() {
		e := &leaderboard.GlobalEntry{}
		if err := rows.Scan(&e.UserID, &e.Username, &e.Level, &e.TotalXP, &e.RankName, &e.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan global entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *leaderboardRepo) GlobalRank(ctx context.Context, userID uuid.UUID) (*leaderboard.GlobalEntry, error) {
	query := `
	SELECT me.user_id, me.username, me.level, me.total_xp, r.name,
	       1 + (
	           SELECT COUNT(*) FROM characters c
	           WHERE c.level > me.level
	              OR (c.level = me.level AND c.total_xp > me.total_xp)
	       ) AS rank
	FROM characters me
	JOIN ranks r ON r.id = me.rank_id
	WHERE me.user_id = $1
	`
	e := &leaderboard.GlobalEntry{}
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&e.UserID, &e.Username, &e.Level, &e.TotalXP, &e.RankName, &e.Rank,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("character not found")
		}
		return nil, fmt.Errorf("failed to compute global rank: %w", err)
	}
	return e, nil
}

func (r *leaderboardRepo) GlobalCount(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM characters`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count characters: %w", err)
	}
	return count, nil
}
