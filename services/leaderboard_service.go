package services

import (
	"context"

	"github.com/google/uuid"

	"levelQuestAPI/internal/apperr"
	"levelQuestAPI/internal/store"
	"levelQuestAPI/internal/types/leaderboard"
)

// LeaderboardService is read-only; it never participates in the write
// path's transactions.
type LeaderboardService struct {
	store store.Store
}

func NewLeaderboardService(st store.Store) *LeaderboardService {
	return &LeaderboardService{store: st}
}

// GetChallengeLeaderboard returns one page of a challenge leaderboard
// plus the requesting user's own position. The user's rank uses the
// same three-key ordering as the page, so ties rank identically whether
// the user is on the page or not.
func (s *LeaderboardService) GetChallengeLeaderboard(ctx context.Context, clerkID string, challengeID uuid.UUID, limit, offset int) (*leaderboard.ChallengeLeaderboard, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	repo := s.store.Leaderboards()

	entries, err := repo.ChallengeTop(ctx, challengeID, limit, offset)
	if err != nil {
		return nil, err
	}

	total, err := repo.ChallengeParticipantCount(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	board := &leaderboard.ChallengeLeaderboard{
		Entries:           entries,
		TotalParticipants: total,
	}

	c, err := s.store.Characters().GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	position, err := repo.ChallengeRank(ctx, challengeID, c.UserID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			// Caller is not a participant; the board is still valid.
			return board, nil
		}
		return nil, err
	}
	board.UserPosition = position
	return board, nil
}

// GetGlobalLeaderboard returns one page of the character leaderboard
// plus the requesting user's position.
func (s *LeaderboardService) GetGlobalLeaderboard(ctx context.Context, clerkID string, limit, offset int) (*leaderboard.GlobalLeaderboard, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	repo := s.store.Leaderboards()

	entries, err := repo.GlobalTop(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	total, err := repo.GlobalCount(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.store.Characters().GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	position, err := repo.GlobalRank(ctx, c.UserID)
	if err != nil {
		return nil, err
	}

	return &leaderboard.GlobalLeaderboard{
		Entries:      entries,
		UserPosition: position,
		TotalUsers:   total,
	}, nil
}
