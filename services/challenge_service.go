package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"levelQuestAPI/internal/apperr"
	"levelQuestAPI/internal/store"
	"levelQuestAPI/internal/types/challenge"
	"levelQuestAPI/internal/types/character"
	"levelQuestAPI/utils"
)

type ChallengeService struct {
	store       store.Store
	progression *ProgressionService
	judge       VerificationJudge
	now         func() time.Time
}

func NewChallengeService(st store.Store, progression *ProgressionService, judge VerificationJudge) *ChallengeService {
	return &ChallengeService{
		store:       st,
		progression: progression,
		judge:       judge,
		now:         time.Now,
	}
}

type ChallengeTaskCompletionResponse struct {
	Challenge   *challenge.GroupChallenge `json:"challenge"`
	Participant *challenge.Participant    `json:"participant"`
	Completion  *challenge.TaskCompletion `json:"completion"`
	XP          *character.XPResult       `json:"xp,omitempty"`
	BonusXP     *character.XPResult       `json:"bonus_xp,omitempty"`
	GoalReached bool                      `json:"goal_reached"`
}

// JoinChallenge enrolls the caller as a participant, either directly or
// through an invite code scanned from a QR.
func (s *ChallengeService) JoinChallenge(ctx context.Context, clerkID string, challengeID uuid.UUID, inviteCode string) (*challenge.Participant, error) {
	now := s.now().UTC()

	var participant *challenge.Participant
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		c, err := tx.Characters().GetByClerkID(ctx, clerkID)
		if err != nil {
			return err
		}

		if inviteCode != "" {
			ch, err := tx.Challenges().GetByInviteCode(ctx, inviteCode)
			if err != nil {
				return err
			}
			challengeID = ch.ID
		}

		ch, err := tx.Challenges().GetByIDForUpdate(ctx, challengeID)
		if err != nil {
			return err
		}
		if ch.Status.Terminal() {
			return apperr.Conflict("challenge is %s", ch.Status)
		}

		if _, err := tx.Participants().Get(ctx, ch.ID, c.UserID); err == nil {
			return apperr.Conflict("already joined this challenge")
		} else if !apperr.IsKind(err, apperr.KindNotFound) {
			return err
		}

		participant = &challenge.Participant{
			ID:          uuid.New(),
			ChallengeID: ch.ID,
			UserID:      c.UserID,
			Status:      challenge.ParticipantActive,
			JoinedAt:    now,
		}
		if err := tx.Participants().Create(ctx, participant); err != nil {
			return err
		}

		ch.CurrentParticipants++
		return tx.Challenges().Update(ctx, ch)
	})
	if err != nil {
		return nil, err
	}
	return participant, nil
}

// GenerateInvite returns the challenge's invite code as a deep link and
// a QR PNG, base64 encoded.
func (s *ChallengeService) GenerateInvite(ctx context.Context, challengeID uuid.UUID) (*challenge.InviteResponse, error) {
	ch, err := s.store.Challenges().GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if ch.Status.Terminal() {
		return nil, apperr.Conflict("challenge is %s", ch.Status)
	}

	shareLink := fmt.Sprintf("levelquest://challenge_screen?inviteCode=%s", ch.InviteCode)
	pngBytes, err := qrcode.Encode(shareLink, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR png: %w", err)
	}

	return &challenge.InviteResponse{
		InviteCode:   ch.InviteCode,
		ShareLink:    shareLink,
		QrCodeBase64: base64.StdEncoding.EncodeToString(pngBytes),
	}, nil
}

// CompleteChallengeTask records a completion attempt. Depending on the
// challenge's verification type the completion is approved immediately,
// left pending for a moderator, or judged by the external AI; only an
// approved completion moves progress and pays XP.
func (s *ChallengeService) CompleteChallengeTask(ctx context.Context, clerkID string, challengeID, taskID uuid.UUID, req *challenge.CompleteTaskRequest) (*ChallengeTaskCompletionResponse, error) {
	now := s.now().UTC()

	var resp *ChallengeTaskCompletionResponse
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		c, err := tx.Characters().GetByClerkID(ctx, clerkID)
		if err != nil {
			return err
		}

		ch, err := tx.Challenges().GetByIDForUpdate(ctx, challengeID)
		if err != nil {
			return err
		}
		if _, err := FinalizeIfNeeded(ctx, tx, ch, now, false); err != nil {
			return err
		}
		if ch.Status != challenge.StatusActive {
			return apperr.Conflict("challenge is %s, not active", ch.Status)
		}

		p, err := tx.Participants().GetForUpdate(ctx, ch.ID, c.UserID)
		if err != nil {
			return err
		}

		t, err := tx.ChallengeTasks().GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		if t.ChallengeID != ch.ID {
			return apperr.NotFound("task %s does not belong to challenge %s", taskID, challengeID)
		}

		if err := s.checkEligibility(ctx, tx, p, t, now, req); err != nil {
			return err
		}

		count, err := tx.ChallengeTaskCompletions().Count(ctx, t.ID, p.ID)
		if err != nil {
			return err
		}

		completion := &challenge.TaskCompletion{
			ID:               uuid.New(),
			ChallengeTaskID:  t.ID,
			ParticipantID:    p.ID,
			CompletionNumber: count + 1,
			ProofText:        req.ProofText,
			ProofImageURL:    req.ProofImageURL,
			CompletedAt:      now,
		}

		switch ch.VerificationType {
		case challenge.VerificationNone:
			completion.Status = challenge.CompletionApproved
		case challenge.VerificationManual:
			completion.Status = challenge.CompletionPending
		case challenge.VerificationAI:
			if s.judge == nil {
				verificationFailuresTotal.Inc()
				return apperr.External(nil, "proof verification is not configured")
			}
			proofURL := ""
			if req.ProofImageURL != nil {
				proofURL = *req.ProofImageURL
			}
			result, err := s.judge.Verify(ctx, proofURL, t.Description)
			if err != nil {
				verificationFailuresTotal.Inc()
				return apperr.External(err, "proof verification failed")
			}
			completion.IsVerified = true
			if result.Approved {
				completion.Status = challenge.CompletionApproved
			} else {
				completion.Status = challenge.CompletionRejected
				completion.RejectionReason = result.Reason
			}
		default:
			return apperr.Validation("unknown verification type %q", ch.VerificationType)
		}

		if err := tx.ChallengeTaskCompletions().Create(ctx, completion); err != nil {
			return err
		}

		resp = &ChallengeTaskCompletionResponse{Challenge: ch, Participant: p, Completion: completion}
		if completion.Status != challenge.CompletionApproved {
			return nil
		}
		return s.applyApprovedCompletion(ctx, tx, ch, p, t, now, resp)
	})
	if err != nil {
		return nil, err
	}

	if resp.GoalReached {
		challengeCompletionsTotal.Inc()
	}
	s.progression.PublishXPEvents(resp.XP)
	s.progression.PublishXPEvents(resp.BonusXP)
	return resp, nil
}

// VerifyChallengeTask is the manual moderation path. Approving a
// pending completion applies the identical progress and XP logic as
// immediate approval, so both paths converge on the same state.
func (s *ChallengeService) VerifyChallengeTask(ctx context.Context, completionID uuid.UUID, approved bool, reason *string) (*ChallengeTaskCompletionResponse, error) {
	now := s.now().UTC()

	var resp *ChallengeTaskCompletionResponse
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		completion, err := tx.ChallengeTaskCompletions().GetByIDForUpdate(ctx, completionID)
		if err != nil {
			return err
		}
		if completion.Status != challenge.CompletionPending {
			return apperr.Conflict("completion is already %s", completion.Status)
		}

		completion.IsVerified = true
		if !approved {
			completion.Status = challenge.CompletionRejected
			completion.RejectionReason = reason
			if err := tx.ChallengeTaskCompletions().Update(ctx, completion); err != nil {
				return err
			}
			resp = &ChallengeTaskCompletionResponse{Completion: completion}
			return nil
		}

		completion.Status = challenge.CompletionApproved
		if err := tx.ChallengeTaskCompletions().Update(ctx, completion); err != nil {
			return err
		}

		// Lock the challenge before the participant, same order as the
		// immediate completion path.
		peek, err := tx.Participants().GetByID(ctx, completion.ParticipantID)
		if err != nil {
			return err
		}
		ch, err := tx.Challenges().GetByIDForUpdate(ctx, peek.ChallengeID)
		if err != nil {
			return err
		}
		p, err := tx.Participants().GetForUpdate(ctx, ch.ID, peek.UserID)
		if err != nil {
			return err
		}
		t, err := tx.ChallengeTasks().GetByID(ctx, completion.ChallengeTaskID)
		if err != nil {
			return err
		}

		resp = &ChallengeTaskCompletionResponse{Challenge: ch, Participant: p, Completion: completion}
		return s.applyApprovedCompletion(ctx, tx, ch, p, t, now, resp)
	})
	if err != nil {
		return nil, err
	}

	if resp.GoalReached {
		challengeCompletionsTotal.Inc()
	}
	if resp.XP != nil {
		s.progression.PublishXPEvents(resp.XP)
		s.progression.PublishXPEvents(resp.BonusXP)
	}
	return resp, nil
}

// checkEligibility rejects a completion attempt before any mutation.
func (s *ChallengeService) checkEligibility(ctx context.Context, tx store.Tx, p *challenge.Participant, t *challenge.Task, now time.Time, req *challenge.CompleteTaskRequest) error {
	if p.Status != challenge.ParticipantActive {
		return apperr.Conflict("participant is %s, not active", p.Status)
	}
	if !t.IsActive {
		return apperr.Conflict("challenge task is not active")
	}
	if t.AvailableFrom != nil && now.Before(*t.AvailableFrom) {
		return apperr.Conflict("challenge task is not yet available")
	}
	if t.AvailableUntil != nil && now.After(*t.AvailableUntil) {
		return apperr.Conflict("challenge task is no longer available")
	}

	for _, prereqID := range t.Prerequisites {
		done, err := tx.ChallengeTaskCompletions().HasApproved(ctx, prereqID, p.ID)
		if err != nil {
			return err
		}
		if !done {
			return apperr.Conflict("prerequisite task %s is not completed", prereqID)
		}
	}

	nonRejected, err := tx.ChallengeTaskCompletions().CountNonRejected(ctx, t.ID, p.ID)
	if err != nil {
		return err
	}
	if !t.IsRepeatable && nonRejected > 0 {
		return apperr.Conflict("task is not repeatable and already has a completion")
	}
	if t.IsRepeatable && t.MaxCompletions != nil && nonRejected >= *t.MaxCompletions {
		return apperr.Conflict("task already has the maximum %d completions", *t.MaxCompletions)
	}

	if t.RequiresProof {
		hasText := req.ProofText != nil && *req.ProofText != ""
		hasImage := req.ProofImageURL != nil && *req.ProofImageURL != ""
		if !hasText && !hasImage {
			return apperr.Validation("task requires proof")
		}
	}
	return nil
}

// applyApprovedCompletion moves participant progress, streak and daily
// aggregates for one approved completion, awards the task XP, and flips
// the participant to completed exactly once when the goal is reached.
func (s *ChallengeService) applyApprovedCompletion(ctx context.Context, tx store.Tx, ch *challenge.GroupChallenge, p *challenge.Participant, t *challenge.Task, now time.Time, resp *ChallengeTaskCompletionResponse) error {
	p.CompletedTasksCount++
	p.TotalPoints += t.PointValue
	p.TotalXPEarned += t.XPReward

	if ch.GoalType == challenge.GoalTotalXP {
		p.CurrentProgress = p.TotalXPEarned
	} else {
		p.CurrentProgress = p.CompletedTasksCount
	}

	day := utils.DateOnly(now)
	if p.LastActivityDate == nil {
		p.StreakDays = 1
	} else {
		switch utils.DaysBetween(*p.LastActivityDate, day) {
		case 0:
			// Same-day activity keeps the streak.
		case 1:
			p.StreakDays++
		default:
			p.StreakDays = 1
		}
	}
	if p.StreakDays > p.LongestStreak {
		p.LongestStreak = p.StreakDays
	}
	p.LastActivityDate = &day

	progressValue := 1
	if ch.GoalType == challenge.GoalTotalXP {
		progressValue = t.XPReward
	}
	delta := challenge.ProgressDelta{
		ProgressValue:      progressValue,
		TasksCompleted:     1,
		XPEarned:           t.XPReward,
		PointsEarned:       t.PointValue,
		CumulativeProgress: p.CurrentProgress,
		StreakCount:        p.StreakDays,
	}
	if err := tx.ChallengeProgress().AddDaily(ctx, p.ID, day, delta); err != nil {
		return err
	}

	xpRes, err := s.progression.Award(ctx, tx, p.UserID, t.XPReward, "challenge")
	if err != nil {
		return err
	}
	resp.XP = xpRes

	// The active-status check makes goal completion exactly-once: a
	// later approved completion finds the participant already completed.
	if p.Status == challenge.ParticipantActive && p.CurrentProgress >= ch.GoalTarget {
		p.Status = challenge.ParticipantCompleted
		p.CompletedAt = &now
		resp.GoalReached = true

		bonus, err := s.progression.Award(ctx, tx, p.UserID, ch.XPReward, "challenge_bonus")
		if err != nil {
			return err
		}
		resp.BonusXP = bonus
	}

	if err := tx.Participants().Update(ctx, p); err != nil {
		return err
	}

	if resp.GoalReached {
		if _, err := FinalizeIfNeeded(ctx, tx, ch, now, true); err != nil {
			return err
		}
	}
	return nil
}

func (s *ChallengeService) GetChallenge(ctx context.Context, challengeID uuid.UUID) (*challenge.GroupChallenge, error) {
	return s.store.Challenges().GetByID(ctx, challengeID)
}
