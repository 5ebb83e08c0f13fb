package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"levelQuestAPI/internal/apperr"
	"levelQuestAPI/internal/store"
	"levelQuestAPI/internal/types/challenge"
	"levelQuestAPI/internal/types/character"
	"levelQuestAPI/internal/types/event"
	"levelQuestAPI/internal/types/habit"
	"levelQuestAPI/internal/types/leaderboard"
	"levelQuestAPI/internal/types/task"
)

// fakeStore is an in-memory store.Store for service tests. Reads hand
// out copies and writes store copies, so a service that forgets to call
// Update loses its mutation, same as with real rows.
type fakeStore struct {
	characters               map[uuid.UUID]*character.Character
	ranks                    []*character.Rank
	habits                   map[uuid.UUID]*habit.Habit
	habitCompletions         map[uuid.UUID]*habit.Completion
	tasks                    map[uuid.UUID]*task.Task
	taskCompletions          map[uuid.UUID]*task.Completion
	challenges               map[uuid.UUID]*challenge.GroupChallenge
	participants             map[uuid.UUID]*challenge.Participant
	challengeTasks           map[uuid.UUID]*challenge.Task
	challengeTaskCompletions map[uuid.UUID]*challenge.TaskCompletion
	progress                 map[string]*challenge.Progress
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		characters:               make(map[uuid.UUID]*character.Character),
		habits:                   make(map[uuid.UUID]*habit.Habit),
		habitCompletions:         make(map[uuid.UUID]*habit.Completion),
		tasks:                    make(map[uuid.UUID]*task.Task),
		taskCompletions:          make(map[uuid.UUID]*task.Completion),
		challenges:               make(map[uuid.UUID]*challenge.GroupChallenge),
		participants:             make(map[uuid.UUID]*challenge.Participant),
		challengeTasks:           make(map[uuid.UUID]*challenge.Task),
		challengeTaskCompletions: make(map[uuid.UUID]*challenge.TaskCompletion),
		progress:                 make(map[string]*challenge.Progress),
	}
}

func (f *fakeStore) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return fn(f)
}

func (f *fakeStore) Characters() store.CharacterRepo                             { return (*fakeCharacterRepo)(f) }
func (f *fakeStore) Ranks() store.RankRepo                                       { return (*fakeRankRepo)(f) }
func (f *fakeStore) Habits() store.HabitRepo                                     { return (*fakeHabitRepo)(f) }
func (f *fakeStore) HabitCompletions() store.HabitCompletionRepo                 { return (*fakeHabitCompletionRepo)(f) }
func (f *fakeStore) Tasks() store.TaskRepo                                       { return (*fakeTaskRepo)(f) }
func (f *fakeStore) TaskCompletions() store.TaskCompletionRepo                   { return (*fakeTaskCompletionRepo)(f) }
func (f *fakeStore) Challenges() store.ChallengeRepo                             { return (*fakeChallengeRepo)(f) }
func (f *fakeStore) Participants() store.ParticipantRepo                         { return (*fakeParticipantRepo)(f) }
func (f *fakeStore) ChallengeTasks() store.ChallengeTaskRepo                     { return (*fakeChallengeTaskRepo)(f) }
func (f *fakeStore) ChallengeTaskCompletions() store.ChallengeTaskCompletionRepo { return (*fakeChallengeTaskCompletionRepo)(f) }
func (f *fakeStore) ChallengeProgress() store.ChallengeProgressRepo              { return (*fakeChallengeProgressRepo)(f) }
func (f *fakeStore) Leaderboards() store.LeaderboardRepo                         { return (*fakeLeaderboardRepo)(f) }

type fakeCharacterRepo fakeStore

func (r *fakeCharacterRepo) GetByClerkID(ctx context.Context, clerkID string) (*character.Character, error) {
	for _, c := range r.characters {
		if c.ClerkID == clerkID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("character for clerk id %s not found", clerkID)
}

func (r *fakeCharacterRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*character.Character, error) {
	c, ok := r.characters[userID]
	if !ok {
		return nil, apperr.NotFound("character for user %s not found", userID)
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCharacterRepo) GetByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*character.Character, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *fakeCharacterRepo) Update(ctx context.Context, c *character.Character) error {
	if _, ok := r.characters[c.UserID]; !ok {
		return apperr.NotFound("character for user %s not found", c.UserID)
	}
	cp := *c
	r.characters[c.UserID] = &cp
	return nil
}

type fakeRankRepo fakeStore

func (r *fakeRankRepo) List(ctx context.Context) ([]*character.Rank, error) {
	out := make([]*character.Rank, len(r.ranks))
	copy(out, r.ranks)
	sort.Slice(out, func(i, j int) bool { return out[i].MinLevel < out[j].MinLevel })
	return out, nil
}

type fakeHabitRepo fakeStore

func (r *fakeHabitRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*habit.Habit, error) {
	h, ok := r.habits[id]
	if !ok {
		return nil, apperr.NotFound("habit %s not found", id)
	}
	cp := *h
	return &cp, nil
}

func (r *fakeHabitRepo) Update(ctx context.Context, h *habit.Habit) error {
	if _, ok := r.habits[h.ID]; !ok {
		return apperr.NotFound("habit %s not found", h.ID)
	}
	cp := *h
	r.habits[h.ID] = &cp
	return nil
}

type fakeHabitCompletionRepo fakeStore

func (r *fakeHabitCompletionRepo) Create(ctx context.Context, c *habit.Completion) error {
	cp := *c
	r.habitCompletions[c.ID] = &cp
	return nil
}

func (r *fakeHabitCompletionRepo) GetByHabitAndDate(ctx context.Context, habitID uuid.UUID, date time.Time) (*habit.Completion, error) {
	for _, c := range r.habitCompletions {
		if c.HabitID == habitID && c.Date.Equal(date) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("no completion of habit %s on %s", habitID, date.Format("2006-01-02"))
}

func (r *fakeHabitCompletionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.habitCompletions[id]; !ok {
		return apperr.NotFound("habit completion %s not found", id)
	}
	delete(r.habitCompletions, id)
	return nil
}

func (r *fakeHabitCompletionRepo) ListDates(ctx context.Context, habitID uuid.UUID) ([]time.Time, error) {
	var dates []time.Time
	for _, c := range r.habitCompletions {
		if c.HabitID == habitID {
			dates = append(dates, c.Date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	return dates, nil
}

func (r *fakeHabitCompletionRepo) CountInRange(ctx context.Context, habitID uuid.UUID, from, to time.Time) (int, error) {
	count := 0
	for _, c := range r.habitCompletions {
		if c.HabitID == habitID && !c.Date.Before(from) && !c.Date.After(to) {
			count++
		}
	}
	return count, nil
}

type fakeTaskRepo fakeStore

func (r *fakeTaskRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	t, ok := r.tasks[id]
	if !ok {
		return nil, apperr.NotFound("task %s not found", id)
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTaskRepo) Update(ctx context.Context, t *task.Task) error {
	if _, ok := r.tasks[t.ID]; !ok {
		return apperr.NotFound("task %s not found", t.ID)
	}
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

type fakeTaskCompletionRepo fakeStore

func (r *fakeTaskCompletionRepo) Create(ctx context.Context, c *task.Completion) error {
	cp := *c
	r.taskCompletions[c.ID] = &cp
	return nil
}

func (r *fakeTaskCompletionRepo) GetLatestByTask(ctx context.Context, taskID uuid.UUID) (*task.Completion, error) {
	var latest *task.Completion
	for _, c := range r.taskCompletions {
		if c.TaskID == taskID && (latest == nil || c.CompletedAt.After(latest.CompletedAt)) {
			latest = c
		}
	}
	if latest == nil {
		return nil, apperr.NotFound("no completions of task %s", taskID)
	}
	cp := *latest
	return &cp, nil
}

func (r *fakeTaskCompletionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.taskCompletions[id]; !ok {
		return apperr.NotFound("task completion %s not found", id)
	}
	delete(r.taskCompletions, id)
	return nil
}

type fakeChallengeRepo fakeStore

func (r *fakeChallengeRepo) GetByID(ctx context.Context, id uuid.UUID) (*challenge.GroupChallenge, error) {
	ch, ok := r.challenges[id]
	if !ok {
		return nil, apperr.NotFound("challenge %s not found", id)
	}
	cp := *ch
	return &cp, nil
}

func (r *fakeChallengeRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*challenge.GroupChallenge, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeChallengeRepo) GetByInviteCode(ctx context.Context, code string) (*challenge.GroupChallenge, error) {
	for _, ch := range r.challenges {
		if ch.InviteCode == code {
			cp := *ch
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("no challenge with invite code %s", code)
}

func (r *fakeChallengeRepo) Update(ctx context.Context, ch *challenge.GroupChallenge) error {
	if _, ok := r.challenges[ch.ID]; !ok {
		return apperr.NotFound("challenge %s not found", ch.ID)
	}
	cp := *ch
	r.challenges[ch.ID] = &cp
	return nil
}

func (r *fakeChallengeRepo) ListUnfinalized(ctx context.Context, now time.Time) ([]*challenge.GroupChallenge, error) {
	var out []*challenge.GroupChallenge
	for _, ch := range r.challenges {
		if !ch.Status.Terminal() && !now.Before(ch.EndDate) {
			cp := *ch
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeParticipantRepo fakeStore

func (r *fakeParticipantRepo) Create(ctx context.Context, p *challenge.Participant) error {
	cp := *p
	r.participants[p.ID] = &cp
	return nil
}

func (r *fakeParticipantRepo) Get(ctx context.Context, challengeID, userID uuid.UUID) (*challenge.Participant, error) {
	for _, p := range r.participants {
		if p.ChallengeID == challengeID && p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("user %s is not a participant of challenge %s", userID, challengeID)
}

func (r *fakeParticipantRepo) GetForUpdate(ctx context.Context, challengeID, userID uuid.UUID) (*challenge.Participant, error) {
	return r.Get(ctx, challengeID, userID)
}

func (r *fakeParticipantRepo) GetByID(ctx context.Context, id uuid.UUID) (*challenge.Participant, error) {
	p, ok := r.participants[id]
	if !ok {
		return nil, apperr.NotFound("participant %s not found", id)
	}
	cp := *p
	return &cp, nil
}

func (r *fakeParticipantRepo) Update(ctx context.Context, p *challenge.Participant) error {
	if _, ok := r.participants[p.ID]; !ok {
		return apperr.NotFound("participant %s not found", p.ID)
	}
	cp := *p
	r.participants[p.ID] = &cp
	return nil
}

func (r *fakeParticipantRepo) CountActive(ctx context.Context, challengeID uuid.UUID) (int, error) {
	count := 0
	for _, p := range r.participants {
		if p.ChallengeID == challengeID && p.Status == challenge.ParticipantActive {
			count++
		}
	}
	return count, nil
}

type fakeChallengeTaskRepo fakeStore

func (r *fakeChallengeTaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*challenge.Task, error) {
	t, ok := r.challengeTasks[id]
	if !ok {
		return nil, apperr.NotFound("challenge task %s not found", id)
	}
	cp := *t
	return &cp, nil
}

type fakeChallengeTaskCompletionRepo fakeStore

func (r *fakeChallengeTaskCompletionRepo) Create(ctx context.Context, c *challenge.TaskCompletion) error {
	cp := *c
	r.challengeTaskCompletions[c.ID] = &cp
	return nil
}

func (r *fakeChallengeTaskCompletionRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*challenge.TaskCompletion, error) {
	c, ok := r.challengeTaskCompletions[id]
	if !ok {
		return nil, apperr.NotFound("completion %s not found", id)
	}
	cp := *c
	return &cp, nil
}

func (r *fakeChallengeTaskCompletionRepo) Update(ctx context.Context, c *challenge.TaskCompletion) error {
	if _, ok := r.challengeTaskCompletions[c.ID]; !ok {
		return apperr.NotFound("completion %s not found", c.ID)
	}
	cp := *c
	r.challengeTaskCompletions[c.ID] = &cp
	return nil
}

func (r *fakeChallengeTaskCompletionRepo) CountNonRejected(ctx context.Context, taskID, participantID uuid.UUID) (int, error) {
	count := 0
	for _, c := range r.challengeTaskCompletions {
		if c.ChallengeTaskID == taskID && c.ParticipantID == participantID && c.Status != challenge.CompletionRejected {
			count++
		}
	}
	return count, nil
}

func (r *fakeChallengeTaskCompletionRepo) Count(ctx context.Context, taskID, participantID uuid.UUID) (int, error) {
	count := 0
	for _, c := range r.challengeTaskCompletions {
		if c.ChallengeTaskID == taskID && c.ParticipantID == participantID {
			count++
		}
	}
	return count, nil
}

func (r *fakeChallengeTaskCompletionRepo) HasApproved(ctx context.Context, taskID, participantID uuid.UUID) (bool, error) {
	for _, c := range r.challengeTaskCompletions {
		if c.ChallengeTaskID == taskID && c.ParticipantID == participantID && c.Status == challenge.CompletionApproved {
			return true, nil
		}
	}
	return false, nil
}

type fakeChallengeProgressRepo fakeStore

func (r *fakeChallengeProgressRepo) AddDaily(ctx context.Context, participantID uuid.UUID, date time.Time, delta challenge.ProgressDelta) error {
	key := participantID.String() + date.Format("2006-01-02")
	row, ok := r.progress[key]
	if !ok {
		row = &challenge.Progress{ID: uuid.New(), ParticipantID: participantID, Date: date}
		r.progress[key] = row
	}
	row.ProgressValue += delta.ProgressValue
	row.TasksCompleted += delta.TasksCompleted
	row.XPEarned += delta.XPEarned
	row.PointsEarned += delta.PointsEarned
	row.CumulativeProgress = delta.CumulativeProgress
	row.StreakCount = delta.StreakCount
	return nil
}

type fakeLeaderboardRepo fakeStore

// challengeEntries ranks a challenge's participants with the same
// three-key ordering the SQL uses.
func (r *fakeLeaderboardRepo) challengeEntries(challengeID uuid.UUID) []*leaderboard.ChallengeEntry {
	var ps []*challenge.Participant
	for _, p := range r.participants {
		if p.ChallengeID == challengeID {
			ps = append(ps, p)
		}
	}
	sort.Slice(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.CompletedTasksCount != b.CompletedTasksCount {
			return a.CompletedTasksCount > b.CompletedTasksCount
		}
		if a.CurrentProgress != b.CurrentProgress {
			return a.CurrentProgress > b.CurrentProgress
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.ID.String() < b.ID.String()
	})

	entries := make([]*leaderboard.ChallengeEntry, len(ps))
	for i, p := range ps {
		username := ""
		if c, ok := r.characters[p.UserID]; ok {
			username = c.Username
		}
		rank := i + 1
		if i > 0 {
			prev := ps[i-1]
			if p.TotalPoints == prev.TotalPoints &&
				p.CompletedTasksCount == prev.CompletedTasksCount &&
				p.CurrentProgress == prev.CurrentProgress {
				rank = entries[i-1].Rank
			}
		}
		entries[i] = &leaderboard.ChallengeEntry{
			UserID:              p.UserID,
			Username:            username,
			Rank:                rank,
			TotalPoints:         p.TotalPoints,
			CompletedTasksCount: p.CompletedTasksCount,
			CurrentProgress:     p.CurrentProgress,
		}
	}
	return entries
}

func (r *fakeLeaderboardRepo) ChallengeTop(ctx context.Context, challengeID uuid.UUID, limit, offset int) ([]*leaderboard.ChallengeEntry, error) {
	entries := r.challengeEntries(challengeID)
	if offset >= len(entries) {
		return nil, nil
	}
	entries = entries[offset:]
	if limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *fakeLeaderboardRepo) ChallengeRank(ctx context.Context, challengeID, userID uuid.UUID) (*leaderboard.ChallengeEntry, error) {
	for _, e := range r.challengeEntries(challengeID) {
		if e.UserID == userID {
			return e, nil
		}
	}
	return nil, apperr.NotFound("user %s is not on the leaderboard of challenge %s", userID, challengeID)
}

func (r *fakeLeaderboardRepo) ChallengeParticipantCount(ctx context.Context, challengeID uuid.UUID) (int, error) {
	return len(r.challengeEntries(challengeID)), nil
}

func (r *fakeLeaderboardRepo) GlobalTop(ctx context.Context, limit, offset int) ([]*leaderboard.GlobalEntry, error) {
	return nil, nil
}

func (r *fakeLeaderboardRepo) GlobalRank(ctx context.Context, userID uuid.UUID) (*leaderboard.GlobalEntry, error) {
	return nil, apperr.NotFound("user %s is not ranked", userID)
}

func (r *fakeLeaderboardRepo) GlobalCount(ctx context.Context) (int, error) {
	return 0, nil
}

// recordingPublisher captures events for assertions.
type recordingPublisher struct {
	events []*event.Event
}

func (p *recordingPublisher) Publish(e *event.Event) {
	p.events = append(p.events, e)
}

func (p *recordingPublisher) ofType(t event.Type) []*event.Event {
	var out []*event.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
