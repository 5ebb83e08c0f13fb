package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"levelQuestAPI/internal/types/event"
)

type capturingProvider struct {
	mu     sync.Mutex
	pushes []string
	done   chan struct{}
	want   int
}

func (p *capturingProvider) SendPush(ctx context.Context, userID uuid.UUID, title, body string, data map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, title)
	if len(p.pushes) == p.want {
		close(p.done)
	}
	return nil
}

func TestEventDispatcherDeliversEvents(t *testing.T) {
	provider := &capturingProvider{done: make(chan struct{}), want: 2}

	d := NewEventDispatcher()
	defer d.Stop()
	d.SetPushProvider(provider)

	userID := uuid.New()
	d.Publish(&event.Event{Type: event.TypeLevelUp, UserID: userID})
	d.Publish(&event.Event{Type: event.TypeStreakMilestone, UserID: userID})

	select {
	case <-provider.done:
	case <-time.After(2 * time.Second):
		t.Fatal("events not delivered in time")
	}

	provider.mu.Lock()
	defer provider.mu.Unlock()
	seen := map[string]bool{}
	for _, title := range provider.pushes {
		seen[title] = true
	}
	if !seen["Level up!"] || !seen["Streak milestone!"] {
		t.Errorf("pushes: got %v", provider.pushes)
	}
}

func TestEventDispatcherWithoutProviderDrops(t *testing.T) {
	d := NewEventDispatcher()
	defer d.Stop()

	// Must not panic or block.
	d.Publish(&event.Event{Type: event.TypeProgressUpdate, UserID: uuid.New()})
	time.Sleep(50 * time.Millisecond)
}

func TestRenderEvent(t *testing.T) {
	cases := []struct {
		eventType event.Type
		wantTitle string
	}{
		{event.TypeLevelUp, "Level up!"},
		{event.TypeRankUp, "Rank up!"},
		{event.TypeStreakMilestone, "Streak milestone!"},
		{event.TypeProgressUpdate, "Progress update"},
	}
	for _, c := range cases {
		title, body := renderEvent(&event.Event{Type: c.eventType})
		if title != c.wantTitle {
			t.Errorf("%s: got %q, want %q", c.eventType, title, c.wantTitle)
		}
		if body == "" {
			t.Errorf("%s: empty body", c.eventType)
		}
	}
}
