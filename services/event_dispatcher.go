package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"levelQuestAPI/internal/types/event"
)

// PushProvider delivers a domain event to the user's devices.
type PushProvider interface {
	SendPush(ctx context.Context, userID uuid.UUID, title, body string, data map[string]any) error
}

// EventDispatcher fans domain events out to the push provider through
// a bounded in-memory queue. It implements EventPublisher.
type EventDispatcher struct {
	pushProvider PushProvider
	workers      int
	jobQueue     chan *event.Event
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

func NewEventDispatcher() *EventDispatcher {
	d := &EventDispatcher{
		workers:  5,
		jobQueue: make(chan *event.Event, 100),
		stopChan: make(chan struct{}),
	}
	d.startWorkers()
	return d
}

// SetPushProvider injects the real provider from main.go. Events
// published before a provider is set are logged and dropped.
func (d *EventDispatcher) SetPushProvider(provider PushProvider) {
	d.pushProvider = provider
}

func (d *EventDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *EventDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case e := <-d.jobQueue:
			d.processEvent(e)
		case <-d.stopChan:
			return
		}
	}
}

// Publish enqueues an event for delivery. It never blocks the caller's
// request path for more than a moment and never reports failure, so
// delivery problems cannot undo a committed transaction.
func (d *EventDispatcher) Publish(e *event.Event) {
	select {
	case d.jobQueue <- e:
	case <-time.After(2 * time.Second):
		log.Printf("Event dispatcher: queue full, dropping %s event for user %s", e.Type, e.UserID)
	}
}

func (d *EventDispatcher) processEvent(e *event.Event) {
	if d.pushProvider == nil {
		log.Printf("Event dispatcher: no push provider, dropping %s event", e.Type)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	title, body := renderEvent(e)
	if err := d.pushProvider.SendPush(ctx, e.UserID, title, body, e.Data); err != nil {
		log.Printf("Event dispatcher: push failed for user %s: %v", e.UserID, err)
	}
}

func renderEvent(e *event.Event) (string, string) {
	switch e.Type {
	case event.TypeLevelUp:
		return "Level up!", "Your character reached a new level."
	case event.TypeRankUp:
		return "Rank up!", "Your character advanced to a new rank."
	case event.TypeStreakMilestone:
		return "Streak milestone!", "Your habit streak hit a milestone."
	default:
		return "Progress update", "You earned XP."
	}
}

// Stop shuts the workers down after the queue drains current jobs.
func (d *EventDispatcher) Stop() {
	close(d.stopChan)
	d.wg.Wait()
}
