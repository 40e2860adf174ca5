package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nvetoshkin/questline/internal/quest"
)

type recordingSink struct {
	mu     sync.Mutex
	events map[string][]quest.GameplayEvent
}

func newRecordingSink() *recordingSink {
	return &recordingSink{events: make(map[string][]quest.GameplayEvent)}
}

func (s *recordingSink) HandleEvent(playerID string, ev quest.GameplayEvent) {
	s.mu.Lock()
	s.events[playerID] = append(s.events[playerID], ev)
	s.mu.Unlock()
}

func (s *recordingSink) count(playerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events[playerID])
}

func (s *recordingSink) forPlayer(playerID string) []quest.GameplayEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]quest.GameplayEvent, len(s.events[playerID]))
	copy(out, s.events[playerID])
	return out
}

type recordingSubscriber struct {
	mu     sync.Mutex
	events []quest.LifecycleEvent
}

func (s *recordingSubscriber) HandleLifecycle(ev quest.LifecycleEvent) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *recordingSubscriber) snapshot() []quest.LifecycleEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]quest.LifecycleEvent, len(s.events))
	copy(out, s.events)
	return out
}

func startDispatcher(t *testing.T, d *Dispatcher) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := d.Start(ctx); err != nil {
			t.Errorf("Start: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Wait until Submit is accepted.
	deadline := time.Now().Add(time.Second)
	for {
		if err := d.Submit("__probe__", quest.PlayerJoined()); err == nil {
			return cancel
		}
		if time.Now().After(deadline) {
			t.Fatal("dispatcher never started")
		}
		time.Sleep(time.Millisecond)
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestDispatcher_SubmitBeforeStart(t *testing.T) {
	d := New(DefaultConfig())
	d.Bind(newRecordingSink())

	if err := d.Submit("p1", quest.PlayerJoined()); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Submit before Start: err = %v, want ErrNotRunning", err)
	}
}

func TestDispatcher_StartWithoutEngine(t *testing.T) {
	d := New(DefaultConfig())
	if err := d.Start(context.Background()); err == nil {
		t.Error("Start without Bind should return error")
	}
}

func TestDispatcher_PerPlayerOrdering(t *testing.T) {
	sink := newRecordingSink()
	d := New(DefaultConfig())
	d.Bind(sink)
	startDispatcher(t, d)

	const n = 50
	for i := range n {
		if err := d.Submit("p1", quest.ItemCollected(fmt.Sprintf("item%03d", i), 1)); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	waitFor(t, func() bool { return sink.count("p1") == n }, "events not delivered")

	got := sink.forPlayer("p1")
	for i, ev := range got {
		if want := fmt.Sprintf("item%03d", i); ev.ItemID != want {
			t.Fatalf("event %d = %q, want %q (arrival order violated)", i, ev.ItemID, want)
		}
	}
}

func TestDispatcher_PlayersIndependent(t *testing.T) {
	sink := newRecordingSink()
	d := New(DefaultConfig())
	d.Bind(sink)
	startDispatcher(t, d)

	var wg sync.WaitGroup
	for p := range 8 {
		playerID := fmt.Sprintf("p%d", p)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				_ = d.Submit(playerID, quest.Interacted("elder"))
			}
		}()
	}
	wg.Wait()

	waitFor(t, func() bool {
		for p := range 8 {
			if sink.count(fmt.Sprintf("p%d", p)) != 20 {
				return false
			}
		}
		return true
	}, "per-player events not fully delivered")
}

func TestDispatcher_FullPlayerQueueDrops(t *testing.T) {
	// A sink that blocks until released, so the queue can fill up.
	release := make(chan struct{})
	blocking := &blockingSink{release: release}
	d := New(Config{PlayerQueueSize: 2, SubscriberQueueSize: 2})
	d.Bind(blocking)
	startDispatcher(t, d)

	// First event occupies the worker, two fill the queue, the rest drop.
	for range 10 {
		if err := d.Submit("p1", quest.Interacted("elder")); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	close(release)

	waitFor(t, func() bool { return blocking.count() >= 3 }, "queued events not delivered")
	time.Sleep(20 * time.Millisecond)
	if got := blocking.count(); got > 3 {
		t.Errorf("delivered %d events, want at most 3 (rest dropped)", got)
	}
}

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	n       int
}

func (s *blockingSink) HandleEvent(playerID string, _ quest.GameplayEvent) {
	if playerID != "p1" {
		// The start probe uses another player id; ignore it.
		return
	}
	<-s.release
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
}

func (s *blockingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

func TestDispatcher_EmitFansOut(t *testing.T) {
	d := New(DefaultConfig())
	d.Bind(newRecordingSink())

	sub1 := &recordingSubscriber{}
	sub2 := &recordingSubscriber{}
	d.Subscribe("one", sub1)
	d.Subscribe("two", sub2)
	startDispatcher(t, d)

	for i := range 5 {
		d.Emit(quest.LifecycleEvent{
			Kind:     quest.LifecycleProgressed,
			PlayerID: "p1",
			QuestID:  fmt.Sprintf("q%d", i),
		})
	}

	for _, sub := range []*recordingSubscriber{sub1, sub2} {
		waitFor(t, func() bool { return len(sub.snapshot()) == 5 }, "subscriber did not receive all events")
		got := sub.snapshot()
		for i, ev := range got {
			if want := fmt.Sprintf("q%d", i); ev.QuestID != want {
				t.Fatalf("subscriber event %d = %q, want %q (emission order violated)", i, ev.QuestID, want)
			}
		}
	}
}

func TestDispatcher_ShutdownDrainsSubscribers(t *testing.T) {
	d := New(DefaultConfig())
	d.Bind(newRecordingSink())
	sub := &recordingSubscriber{}
	d.Subscribe("drain", sub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Start(ctx)
	}()
	waitFor(t, func() bool { return d.Submit("p", quest.PlayerJoined()) == nil }, "dispatcher never started")

	for range 10 {
		d.Emit(quest.LifecycleEvent{Kind: quest.LifecycleAccepted, PlayerID: "p1", QuestID: "q"})
	}
	cancel()
	<-done

	if got := len(sub.snapshot()); got != 10 {
		t.Errorf("drained %d events on shutdown, want 10", got)
	}
}
