package quest

import (
	"context"
	"sync"
	"time"
)

// deadlineManager tracks completion deadlines for accepted quests with a
// time limit. Each deadline is a context-cancelled goroutine; expiry drives
// the policy Active→Failed transition through the normal engine path.
type deadlineManager struct {
	mu     sync.Mutex
	timers map[string]*deadline // key: playerID + ":" + questID
}

type deadline struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func newDeadlineManager() *deadlineManager {
	return &deadlineManager{timers: make(map[string]*deadline, 32)}
}

func deadlineKey(playerID, questID string) string {
	return playerID + ":" + questID
}

// schedule starts a deadline timer. An existing timer for the same
// (player, quest) is cancelled first.
func (m *deadlineManager) schedule(playerID, questID string, d time.Duration, expire func()) {
	key := deadlineKey(playerID, questID)

	ctx, cancel := context.WithCancel(context.Background())
	dl := &deadline{cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	if old, ok := m.timers[key]; ok {
		old.cancel()
		delete(m.timers, key)
	}
	m.timers[key] = dl
	m.mu.Unlock()

	go func() {
		defer close(dl.done)

		t := time.NewTimer(d)
		defer t.Stop()

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		// Deregister before firing so a concurrent cancel from the
		// expiry path itself cannot deadlock on done.
		m.mu.Lock()
		if current, ok := m.timers[key]; !ok || current != dl {
			m.mu.Unlock()
			return
		}
		delete(m.timers, key)
		m.mu.Unlock()

		expire()
	}()
}

// cancel stops the deadline for a (player, quest) if one is pending.
// Fire-and-forget: if the timer already fired, the expiry path finds the
// instance terminal and no-ops.
func (m *deadlineManager) cancel(playerID, questID string) {
	key := deadlineKey(playerID, questID)

	m.mu.Lock()
	dl, ok := m.timers[key]
	if ok {
		delete(m.timers, key)
	}
	m.mu.Unlock()

	if ok {
		dl.cancel()
	}
}

// shutdown cancels all pending deadlines and waits for their goroutines.
func (m *deadlineManager) shutdown() {
	m.mu.Lock()
	all := make([]*deadline, 0, len(m.timers))
	for _, dl := range m.timers {
		all = append(all, dl)
	}
	m.timers = make(map[string]*deadline)
	m.mu.Unlock()

	for _, dl := range all {
		dl.cancel()
		<-dl.done
	}
}

// activeCount returns the number of pending deadlines.
func (m *deadlineManager) activeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}
