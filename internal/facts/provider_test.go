package facts

import (
	"sync"
	"testing"
)

func TestProvider_Snapshot(t *testing.T) {
	p := NewProvider()
	p.SetLevel("p1", 12)
	p.SetCompleted("p1", "intro_quest")
	p.SetChoice("p1", "help_or_harm", "help")

	snap := p.Snapshot("p1")
	if snap.Level != 12 {
		t.Errorf("Level = %d, want 12", snap.Level)
	}
	if !snap.CompletedQuests["intro_quest"] {
		t.Error("completion missing from snapshot")
	}
	if snap.Choices["help_or_harm"] != "help" {
		t.Errorf("Choices = %v, want help_or_harm=help", snap.Choices)
	}

	// Snapshots are detached copies.
	snap.CompletedQuests["scroll_recovery"] = true
	if p.Snapshot("p1").CompletedQuests["scroll_recovery"] {
		t.Error("mutating a snapshot leaked back into the provider")
	}

	empty := p.Snapshot("p2")
	if empty.Level != 0 || len(empty.CompletedQuests) != 0 || len(empty.Choices) != 0 {
		t.Errorf("unknown player snapshot = %+v, want empty", empty)
	}
}

func TestProvider_ConcurrentAccess(t *testing.T) {
	p := NewProvider()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				p.SetLevel("p1", int32(i))
				p.SetCompleted("p1", "q")
				_ = p.Snapshot("p1")
			}
		}()
	}
	wg.Wait()

	if !p.Snapshot("p1").CompletedQuests["q"] {
		t.Error("completion lost under concurrent writes")
	}
}
