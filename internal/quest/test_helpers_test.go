package quest

import (
	"sync"
	"testing"
)

// recordingEmitter captures lifecycle events for assertions.
type recordingEmitter struct {
	mu     sync.Mutex
	events []LifecycleEvent
}

func (r *recordingEmitter) Emit(ev LifecycleEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingEmitter) byKind(kind LifecycleKind) []LifecycleEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []LifecycleEvent
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recordingEmitter) countFor(kind LifecycleKind, playerID, questID string) int {
	n := 0
	for _, ev := range r.byKind(kind) {
		if ev.PlayerID == playerID && ev.QuestID == questID {
			n++
		}
	}
	return n
}

// stubFacts is a mutable in-test fact provider.
type stubFacts struct {
	mu    sync.Mutex
	level map[string]int32
}

func newStubFacts() *stubFacts {
	return &stubFacts{level: make(map[string]int32)}
}

func (s *stubFacts) setLevel(playerID string, level int32) {
	s.mu.Lock()
	s.level[playerID] = level
	s.mu.Unlock()
}

func (s *stubFacts) Snapshot(playerID string) FactSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FactSnapshot{Level: s.level[playerID]}
}

func testRegistry(t *testing.T, cfgs ...DefinitionConfig) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, cfg := range cfgs {
		def, err := NewDefinition(cfg)
		if err != nil {
			t.Fatalf("NewDefinition(%s): %v", cfg.ID, err)
		}
		if err := r.Register(def); err != nil {
			t.Fatalf("Register(%s): %v", cfg.ID, err)
		}
	}
	r.Seal()
	return r
}

func newTestEngine(t *testing.T, cfg EngineConfig, defs ...DefinitionConfig) (*Engine, *recordingEmitter, *stubFacts) {
	t.Helper()
	emitter := &recordingEmitter{}
	facts := newStubFacts()
	engine := NewEngine(testRegistry(t, defs...), NewEvaluator(), facts, emitter, cfg)
	t.Cleanup(engine.Shutdown)
	return engine, emitter, facts
}
