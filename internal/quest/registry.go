package quest

import (
	"fmt"
	"log/slog"
	"slices"
)

// Registry is the immutable catalog of quest definitions. Definitions are
// registered during load and the registry is read-only afterwards, so it is
// shared between players without locking.
type Registry struct {
	byID   map[string]*QuestDefinition
	ids    []string // sorted, for deterministic iteration
	sealed bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*QuestDefinition, 64)}
}

// Register adds a definition. Duplicate ids are rejected.
func (r *Registry) Register(d *QuestDefinition) error {
	if r.sealed {
		return fmt.Errorf("registry sealed, cannot register quest %q", d.ID())
	}
	if _, exists := r.byID[d.ID()]; exists {
		return fmt.Errorf("quest %q already registered", d.ID())
	}
	r.byID[d.ID()] = d

	slog.Debug("quest registered", "questID", d.ID(), "name", d.Name())
	return nil
}

// Seal freezes the registry after load. Further Register calls fail.
func (r *Registry) Seal() {
	r.ids = make([]string, 0, len(r.byID))
	for id := range r.byID {
		r.ids = append(r.ids, id)
	}
	slices.Sort(r.ids)
	r.sealed = true

	slog.Info("quest registry sealed", "count", len(r.ids))
}

// Get returns a definition by id (nil if unknown).
func (r *Registry) Get(questID string) *QuestDefinition {
	return r.byID[questID]
}

// IDs returns all quest ids in sorted order. Only valid after Seal.
func (r *Registry) IDs() []string {
	return r.ids
}

// Count returns the number of registered definitions.
func (r *Registry) Count() int {
	return len(r.byID)
}
