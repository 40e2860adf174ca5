package quest

import (
	"slices"
	"sync"
)

// playerRecords holds one player's instance set. All mutation happens under
// mu, so concurrent events for the same player are applied one at a time in
// arrival order while different players proceed in parallel.
type playerRecords struct {
	mu        sync.Mutex
	instances map[string]*QuestInstance // quest id → instance
	announced map[string]bool           // quest ids already announced as available
}

// InstanceStore keeps per-player quest instance records. The outer map is
// guarded separately from the per-player locks; the store only grows
// (instances are retained for history).
type InstanceStore struct {
	mu      sync.RWMutex
	players map[string]*playerRecords
}

// NewInstanceStore creates an empty store.
func NewInstanceStore() *InstanceStore {
	return &InstanceStore{players: make(map[string]*playerRecords, 256)}
}

// player returns the records for a player, creating them on first use.
func (s *InstanceStore) player(playerID string) *playerRecords {
	s.mu.RLock()
	rec := s.players[playerID]
	s.mu.RUnlock()
	if rec != nil {
		return rec
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec = s.players[playerID]; rec == nil {
		rec = &playerRecords{
			instances: make(map[string]*QuestInstance, 4),
			announced: make(map[string]bool, 4),
		}
		s.players[playerID] = rec
	}
	return rec
}

// activeCount counts Active instances. Caller must hold rec.mu.
func (rec *playerRecords) activeCount() int {
	n := 0
	for _, in := range rec.instances {
		if in.status == StatusActive {
			n++
		}
	}
	return n
}

// sortedQuestIDs returns the player's instanced quest ids in sorted order
// for deterministic processing. Caller must hold rec.mu.
func (rec *playerRecords) sortedQuestIDs() []string {
	ids := make([]string, 0, len(rec.instances))
	for id := range rec.instances {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
