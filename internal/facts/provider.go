// Package facts provides an in-memory fact provider for hosts that do not
// have their own game-state store. The engine overlays quest completions
// and choices itself; this provider only tracks host-owned facts such as
// player level.
package facts

import (
	"maps"
	"sync"

	"github.com/nvetoshkin/questline/internal/quest"
)

// Provider is a thread-safe in-memory quest.FactProvider.
type Provider struct {
	mu        sync.RWMutex
	levels    map[string]int32
	completed map[string]map[string]bool
	choices   map[string]map[string]string
}

// NewProvider creates an empty provider.
func NewProvider() *Provider {
	return &Provider{
		levels:    make(map[string]int32, 256),
		completed: make(map[string]map[string]bool, 256),
		choices:   make(map[string]map[string]string, 256),
	}
}

// SetLevel records a player's level.
func (p *Provider) SetLevel(playerID string, level int32) {
	p.mu.Lock()
	p.levels[playerID] = level
	p.mu.Unlock()
}

// SetCompleted records an externally known quest completion, e.g. imported
// from a previous save the engine never saw.
func (p *Provider) SetCompleted(playerID, questID string) {
	p.mu.Lock()
	if p.completed[playerID] == nil {
		p.completed[playerID] = make(map[string]bool, 4)
	}
	p.completed[playerID][questID] = true
	p.mu.Unlock()
}

// SetChoice records an externally known choice outcome.
func (p *Provider) SetChoice(playerID, choiceID, option string) {
	p.mu.Lock()
	if p.choices[playerID] == nil {
		p.choices[playerID] = make(map[string]string, 4)
	}
	p.choices[playerID][choiceID] = option
	p.mu.Unlock()
}

// Snapshot returns a fresh read-only fact snapshot for the player.
func (p *Provider) Snapshot(playerID string) quest.FactSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snap := quest.FactSnapshot{
		Level:           p.levels[playerID],
		CompletedQuests: make(map[string]bool, len(p.completed[playerID])),
		Choices:         make(map[string]string, len(p.choices[playerID])),
	}
	maps.Copy(snap.CompletedQuests, p.completed[playerID])
	maps.Copy(snap.Choices, p.choices[playerID])
	return snap
}
