package quest

import (
	"fmt"
	"log/slog"
	"maps"
	"time"
)

// FactProvider supplies the host-side fact snapshot for a player (level,
// externally tracked facts). The engine overlays its own authoritative
// quest facts (completions, recorded choices) before evaluation, so the
// provider does not need to observe quest lifecycle itself.
type FactProvider interface {
	Snapshot(playerID string) FactSnapshot
}

// EngineConfig holds engine tunables.
type EngineConfig struct {
	// MaxActiveQuests caps concurrently Active instances per player.
	// 0 means unlimited.
	MaxActiveQuests int
}

// Engine owns the quest state machine. It is the only writer of quest
// instances; all mutations for one player run under that player's lock
// while different players proceed fully in parallel. The registry and
// evaluator are read-only after load and shared without locking.
type Engine struct {
	registry  *Registry
	eval      *Evaluator
	facts     FactProvider
	emitter   LifecycleEmitter
	store     *InstanceStore
	tracker   Tracker
	deadlines *deadlineManager
	maxActive int
}

// NewEngine constructs an engine with explicit collaborators. No ambient
// lookup: registry, evaluator, fact provider, and emitter are injected.
func NewEngine(registry *Registry, eval *Evaluator, facts FactProvider, emitter LifecycleEmitter, cfg EngineConfig) *Engine {
	return &Engine{
		registry:  registry,
		eval:      eval,
		facts:     facts,
		emitter:   emitter,
		store:     NewInstanceStore(),
		deadlines: newDeadlineManager(),
		maxActive: cfg.MaxActiveQuests,
	}
}

// AcceptQuest transitions a quest from Available to Active for the player.
func (e *Engine) AcceptQuest(playerID, questID string) error {
	def := e.registry.Get(questID)
	if def == nil {
		return fmt.Errorf("accepting quest %q: %w", questID, ErrNotFound)
	}
	snap := e.facts.Snapshot(playerID)

	rec := e.store.player(playerID)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if in, ok := rec.instances[questID]; ok {
		switch in.status {
		case StatusActive:
			return fmt.Errorf("accepting quest %q for player %q: %w", questID, playerID, ErrAlreadyActive)
		case StatusCompleted:
			return fmt.Errorf("accepting quest %q for player %q: %w", questID, playerID, ErrNotAvailable)
		case StatusFailed:
			if !def.Repeatable() {
				return fmt.Errorf("accepting quest %q for player %q: %w", questID, playerID, ErrNotAvailable)
			}
		case StatusAbandoned:
			// Abandoned quests may be picked up again with a fresh instance.
		}
	}
	if e.maxActive > 0 && rec.activeCount() >= e.maxActive {
		return fmt.Errorf("accepting quest %q for player %q: %w", questID, playerID, ErrCapacityExceeded)
	}
	if !e.eval.EvaluateAll(def.Prerequisites(), overlayFacts(rec, snap)) {
		return fmt.Errorf("accepting quest %q for player %q: %w", questID, playerID, ErrNotAvailable)
	}

	rec.instances[questID] = newInstance(def, time.Now())
	delete(rec.announced, questID)

	e.emitter.Emit(LifecycleEvent{Kind: LifecycleAccepted, PlayerID: playerID, QuestID: questID})
	if def.TimeLimit() > 0 {
		e.deadlines.schedule(playerID, questID, def.TimeLimit(), func() {
			e.expire(playerID, questID)
		})
	}

	slog.Info("quest accepted", "playerID", playerID, "questID", questID)
	return nil
}

// AbandonQuest terminates an Active instance by explicit player action. A
// quest that is merely available (offered, never accepted) may be declined
// the same way: the decline is recorded as an Abandoned instance so it
// shows up in history, and the quest stays eligible for later acceptance.
func (e *Engine) AbandonQuest(playerID, questID string) error {
	def := e.registry.Get(questID)
	if def == nil {
		return fmt.Errorf("abandoning quest %q: %w", questID, ErrNotFound)
	}
	snap := e.facts.Snapshot(playerID)

	rec := e.store.player(playerID)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	in, ok := rec.instances[questID]
	switch {
	case !ok:
		if !e.eval.EvaluateAll(def.Prerequisites(), overlayFacts(rec, snap)) {
			return fmt.Errorf("abandoning quest %q for player %q: %w", questID, playerID, ErrNotFound)
		}
		in = newInstance(def, time.Now())
		rec.instances[questID] = in
	case in.status.Terminal():
		return fmt.Errorf("abandoning quest %q for player %q: %w", questID, playerID, ErrInstanceTerminal)
	}

	in.status = StatusAbandoned
	e.deadlines.cancel(playerID, questID)
	e.emitter.Emit(LifecycleEvent{Kind: LifecycleAbandoned, PlayerID: playerID, QuestID: questID})

	slog.Info("quest abandoned", "playerID", playerID, "questID", questID)
	return nil
}

// FailQuest terminates an Active instance by policy (an objective that can
// no longer be satisfied, an expired deadline).
func (e *Engine) FailQuest(playerID, questID string) error {
	return e.terminate(playerID, questID, StatusFailed, LifecycleFailed)
}

func (e *Engine) terminate(playerID, questID string, to Status, kind LifecycleKind) error {
	if e.registry.Get(questID) == nil {
		return fmt.Errorf("terminating quest %q: %w", questID, ErrNotFound)
	}

	rec := e.store.player(playerID)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	in, ok := rec.instances[questID]
	if !ok {
		return fmt.Errorf("terminating quest %q for player %q: %w", questID, playerID, ErrNotFound)
	}
	if in.status.Terminal() {
		return fmt.Errorf("terminating quest %q for player %q: %w", questID, playerID, ErrInstanceTerminal)
	}

	in.status = to
	e.deadlines.cancel(playerID, questID)
	e.emitter.Emit(LifecycleEvent{Kind: kind, PlayerID: playerID, QuestID: questID})

	slog.Info("quest terminated", "playerID", playerID, "questID", questID, "status", to.String())
	return nil
}

// expire is the deadline callback. A terminal instance means the quest
// resolved before the deadline fired; that race is harmless.
func (e *Engine) expire(playerID, questID string) {
	if err := e.FailQuest(playerID, questID); err != nil {
		slog.Debug("quest deadline fired on settled instance",
			"playerID", playerID, "questID", questID, "err", err)
		return
	}
	slog.Info("quest failed on deadline", "playerID", playerID, "questID", questID)
}

// HandleEvent applies one gameplay event for a player: advances matching
// active instances, then re-evaluates availability and announces newly
// available quests. Events that apply to nothing are simply dropped; the
// dispatcher has no caller to report errors to.
func (e *Engine) HandleEvent(playerID string, ev GameplayEvent) {
	snap := e.facts.Snapshot(playerID)

	rec := e.store.player(playerID)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if ev.Kind != EventPlayerJoined {
		for _, questID := range rec.sortedQuestIDs() {
			in := rec.instances[questID]
			if in.status != StatusActive {
				continue
			}
			def := e.registry.Get(questID)
			if def == nil {
				slog.Warn("instance references unregistered quest", "playerID", playerID, "questID", questID)
				continue
			}
			e.advanceLocked(playerID, in, def, ev)
		}
	}

	e.announceLocked(playerID, rec, overlayFacts(rec, snap), ev)
}

// advanceLocked feeds one event to one active instance. Caller holds the
// player lock.
func (e *Engine) advanceLocked(playerID string, in *QuestInstance, def *QuestDefinition, ev GameplayEvent) {
	delta, applied := e.tracker.Apply(in, def, ev)
	if !applied {
		return
	}

	e.emitter.Emit(LifecycleEvent{
		Kind:           LifecycleProgressed,
		PlayerID:       playerID,
		QuestID:        in.questID,
		ObjectiveIndex: delta.Index,
		Progress:       delta.Progress,
		Required:       delta.Required,
	})
	if !delta.Satisfied {
		return
	}

	if def.Objective(delta.Index).Kind == ObjectiveMakeChoice {
		if in.choices == nil {
			in.choices = make(map[string]string, 2)
		}
		in.choices[ev.ChoiceID] = ev.Option
		e.emitter.Emit(LifecycleEvent{
			Kind:     LifecycleChoiceMade,
			PlayerID: playerID,
			QuestID:  in.questID,
			ChoiceID: ev.ChoiceID,
			Option:   ev.Option,
		})
	}

	in.objectiveIndex++
	if in.objectiveIndex < def.ObjectiveCount() {
		return
	}

	in.status = StatusCompleted
	in.completedAt = time.Now()
	e.deadlines.cancel(playerID, in.questID)
	e.emitter.Emit(LifecycleEvent{
		Kind:     LifecycleCompleted,
		PlayerID: playerID,
		QuestID:  in.questID,
		Rewards:  def.Rewards(),
	})

	slog.Info("quest completed", "playerID", playerID, "questID", in.questID)
}

// announceLocked emits QuestAvailable for quests whose prerequisites just
// became satisfied. Availability itself is never stored (no Locked
// instances); the announced set only dedupes notifications. Follow-up
// quests unlocked by a recorded choice go through this same path; there is
// no special branch code. Quests with a quest giver announce only when the
// player interacts with that NPC, mirroring quest marks shown at the giver.
func (e *Engine) announceLocked(playerID string, rec *playerRecords, snap FactSnapshot, ev GameplayEvent) {
	for _, questID := range e.registry.IDs() {
		def := e.registry.Get(questID)
		if giver := def.QuestGiver(); giver != "" {
			if ev.Kind != EventInteracted || ev.NpcID != giver {
				continue
			}
		}
		if rec.announced[questID] || !availableLocked(e.eval, rec, def, snap) {
			continue
		}
		rec.announced[questID] = true
		e.emitter.Emit(LifecycleEvent{Kind: LifecycleAvailable, PlayerID: playerID, QuestID: questID})

		slog.Debug("quest available", "playerID", playerID, "questID", questID)
	}
}

// availableLocked computes Locked→Available eligibility. Caller holds the
// player lock.
func availableLocked(eval *Evaluator, rec *playerRecords, def *QuestDefinition, snap FactSnapshot) bool {
	if in, ok := rec.instances[def.ID()]; ok {
		switch in.status {
		case StatusActive, StatusCompleted:
			return false
		case StatusFailed:
			if !def.Repeatable() {
				return false
			}
		case StatusAbandoned:
		}
	}
	return eval.EvaluateAll(def.Prerequisites(), snap)
}

// overlayFacts merges the engine's authoritative quest facts into the host
// snapshot: completed quest ids and every recorded choice outcome. Caller
// holds the player lock.
func overlayFacts(rec *playerRecords, snap FactSnapshot) FactSnapshot {
	out := FactSnapshot{
		Level:           snap.Level,
		CompletedQuests: make(map[string]bool, len(snap.CompletedQuests)+len(rec.instances)),
		Choices:         make(map[string]string, len(snap.Choices)+4),
	}
	maps.Copy(out.CompletedQuests, snap.CompletedQuests)
	maps.Copy(out.Choices, snap.Choices)
	for questID, in := range rec.instances {
		if in.status == StatusCompleted {
			out.CompletedQuests[questID] = true
		}
		for choiceID, option := range in.choices {
			out.Choices[choiceID] = option
		}
	}
	return out
}

// IsAvailable reports whether the quest could be accepted by the player
// right now.
func (e *Engine) IsAvailable(playerID, questID string) (bool, error) {
	def := e.registry.Get(questID)
	if def == nil {
		return false, fmt.Errorf("checking quest %q: %w", questID, ErrNotFound)
	}
	snap := e.facts.Snapshot(playerID)

	rec := e.store.player(playerID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return availableLocked(e.eval, rec, def, overlayFacts(rec, snap)), nil
}

// ListActiveQuests returns snapshots of the player's Active instances in
// quest id order.
func (e *Engine) ListActiveQuests(playerID string) []InstanceSnapshot {
	rec := e.store.player(playerID)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	var out []InstanceSnapshot
	for _, questID := range rec.sortedQuestIDs() {
		if in := rec.instances[questID]; in.status == StatusActive {
			out = append(out, in.snapshot())
		}
	}
	return out
}

// GetProgress returns a snapshot of the player's instance for a quest.
func (e *Engine) GetProgress(playerID, questID string) (InstanceSnapshot, error) {
	rec := e.store.player(playerID)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	in, ok := rec.instances[questID]
	if !ok {
		return InstanceSnapshot{}, fmt.Errorf("progress of quest %q for player %q: %w", questID, playerID, ErrNotFound)
	}
	return in.snapshot(), nil
}

// ExportState returns a serializable snapshot of all of the player's
// instances, in quest id order.
func (e *Engine) ExportState(playerID string) PlayerSnapshot {
	rec := e.store.player(playerID)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	snap := PlayerSnapshot{PlayerID: playerID}
	for _, questID := range rec.sortedQuestIDs() {
		snap.Instances = append(snap.Instances, rec.instances[questID].snapshot())
	}
	return snap
}

// RestoreState replaces the player's instances from a persisted snapshot.
// Every instance is re-validated against its definition; any violation
// fails with ErrCorruptSnapshot and leaves the in-memory state untouched.
// Deadlines of restored Active quests resume with their remaining time.
func (e *Engine) RestoreState(playerID string, snap PlayerSnapshot) error {
	restored := make(map[string]*QuestInstance, len(snap.Instances))
	for _, is := range snap.Instances {
		if _, dup := restored[is.QuestID]; dup {
			return fmt.Errorf("restoring player %q: %w: duplicate quest %q", playerID, ErrCorruptSnapshot, is.QuestID)
		}
		in, err := instanceFromSnapshot(is, e.registry.Get(is.QuestID))
		if err != nil {
			return fmt.Errorf("restoring player %q: %w", playerID, err)
		}
		restored[is.QuestID] = in
	}

	rec := e.store.player(playerID)
	rec.mu.Lock()
	for questID := range rec.instances {
		e.deadlines.cancel(playerID, questID)
	}
	rec.instances = restored
	rec.announced = make(map[string]bool, 4)

	var expired []string
	now := time.Now()
	for questID, in := range restored {
		def := e.registry.Get(questID)
		if in.status != StatusActive || def.TimeLimit() == 0 {
			continue
		}
		remaining := def.TimeLimit() - now.Sub(in.acceptedAt)
		if remaining <= 0 {
			expired = append(expired, questID)
			continue
		}
		e.deadlines.schedule(playerID, questID, remaining, func() {
			e.expire(playerID, questID)
		})
	}
	rec.mu.Unlock()

	for _, questID := range expired {
		e.expire(playerID, questID)
	}

	slog.Info("player state restored", "playerID", playerID, "instances", len(restored))
	return nil
}

// Shutdown cancels all pending deadlines.
func (e *Engine) Shutdown() {
	e.deadlines.shutdown()
}
