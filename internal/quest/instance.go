package quest

import (
	"fmt"
	"maps"
	"time"
)

// Status is the lifecycle state of a quest instance. Locked and Available
// are not represented here: no instance exists until acceptance, so
// availability is a query result, not stored state.
type Status int

const (
	StatusActive    Status = iota // in progress
	StatusCompleted               // all objectives satisfied, terminal
	StatusFailed                  // policy or deadline failure, terminal
	StatusAbandoned               // explicit player action, terminal
)

// String returns a stable name for logging and persistence.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further mutation is permitted.
func (s Status) Terminal() bool {
	return s != StatusActive
}

// StatusFromString parses a persisted status name.
func StatusFromString(v string) (Status, error) {
	switch v {
	case "active":
		return StatusActive, nil
	case "completed":
		return StatusCompleted, nil
	case "failed":
		return StatusFailed, nil
	case "abandoned":
		return StatusAbandoned, nil
	default:
		return 0, fmt.Errorf("unknown quest status %q", v)
	}
}

// QuestInstance is one player's mutable progress record against a
// definition. Created on acceptance, retained forever for history, and
// mutated only by the engine under the player's lock.
//
// Invariant: objectiveIndex is a valid position in the definition's
// objective sequence while Active, and equals the sequence length exactly
// when Completed.
type QuestInstance struct {
	questID        string
	status         Status
	objectiveIndex int
	progress       []int32           // per-objective counts, clamped to required
	choices        map[string]string // choice id → chosen option
	acceptedAt     time.Time
	completedAt    time.Time // zero unless Completed
}

func newInstance(def *QuestDefinition, now time.Time) *QuestInstance {
	return &QuestInstance{
		questID:    def.ID(),
		status:     StatusActive,
		progress:   make([]int32, def.ObjectiveCount()),
		acceptedAt: now,
	}
}

// snapshot copies the instance into an exportable value.
func (in *QuestInstance) snapshot() InstanceSnapshot {
	snap := InstanceSnapshot{
		QuestID:        in.questID,
		Status:         in.status,
		ObjectiveIndex: in.objectiveIndex,
		Progress:       make([]int32, len(in.progress)),
		AcceptedAt:     in.acceptedAt,
		CompletedAt:    in.completedAt,
	}
	copy(snap.Progress, in.progress)
	if len(in.choices) > 0 {
		snap.Choices = make(map[string]string, len(in.choices))
		maps.Copy(snap.Choices, in.choices)
	}
	return snap
}

// InstanceSnapshot is a read-only copy of a quest instance, used for
// queries and persistence export.
type InstanceSnapshot struct {
	QuestID        string
	Status         Status
	ObjectiveIndex int
	Progress       []int32
	Choices        map[string]string
	AcceptedAt     time.Time
	CompletedAt    time.Time
}

// PlayerSnapshot is the serializable export of all of a player's instances.
type PlayerSnapshot struct {
	PlayerID  string
	Instances []InstanceSnapshot
}

// instanceFromSnapshot re-validates invariants and rebuilds an instance.
// Returns an error wrapping ErrCorruptSnapshot on any violation rather than
// silently coercing.
func instanceFromSnapshot(snap InstanceSnapshot, def *QuestDefinition) (*QuestInstance, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: unknown quest %q", ErrCorruptSnapshot, snap.QuestID)
	}
	n := def.ObjectiveCount()
	if snap.ObjectiveIndex < 0 || snap.ObjectiveIndex > n {
		return nil, fmt.Errorf("%w: quest %q objective index %d out of range [0,%d]",
			ErrCorruptSnapshot, snap.QuestID, snap.ObjectiveIndex, n)
	}
	switch snap.Status {
	case StatusActive:
		if snap.ObjectiveIndex >= n {
			return nil, fmt.Errorf("%w: quest %q active with objective index %d past last objective",
				ErrCorruptSnapshot, snap.QuestID, snap.ObjectiveIndex)
		}
	case StatusCompleted:
		if snap.ObjectiveIndex != n {
			return nil, fmt.Errorf("%w: quest %q completed with objective index %d, want %d",
				ErrCorruptSnapshot, snap.QuestID, snap.ObjectiveIndex, n)
		}
	case StatusFailed, StatusAbandoned:
	default:
		return nil, fmt.Errorf("%w: quest %q has unknown status %d",
			ErrCorruptSnapshot, snap.QuestID, snap.Status)
	}
	if len(snap.Progress) != n {
		return nil, fmt.Errorf("%w: quest %q has %d progress counters, want %d",
			ErrCorruptSnapshot, snap.QuestID, len(snap.Progress), n)
	}
	for i, p := range snap.Progress {
		if p < 0 || p > def.Objective(i).Required {
			return nil, fmt.Errorf("%w: quest %q objective %d progress %d out of range [0,%d]",
				ErrCorruptSnapshot, snap.QuestID, i, p, def.Objective(i).Required)
		}
	}

	in := &QuestInstance{
		questID:        snap.QuestID,
		status:         snap.Status,
		objectiveIndex: snap.ObjectiveIndex,
		progress:       make([]int32, n),
		acceptedAt:     snap.AcceptedAt,
		completedAt:    snap.CompletedAt,
	}
	copy(in.progress, snap.Progress)
	if len(snap.Choices) > 0 {
		in.choices = make(map[string]string, len(snap.Choices))
		maps.Copy(in.choices, snap.Choices)
	}
	return in, nil
}
