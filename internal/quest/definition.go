// Package quest implements the quest progression engine: immutable quest
// definitions, per-player quest instances, prerequisite evaluation, and the
// event-driven state machine that advances objectives and emits lifecycle
// notifications.
package quest

import (
	"fmt"
	"maps"
	"time"
)

// ObjectiveKind identifies the kind of a quest objective.
type ObjectiveKind int

const (
	ObjectiveTalkToNpc   ObjectiveKind = iota // talk to the target NPC
	ObjectiveCollectItem                      // collect Required of the target item
	ObjectiveReturnToNpc                      // return to the target NPC
	ObjectiveMakeChoice                       // resolve the target choice
)

// String returns a stable name for logging.
func (k ObjectiveKind) String() string {
	switch k {
	case ObjectiveTalkToNpc:
		return "talk_to_npc"
	case ObjectiveCollectItem:
		return "collect_item"
	case ObjectiveReturnToNpc:
		return "return_to_npc"
	case ObjectiveMakeChoice:
		return "make_choice"
	default:
		return "unknown"
	}
}

// ObjectiveTemplate is one step of a quest's ordered completion sequence.
type ObjectiveTemplate struct {
	Kind     ObjectiveKind
	Target   string // npc id / item id / choice id, depending on Kind
	Required int32  // required count, >= 1
}

// DefinitionConfig is the explicit construction input for a QuestDefinition.
// Validated fail-fast by NewDefinition; there is no mutable builder.
type DefinitionConfig struct {
	ID            string
	Name          string
	Description   string
	Objectives    []ObjectiveTemplate
	Prerequisites []Condition
	Rewards       map[string]int64
	QuestGiver    string            // opaque external NPC id, optional
	Branches      map[string]string // choice option → follow-up quest id, optional
	TimeLimit     time.Duration     // 0 = no deadline
	Repeatable    bool              // failed instances may be re-accepted
}

// QuestDefinition is an immutable quest template. Created at load time,
// never mutated, safe to share between players.
type QuestDefinition struct {
	id            string
	name          string
	description   string
	objectives    []ObjectiveTemplate
	prerequisites []Condition
	rewards       map[string]int64
	questGiver    string
	branches      map[string]string
	timeLimit     time.Duration
	repeatable    bool
}

// NewDefinition validates the config and builds an immutable definition.
func NewDefinition(cfg DefinitionConfig) (*QuestDefinition, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("quest definition: missing id")
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("quest %q: missing name", cfg.ID)
	}
	if len(cfg.Objectives) == 0 {
		return nil, fmt.Errorf("quest %q: at least one objective required", cfg.ID)
	}
	for i, obj := range cfg.Objectives {
		switch obj.Kind {
		case ObjectiveTalkToNpc, ObjectiveCollectItem, ObjectiveReturnToNpc, ObjectiveMakeChoice:
		default:
			return nil, fmt.Errorf("quest %q objective %d: unknown kind %d", cfg.ID, i, obj.Kind)
		}
		if obj.Target == "" {
			return nil, fmt.Errorf("quest %q objective %d: missing target", cfg.ID, i)
		}
		if obj.Required < 1 {
			return nil, fmt.Errorf("quest %q objective %d: required count %d, want >= 1", cfg.ID, i, obj.Required)
		}
		if obj.Kind == ObjectiveMakeChoice && obj.Required != 1 {
			return nil, fmt.Errorf("quest %q objective %d: choice objectives require exactly 1", cfg.ID, i)
		}
	}
	for option, target := range cfg.Branches {
		if target == "" {
			return nil, fmt.Errorf("quest %q: branch %q has empty follow-up quest id", cfg.ID, option)
		}
	}
	if cfg.TimeLimit < 0 {
		return nil, fmt.Errorf("quest %q: negative time limit", cfg.ID)
	}

	d := &QuestDefinition{
		id:            cfg.ID,
		name:          cfg.Name,
		description:   cfg.Description,
		objectives:    make([]ObjectiveTemplate, len(cfg.Objectives)),
		prerequisites: make([]Condition, len(cfg.Prerequisites)),
		questGiver:    cfg.QuestGiver,
		timeLimit:     cfg.TimeLimit,
		repeatable:    cfg.Repeatable,
	}
	copy(d.objectives, cfg.Objectives)
	copy(d.prerequisites, cfg.Prerequisites)
	if len(cfg.Rewards) > 0 {
		d.rewards = make(map[string]int64, len(cfg.Rewards))
		maps.Copy(d.rewards, cfg.Rewards)
	}
	if len(cfg.Branches) > 0 {
		d.branches = make(map[string]string, len(cfg.Branches))
		maps.Copy(d.branches, cfg.Branches)
	}
	return d, nil
}

// ID returns the quest identifier.
func (d *QuestDefinition) ID() string { return d.id }

// Name returns the display name.
func (d *QuestDefinition) Name() string { return d.name }

// Description returns the quest description.
func (d *QuestDefinition) Description() string { return d.description }

// ObjectiveCount returns the number of objectives.
func (d *QuestDefinition) ObjectiveCount() int { return len(d.objectives) }

// Objective returns the objective template at index i.
func (d *QuestDefinition) Objective(i int) ObjectiveTemplate { return d.objectives[i] }

// Prerequisites returns the prerequisite conditions. Read-only.
func (d *QuestDefinition) Prerequisites() []Condition { return d.prerequisites }

// Rewards returns a copy of the reward table.
func (d *QuestDefinition) Rewards() map[string]int64 {
	if len(d.rewards) == 0 {
		return nil
	}
	out := make(map[string]int64, len(d.rewards))
	maps.Copy(out, d.rewards)
	return out
}

// QuestGiver returns the quest giver NPC id ("" if none).
func (d *QuestDefinition) QuestGiver() string { return d.questGiver }

// Branch returns the follow-up quest id for a choice option ("" if none).
func (d *QuestDefinition) Branch(option string) string { return d.branches[option] }

// TimeLimit returns the completion deadline (0 = none).
func (d *QuestDefinition) TimeLimit() time.Duration { return d.timeLimit }

// Repeatable reports whether a failed instance may be re-accepted.
func (d *QuestDefinition) Repeatable() bool { return d.repeatable }
