package quest

import (
	"log/slog"
	"maps"
)

// ConditionKind identifies the closed set of prerequisite condition kinds.
// Forward-declared or modded kinds go through KindCustom; anything the
// evaluator does not recognize evaluates to false so a malformed condition
// blocks progress instead of silently permitting it.
type ConditionKind int

const (
	KindPlayerLevel    ConditionKind = iota // player level >= MinLevel
	KindQuestCompleted                      // QuestID is in the completed set
	KindQuestChoice                         // recorded choice ChoiceID == Option
	KindCustom                              // registered custom predicate
)

// Condition is a tagged variant; only the fields for its kind are set.
// Conditions are pure data and safe to share.
type Condition struct {
	Kind ConditionKind

	MinLevel int32  // KindPlayerLevel
	QuestID  string // KindQuestCompleted
	ChoiceID string // KindQuestChoice
	Option   string // KindQuestChoice

	CustomKind string            // KindCustom
	Params     map[string]string // KindCustom
}

// MinLevel builds a player-level prerequisite.
func MinLevel(level int32) Condition {
	return Condition{Kind: KindPlayerLevel, MinLevel: level}
}

// RequiresQuest builds a quest-completed prerequisite.
func RequiresQuest(questID string) Condition {
	return Condition{Kind: KindQuestCompleted, QuestID: questID}
}

// RequiresChoice builds a quest-choice prerequisite: the player must have
// resolved the given choice with the given option.
func RequiresChoice(choiceID, option string) Condition {
	return Condition{Kind: KindQuestChoice, ChoiceID: choiceID, Option: option}
}

// Custom builds a custom prerequisite dispatched by kind name.
func Custom(kind string, params map[string]string) Condition {
	return Condition{Kind: KindCustom, CustomKind: kind, Params: params}
}

// FactSnapshot is a read-only view of player state supplied per evaluation.
// The engine never mutates it.
type FactSnapshot struct {
	Level           int32
	CompletedQuests map[string]bool   // quest id → completed
	Choices         map[string]string // choice id → chosen option
}

// CustomPredicate evaluates a custom condition kind. Must be pure.
type CustomPredicate func(params map[string]string, snap FactSnapshot) bool

// Evaluator evaluates prerequisite conditions against fact snapshots.
// Read-only after custom kinds are registered; safe for concurrent use.
type Evaluator struct {
	custom map[string]CustomPredicate
}

// NewEvaluator creates an evaluator with no custom kinds registered.
func NewEvaluator() *Evaluator {
	return &Evaluator{custom: make(map[string]CustomPredicate, 4)}
}

// RegisterCustom registers a predicate for a custom condition kind.
// Must be called before the evaluator is shared with the engine.
func (e *Evaluator) RegisterCustom(kind string, fn CustomPredicate) {
	e.custom[kind] = fn
}

// Evaluate returns whether a single condition holds against the snapshot.
// Total and pure: never fails, never blocks.
func (e *Evaluator) Evaluate(c Condition, snap FactSnapshot) bool {
	switch c.Kind {
	case KindPlayerLevel:
		return snap.Level >= c.MinLevel
	case KindQuestCompleted:
		return snap.CompletedQuests[c.QuestID]
	case KindQuestChoice:
		return snap.Choices[c.ChoiceID] == c.Option
	case KindCustom:
		fn, ok := e.custom[c.CustomKind]
		if !ok {
			slog.Warn("unknown condition kind treated as unmet", "kind", c.CustomKind)
			return false
		}
		return fn(cloneParams(c.Params), snap)
	default:
		slog.Warn("unknown condition variant treated as unmet", "kind", int(c.Kind))
		return false
	}
}

// EvaluateAll returns the conjunction of all conditions. An empty set is
// vacuously true.
func (e *Evaluator) EvaluateAll(conds []Condition, snap FactSnapshot) bool {
	for _, c := range conds {
		if !e.Evaluate(c, snap) {
			return false
		}
	}
	return true
}

func cloneParams(params map[string]string) map[string]string {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]string, len(params))
	maps.Copy(out, params)
	return out
}
