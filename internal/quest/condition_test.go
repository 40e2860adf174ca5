package quest

import "testing"

func snapshotWith(level int32, completed []string, choices map[string]string) FactSnapshot {
	snap := FactSnapshot{
		Level:           level,
		CompletedQuests: make(map[string]bool, len(completed)),
		Choices:         choices,
	}
	for _, id := range completed {
		snap.CompletedQuests[id] = true
	}
	return snap
}

func TestEvaluator_PlayerLevel(t *testing.T) {
	e := NewEvaluator()
	cond := MinLevel(10)

	if e.Evaluate(cond, snapshotWith(5, nil, nil)) {
		t.Error("level 5 should not satisfy min level 10")
	}
	if !e.Evaluate(cond, snapshotWith(10, nil, nil)) {
		t.Error("level 10 should satisfy min level 10")
	}
	if !e.Evaluate(cond, snapshotWith(99, nil, nil)) {
		t.Error("level 99 should satisfy min level 10")
	}
}

func TestEvaluator_QuestCompleted(t *testing.T) {
	e := NewEvaluator()
	cond := RequiresQuest("intro_quest")

	if e.Evaluate(cond, snapshotWith(1, nil, nil)) {
		t.Error("missing completion should not satisfy quest_completed")
	}
	if !e.Evaluate(cond, snapshotWith(1, []string{"intro_quest"}, nil)) {
		t.Error("recorded completion should satisfy quest_completed")
	}
}

func TestEvaluator_QuestChoice(t *testing.T) {
	e := NewEvaluator()
	cond := RequiresChoice("help_or_harm", "help")

	if e.Evaluate(cond, snapshotWith(1, nil, nil)) {
		t.Error("no recorded choice should not satisfy quest_choice")
	}
	if e.Evaluate(cond, snapshotWith(1, nil, map[string]string{"help_or_harm": "harm"})) {
		t.Error("different option should not satisfy quest_choice")
	}
	if !e.Evaluate(cond, snapshotWith(1, nil, map[string]string{"help_or_harm": "help"})) {
		t.Error("matching option should satisfy quest_choice")
	}
}

func TestEvaluator_CustomKind(t *testing.T) {
	e := NewEvaluator()
	e.RegisterCustom("weather", func(params map[string]string, snap FactSnapshot) bool {
		return params["is"] == "rain"
	})

	if !e.Evaluate(Custom("weather", map[string]string{"is": "rain"}), FactSnapshot{}) {
		t.Error("registered custom predicate should be consulted")
	}
	if e.Evaluate(Custom("weather", map[string]string{"is": "sun"}), FactSnapshot{}) {
		t.Error("custom predicate returning false should block")
	}
}

func TestEvaluator_UnknownKindIsUnmet(t *testing.T) {
	e := NewEvaluator()

	// A forward-declared kind must block progress, never permit it.
	if e.Evaluate(Custom("moon_phase", nil), snapshotWith(99, nil, nil)) {
		t.Error("unknown custom kind should evaluate to false")
	}
	if e.Evaluate(Condition{Kind: ConditionKind(42)}, FactSnapshot{}) {
		t.Error("unknown condition variant should evaluate to false")
	}
}

func TestEvaluator_EvaluateAll(t *testing.T) {
	e := NewEvaluator()
	snap := snapshotWith(12, []string{"intro_quest"}, nil)

	// Empty set is vacuously true.
	if !e.EvaluateAll(nil, snap) {
		t.Error("empty condition set should be true")
	}

	// Single-element set equals evaluating the condition alone.
	single := MinLevel(10)
	if e.EvaluateAll([]Condition{single}, snap) != e.Evaluate(single, snap) {
		t.Error("singleton set should equal single evaluation")
	}

	all := []Condition{MinLevel(10), RequiresQuest("intro_quest")}
	if !e.EvaluateAll(all, snap) {
		t.Error("all-true conjunction should hold")
	}

	all = append(all, MinLevel(20))
	if e.EvaluateAll(all, snap) {
		t.Error("one false condition should fail the conjunction")
	}
}
