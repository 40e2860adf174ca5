package quest

// ObjectiveDelta reports the outcome of applying a gameplay event to an
// instance's current objective.
type ObjectiveDelta struct {
	Index     int   // objective index the event applied to
	Progress  int32 // progress after the increment (clamped)
	Required  int32 // required count of the objective
	Satisfied bool  // objective just reached its required count
}

// Tracker advances a single objective's progress counter for a matching
// event. Stateless; the instance carries all progress.
type Tracker struct{}

// Apply matches the event against the instance's current objective and, if
// it matches, increments progress up to the required count. Events that do
// not match the current objective are ignored: objectives complete strictly
// in the definition's declared sequence, nothing is buffered or applied out
// of order. The second return is false when the event was ignored.
//
// Re-applying an event the instance is already past is a no-op because the
// current objective no longer matches; progress never exceeds the required
// count and never decreases.
func (Tracker) Apply(in *QuestInstance, def *QuestDefinition, ev GameplayEvent) (ObjectiveDelta, bool) {
	if in.status != StatusActive || in.objectiveIndex >= def.ObjectiveCount() {
		return ObjectiveDelta{}, false
	}

	obj := def.Objective(in.objectiveIndex)
	var inc int32
	switch {
	case obj.Kind == ObjectiveTalkToNpc && ev.Kind == EventInteracted && ev.NpcID == obj.Target:
		inc = 1
	case obj.Kind == ObjectiveReturnToNpc && ev.Kind == EventInteracted && ev.NpcID == obj.Target:
		inc = 1
	case obj.Kind == ObjectiveCollectItem && ev.Kind == EventItemCollected && ev.ItemID == obj.Target:
		inc = ev.Quantity
		if inc < 1 {
			inc = 1
		}
	case obj.Kind == ObjectiveMakeChoice && ev.Kind == EventChoiceMade && ev.ChoiceID == obj.Target:
		inc = 1
	default:
		return ObjectiveDelta{}, false
	}

	if in.progress[in.objectiveIndex] >= obj.Required {
		// Already satisfied; duplicate delivery is a no-op.
		return ObjectiveDelta{}, false
	}
	p := in.progress[in.objectiveIndex] + inc
	if p > obj.Required {
		p = obj.Required
	}
	in.progress[in.objectiveIndex] = p

	return ObjectiveDelta{
		Index:     in.objectiveIndex,
		Progress:  p,
		Required:  obj.Required,
		Satisfied: p == obj.Required,
	}, true
}
