package quest

// GameplayEventKind identifies the kind of inbound gameplay event.
type GameplayEventKind int

const (
	EventInteracted    GameplayEventKind = iota // player talked to an NPC
	EventItemCollected                          // player picked up items
	EventChoiceMade                             // player resolved a choice
	EventPlayerJoined                           // player entered the game
)

// String returns a stable name for logging.
func (k GameplayEventKind) String() string {
	switch k {
	case EventInteracted:
		return "interacted"
	case EventItemCollected:
		return "item_collected"
	case EventChoiceMade:
		return "choice_made"
	case EventPlayerJoined:
		return "player_joined"
	default:
		return "unknown"
	}
}

// GameplayEvent carries a single inbound gameplay fact to the engine.
// Only the fields relevant for the kind are set.
type GameplayEvent struct {
	Kind     GameplayEventKind
	NpcID    string // EventInteracted
	ItemID   string // EventItemCollected
	Quantity int32  // EventItemCollected (0 is treated as 1)
	ChoiceID string // EventChoiceMade
	Option   string // EventChoiceMade
}

// Interacted builds an NPC interaction event.
func Interacted(npcID string) GameplayEvent {
	return GameplayEvent{Kind: EventInteracted, NpcID: npcID}
}

// ItemCollected builds an item pickup event.
func ItemCollected(itemID string, quantity int32) GameplayEvent {
	return GameplayEvent{Kind: EventItemCollected, ItemID: itemID, Quantity: quantity}
}

// ChoiceMade builds a choice resolution event.
func ChoiceMade(choiceID, option string) GameplayEvent {
	return GameplayEvent{Kind: EventChoiceMade, ChoiceID: choiceID, Option: option}
}

// PlayerJoined builds a login event. It carries no payload; it exists to
// trigger availability re-evaluation when a player enters the game.
func PlayerJoined() GameplayEvent {
	return GameplayEvent{Kind: EventPlayerJoined}
}

// LifecycleKind identifies the kind of outbound lifecycle notification.
type LifecycleKind int

const (
	LifecycleAvailable LifecycleKind = iota
	LifecycleAccepted
	LifecycleProgressed
	LifecycleCompleted
	LifecycleFailed
	LifecycleAbandoned
	LifecycleChoiceMade
)

// String returns a stable name for logging.
func (k LifecycleKind) String() string {
	switch k {
	case LifecycleAvailable:
		return "quest_available"
	case LifecycleAccepted:
		return "quest_accepted"
	case LifecycleProgressed:
		return "quest_objective_progressed"
	case LifecycleCompleted:
		return "quest_completed"
	case LifecycleFailed:
		return "quest_failed"
	case LifecycleAbandoned:
		return "quest_abandoned"
	case LifecycleChoiceMade:
		return "quest_choice_made"
	default:
		return "unknown"
	}
}

// LifecycleEvent describes a single quest instance state change. The engine
// emits each event exactly once, inside the same locked update that performs
// the transition.
type LifecycleEvent struct {
	Kind     LifecycleKind
	PlayerID string
	QuestID  string

	// LifecycleProgressed
	ObjectiveIndex int
	Progress       int32
	Required       int32

	// LifecycleCompleted
	Rewards map[string]int64

	// LifecycleChoiceMade
	ChoiceID string
	Option   string
}

// LifecycleEmitter receives lifecycle events from the engine. Implemented
// by the dispatcher; implementations must not block.
type LifecycleEmitter interface {
	Emit(ev LifecycleEvent)
}
