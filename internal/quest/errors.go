package quest

import "errors"

// Engine error taxonomy. All errors are returned synchronously to the
// caller of the triggering operation; gameplay events that cannot be
// applied are logged and dropped instead (the dispatcher has no caller
// to report to).
var (
	// ErrNotFound indicates an unknown quest id or a missing instance.
	ErrNotFound = errors.New("quest not found")

	// ErrNotAvailable indicates unmet prerequisites.
	ErrNotAvailable = errors.New("quest not available")

	// ErrAlreadyActive indicates an Active instance already exists.
	ErrAlreadyActive = errors.New("quest already active")

	// ErrInstanceTerminal indicates a mutation attempt on a
	// Completed/Failed/Abandoned instance.
	ErrInstanceTerminal = errors.New("quest instance is terminal")

	// ErrCapacityExceeded indicates the player's active quest limit is
	// reached.
	ErrCapacityExceeded = errors.New("active quest limit reached")

	// ErrCorruptSnapshot indicates a restored snapshot violated instance
	// invariants.
	ErrCorruptSnapshot = errors.New("corrupt quest snapshot")
)
