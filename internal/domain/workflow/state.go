package workflow

import "github.com/garyjia/personal-ledger/internal/domain/entity"

// State represents a status in the approval request lifecycle
type State string

const (
	StateDraft     State = entity.StatusDraft
	StatePending   State = entity.StatusPending
	StateApproved  State = entity.StatusApproved
	StateRejected  State = entity.StatusRejected
	StateCancelled State = entity.StatusCancelled
)

var terminalStates = map[State]bool{
	StateApproved:  true,
	StateRejected:  true,
	StateCancelled: true,
}

// IsTerminal returns true if no further transitions leave the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known request status
func (s State) IsValid() bool {
	return entity.IsValidStatus(string(s))
}
