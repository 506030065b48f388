package workflow

import "github.com/garyjia/rental-billing/internal/domain/entity"

// State is a lifecycle state of a claim or a bill. Values match the persisted
// entity states so a machine can be positioned directly from a stored row.
type State string

const (
	StatePending   State = State(entity.ClaimStatePending)
	StateVerified  State = State(entity.ClaimStateVerified)
	StateRejected  State = State(entity.ClaimStateRejected)
	StatePaid      State = State(entity.BillStatusPaid)
	StateOverdue   State = State(entity.BillStatusOverdue)
	StateCancelled State = State(entity.BillStatusCancelled)
)

// IsTerminal returns true if no transition may leave the state
func (s State) IsTerminal() bool {
	switch s {
	case StateVerified, StateRejected, StatePaid, StateCancelled:
		return true
	}
	return false
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known lifecycle state
func (s State) IsValid() bool {
	switch s {
	case StatePending, StateVerified, StateRejected, StatePaid, StateOverdue, StateCancelled:
		return true
	}
	return false
}
