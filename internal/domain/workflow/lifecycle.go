package workflow

import (
	"context"

	"github.com/garyjia/rental-billing/internal/domain/entity"
)

// claimBuilder: pending --verify--> verified. Rejected is a known state with no
// way in until disputes are modelled.
func claimBuilder() StateMachineBuilder {
	b := NewBuilder()
	b.Configure(StatePending).
		Permit(TriggerVerify, StateVerified)
	return b
}

// NewClaimMachine positions a claim machine at the claim's stored state
func NewClaimMachine(state entity.ClaimState) (StateMachine, error) {
	return claimBuilder().Build(State(state))
}

// NewBillMachine positions a bill machine at the bill's stored status.
// settled guards the transition to paid and is evaluated when MARK_PAID fires.
func NewBillMachine(status entity.BillStatus, settled GuardFunc) (StateMachine, error) {
	if settled == nil {
		settled = func(context.Context) bool { return false }
	}

	b := NewBuilder()
	b.Configure(StatePending).
		PermitIf(TriggerMarkPaid, StatePaid, settled).
		Permit(TriggerMarkOverdue, StateOverdue).
		Permit(TriggerCancel, StateCancelled)
	b.Configure(StateOverdue).
		PermitIf(TriggerMarkPaid, StatePaid, settled).
		Permit(TriggerCancel, StateCancelled)

	return b.Build(State(status))
}
