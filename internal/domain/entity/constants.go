package entity

// BillStatus is the lifecycle status of a bill
type BillStatus string

// Bill status constants
const (
	BillStatusPending   BillStatus = "pending"
	BillStatusPaid      BillStatus = "paid"
	BillStatusOverdue   BillStatus = "overdue"
	BillStatusCancelled BillStatus = "cancelled"
)

// IsValid reports whether s is one of the defined bill statuses
func (s BillStatus) IsValid() bool {
	switch s {
	case BillStatusPending, BillStatusPaid, BillStatusOverdue, BillStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true when no further lifecycle transition is possible
func (s BillStatus) IsTerminal() bool {
	return s == BillStatusPaid || s == BillStatusCancelled
}

// ClaimState is the verification state of a payment claim.
// Rejected is part of the enumeration but no operation produces it yet.
type ClaimState string

// Claim state constants
const (
	ClaimStatePending  ClaimState = "pending"
	ClaimStateVerified ClaimState = "verified"
	ClaimStateRejected ClaimState = "rejected"
)

// IsValid reports whether s is one of the defined claim states
func (s ClaimState) IsValid() bool {
	switch s {
	case ClaimStatePending, ClaimStateVerified, ClaimStateRejected:
		return true
	default:
		return false
	}
}

// Party identifies a side of the rental relationship
type Party string

// Party constants
const (
	PartyTenant Party = "tenant"
	PartyOwner  Party = "owner"
)

// IsValid reports whether p is tenant or owner
func (p Party) IsValid() bool {
	return p == PartyTenant || p == PartyOwner
}

// CounterParty returns the opposite side. Unknown parties have no counter-party.
func (p Party) CounterParty() Party {
	switch p {
	case PartyTenant:
		return PartyOwner
	case PartyOwner:
		return PartyTenant
	default:
		return ""
	}
}
