package event

// Type identifies a billing event
type Type string

const (
	TypeBillCreated       Type = "bill.created"
	TypeBillStatusChanged Type = "bill.status_changed"
	TypeClaimSubmitted    Type = "claim.submitted"
	TypeClaimVerified     Type = "claim.verified"
	TypeEvidenceUploaded  Type = "evidence.uploaded"
	TypeEvidenceReviewed  Type = "evidence.reviewed"
)

func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeBillCreated,
		TypeBillStatusChanged,
		TypeClaimSubmitted,
		TypeClaimVerified,
		TypeEvidenceUploaded,
		TypeEvidenceReviewed:
		return true
	default:
		return false
	}
}
