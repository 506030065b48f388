package entity

// Actor is the identity performing a billing or ledger operation.
// It is always passed explicitly; services never look it up on their own.
type Actor struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Role   Party  `json:"role"`
}

// IsOwner returns true if the actor acts on the owning (landlord) side
func (a Actor) IsOwner() bool {
	return a.Role == PartyOwner
}

// IsValid returns true if the actor carries a user id and a known role
func (a Actor) IsValid() bool {
	return a.UserID != "" && a.Role.IsValid()
}
