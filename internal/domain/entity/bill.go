package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Bill represents one billing cycle for a tenant at a property
type Bill struct {
	ID         string          `json:"id"`
	PropertyID string          `json:"property_id"`
	TenantID   string          `json:"tenant_id,omitempty"`
	TenantName string          `json:"tenant_name"`
	Period     string          `json:"period"`
	Breakdown  Breakdown       `json:"breakdown"`
	Total      decimal.Decimal `json:"total"`
	Status     BillStatus      `json:"status"`
	DueDate    *time.Time      `json:"due_date,omitempty"`
	CreatedBy  string          `json:"created_by"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`

	// Claims is populated by reads that load the ledger, in submission order
	Claims []*PaymentClaim `json:"claims,omitempty"`
}

// IsCancelled returns true once the bill has been cancelled
func (b *Bill) IsCancelled() bool {
	return b.Status == BillStatusCancelled
}

// FindClaim returns the claim with the given id, or nil
func (b *Bill) FindClaim(claimID string) *PaymentClaim {
	for _, c := range b.Claims {
		if c.ID == claimID {
			return c
		}
	}
	return nil
}

// Breakdown is the itemized composition of a bill. Any section may be nil.
type Breakdown struct {
	Rent        ChargeLine
	Electricity ChargeLine
	Water       ChargeLine
	Internet    ChargeLine
	Others      []AdHocCharge
}

type breakdownJSON struct {
	Rent        json.RawMessage `json:"rent,omitempty"`
	Electricity json.RawMessage `json:"electricity,omitempty"`
	Water       json.RawMessage `json:"water,omitempty"`
	Internet    json.RawMessage `json:"internet,omitempty"`
	Others      []AdHocCharge   `json:"others,omitempty"`
}

// MarshalJSON encodes each section with its kind tag
func (b Breakdown) MarshalJSON() ([]byte, error) {
	var out breakdownJSON
	var err error

	if out.Rent, err = marshalLine(b.Rent); err != nil {
		return nil, err
	}
	if out.Electricity, err = marshalLine(b.Electricity); err != nil {
		return nil, err
	}
	if out.Water, err = marshalLine(b.Water); err != nil {
		return nil, err
	}
	if out.Internet, err = marshalLine(b.Internet); err != nil {
		return nil, err
	}
	out.Others = b.Others

	return json.Marshal(out)
}

// UnmarshalJSON accepts tagged lines as well as legacy bare numbers
func (b *Breakdown) UnmarshalJSON(data []byte) error {
	var in breakdownJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("invalid breakdown: %w", err)
	}

	sections := []struct {
		name string
		raw  json.RawMessage
		dst  *ChargeLine
	}{
		{"rent", in.Rent, &b.Rent},
		{"electricity", in.Electricity, &b.Electricity},
		{"water", in.Water, &b.Water},
		{"internet", in.Internet, &b.Internet},
	}

	for _, s := range sections {
		line, err := ParseChargeLine(s.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		*s.dst = line
	}

	b.Others = in.Others
	return nil
}

func marshalLine(line ChargeLine) (json.RawMessage, error) {
	if line == nil {
		return nil, nil
	}
	return json.Marshal(line)
}
