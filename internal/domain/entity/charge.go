package entity

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// ChargeKind tags the variant of a ChargeLine
type ChargeKind string

// Charge kinds
const (
	ChargeKindFixed   ChargeKind = "fixed"
	ChargeKindMetered ChargeKind = "metered"
)

// ChargeLine is one section of a bill breakdown. It is either a Fixed amount
// or a Metered usage record; the set of variants is closed.
type ChargeLine interface {
	Kind() ChargeKind
	chargeLine()
}

// Fixed is a flat charge
type Fixed struct {
	Amount decimal.Decimal `json:"amount"`
}

// Metered is a usage record priced per unit
type Metered struct {
	PreviousUnit decimal.Decimal `json:"previous_unit"`
	CurrentUnit  decimal.Decimal `json:"current_unit"`
	Rate         decimal.Decimal `json:"rate"`
}

// NewFixed is a convenience constructor for whole-number fixed charges
func NewFixed(amount int64) Fixed {
	return Fixed{Amount: decimal.NewFromInt(amount)}
}

// NewMetered is a convenience constructor for whole-number meter readings
func NewMetered(previous, current, rate int64) Metered {
	return Metered{
		PreviousUnit: decimal.NewFromInt(previous),
		CurrentUnit:  decimal.NewFromInt(current),
		Rate:         decimal.NewFromInt(rate),
	}
}

func (Fixed) Kind() ChargeKind   { return ChargeKindFixed }
func (Metered) Kind() ChargeKind { return ChargeKindMetered }
func (Fixed) chargeLine()        {}
func (Metered) chargeLine()      {}

// MarshalJSON writes the fixed line with its kind tag
func (f Fixed) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind   ChargeKind      `json:"kind"`
		Amount decimal.Decimal `json:"amount"`
	}{ChargeKindFixed, f.Amount})
}

// MarshalJSON writes the metered line with its kind tag
func (m Metered) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind         ChargeKind      `json:"kind"`
		PreviousUnit decimal.Decimal `json:"previous_unit"`
		CurrentUnit  decimal.Decimal `json:"current_unit"`
		Rate         decimal.Decimal `json:"rate"`
	}{ChargeKindMetered, m.PreviousUnit, m.CurrentUnit, m.Rate})
}

// chargeLineJSON is the wire shape accepted for a charge line object
type chargeLineJSON struct {
	Kind         ChargeKind       `json:"kind"`
	Amount       *decimal.Decimal `json:"amount"`
	PreviousUnit *decimal.Decimal `json:"previous_unit"`
	CurrentUnit  *decimal.Decimal `json:"current_unit"`
	Rate         *decimal.Decimal `json:"rate"`
}

// ParseChargeLine decodes a charge line. A bare number (or numeric string) is
// read as a Fixed line, an object with meter readings as Metered. A missing or
// null value yields a nil line.
func ParseChargeLine(data []byte) (ChargeLine, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	if data[0] != '{' {
		var amount decimal.Decimal
		if err := amount.UnmarshalJSON(data); err != nil {
			return nil, fmt.Errorf("invalid charge amount %s: %w", data, err)
		}
		return Fixed{Amount: amount}, nil
	}

	var raw chargeLineJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid charge line: %w", err)
	}

	metered := raw.Kind == ChargeKindMetered ||
		(raw.Kind == "" && (raw.PreviousUnit != nil || raw.CurrentUnit != nil))

	switch {
	case metered:
		return Metered{
			PreviousUnit: valueOrZero(raw.PreviousUnit),
			CurrentUnit:  valueOrZero(raw.CurrentUnit),
			Rate:         valueOrZero(raw.Rate),
		}, nil
	case raw.Kind == "" || raw.Kind == ChargeKindFixed:
		return Fixed{Amount: valueOrZero(raw.Amount)}, nil
	default:
		return nil, fmt.Errorf("unknown charge kind: %s", raw.Kind)
	}
}

func valueOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// AdHocCharge is a named extra charge (maintenance, parking, penalty...)
type AdHocCharge struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}
