// Package billing holds the pure bill arithmetic: utility charges, totals,
// read projections of a bill and its payment ledger, and input validation.
// Nothing here performs I/O.
package billing

import (
	"github.com/shopspring/decimal"

	"github.com/garyjia/rental-billing/internal/domain/entity"
)

// CalculateUtilityCharge prices metered usage as max(0, current-previous) * rate.
// A decreasing reading clamps to zero instead of producing a negative charge;
// rejecting such input is the validation layer's job.
func CalculateUtilityCharge(previousReading, currentReading, ratePerUnit decimal.Decimal) decimal.Decimal {
	usage := currentReading.Sub(previousReading)
	if !usage.IsPositive() {
		return decimal.Zero
	}

	charge := usage.Mul(ratePerUnit)
	if charge.IsNegative() {
		return decimal.Zero
	}
	return charge
}

// AmountOf normalizes any charge line to its amount. A nil line is zero.
func AmountOf(line entity.ChargeLine) decimal.Decimal {
	switch l := line.(type) {
	case entity.Fixed:
		return l.Amount
	case entity.Metered:
		return CalculateUtilityCharge(l.PreviousUnit, l.CurrentUnit, l.Rate)
	default:
		return decimal.Zero
	}
}

// Units returns the consumed units of a metered line, clamped at zero
func Units(m entity.Metered) decimal.Decimal {
	units := m.CurrentUnit.Sub(m.PreviousUnit)
	if units.IsNegative() {
		return decimal.Zero
	}
	return units
}

// ComputeBillTotal sums rent, electricity, water, internet and every ad-hoc charge.
// No rounding is applied.
func ComputeBillTotal(b entity.Breakdown) decimal.Decimal {
	total := AmountOf(b.Rent).
		Add(AmountOf(b.Electricity)).
		Add(AmountOf(b.Water)).
		Add(AmountOf(b.Internet))

	for _, c := range b.Others {
		total = total.Add(c.Amount)
	}
	return total
}
