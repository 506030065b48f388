package billing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/rental-billing/internal/domain/entity"
)

// SectionSummary is a read-only view of a bill's breakdown for display
type SectionSummary struct {
	BillID      string          `json:"bill_id"`
	Period      string          `json:"period"`
	Rent        Section         `json:"rent"`
	Due         *Section        `json:"due,omitempty"`
	Penalty     *Section        `json:"penalty,omitempty"`
	Electricity Section         `json:"electricity"`
	Water       Section         `json:"water"`
	Internet    Section         `json:"internet"`
	Others      []OtherCharge   `json:"others"`
	Total       decimal.Decimal `json:"total"`
}

// Section is one normalized breakdown section. Usage is set only for metered lines.
type Section struct {
	Kind   entity.ChargeKind `json:"kind,omitempty"`
	Amount decimal.Decimal   `json:"amount"`
	Usage  *UsageDetail      `json:"usage,omitempty"`
}

// UsageDetail keeps the meter readings of a metered section
type UsageDetail struct {
	PreviousUnit decimal.Decimal `json:"previous_unit"`
	CurrentUnit  decimal.Decimal `json:"current_unit"`
	Units        decimal.Decimal `json:"units"`
	Rate         decimal.Decimal `json:"rate"`
}

// OtherCharge is an ad-hoc charge that is not shown in a dedicated section
type OtherCharge struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// labels of ad-hoc charges lifted into the due and penalty sections
var (
	dueLabels     = []string{"due", "previous due", "arrears", "carried forward"}
	penaltyLabels = []string{"penalty", "late fee", "late payment fee"}
)

// GetBillSectionSummary projects a bill into display sections. Fixed and metered
// lines are both reduced to an amount through AmountOf; metered detail is kept.
func GetBillSectionSummary(bill *entity.Bill) *SectionSummary {
	b := bill.Breakdown

	summary := &SectionSummary{
		BillID:      bill.ID,
		Period:      bill.Period,
		Rent:        sectionOf(b.Rent),
		Electricity: sectionOf(b.Electricity),
		Water:       sectionOf(b.Water),
		Internet:    sectionOf(b.Internet),
		Others:      make([]OtherCharge, 0, len(b.Others)),
		Total:       bill.Total,
	}

	for _, c := range b.Others {
		label := strings.ToLower(strings.TrimSpace(c.Label))
		switch {
		case matchesAny(label, dueLabels):
			summary.Due = addTo(summary.Due, c.Amount)
		case matchesAny(label, penaltyLabels):
			summary.Penalty = addTo(summary.Penalty, c.Amount)
		default:
			summary.Others = append(summary.Others, OtherCharge{Label: c.Label, Amount: c.Amount})
		}
	}

	return summary
}

func sectionOf(line entity.ChargeLine) Section {
	s := Section{Amount: AmountOf(line)}
	if line == nil {
		return s
	}

	s.Kind = line.Kind()
	if m, ok := line.(entity.Metered); ok {
		s.Usage = &UsageDetail{
			PreviousUnit: m.PreviousUnit,
			CurrentUnit:  m.CurrentUnit,
			Units:        Units(m),
			Rate:         m.Rate,
		}
	}
	return s
}

func addTo(s *Section, amount decimal.Decimal) *Section {
	if s == nil {
		return &Section{Kind: entity.ChargeKindFixed, Amount: amount}
	}
	s.Amount = s.Amount.Add(amount)
	return s
}

func matchesAny(label string, candidates []string) bool {
	for _, c := range candidates {
		if label == c {
			return true
		}
	}
	return false
}
