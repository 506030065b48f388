package billing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/rental-billing/internal/domain/entity"
	"github.com/garyjia/rental-billing/pkg/utils"
)

// Messages shown to the user verbatim
const (
	MsgPaidAmountPositive = "Paid amount must be greater than 0"
	MsgEvidenceType       = "Evidence file must be a PDF or an image"
	MsgEvidenceURL        = "Evidence URL is required"
	MsgPayerRole          = "Payer must be tenant or owner"
	MsgTenantNameRequired = "Tenant name is required"
	MsgPropertyRequired   = "Property is required"
	MsgPeriodRequired     = "Billing period is required"
	MsgRentRequired       = "Rent is required"
	MsgEvidenceEmpty      = "Evidence file is empty"
	MsgEvidenceUnreadable = "Evidence PDF could not be read"
	MsgPaidAmountNumber   = "Paid amount must be a number"
	MsgBillRequired       = "Bill details are required"
	MsgClaimRequired      = "Payment details are required"
)

// ValidationError is a rejected input with a human readable message naming the field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidationErrors collects every problem found in one submission
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Messages returns the individual messages
func (v ValidationErrors) Messages() []string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Message
	}
	return msgs
}

// errOrNil avoids returning a typed nil inside an error interface
func (v ValidationErrors) errOrNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// IsValidationError reports whether err (or anything it wraps) is a validation failure
func IsValidationError(err error) bool {
	var single *ValidationError
	var multi ValidationErrors
	return errors.As(err, &single) || errors.As(err, &multi)
}

// BillInput is the owner-supplied data for a new bill
type BillInput struct {
	PropertyID string
	TenantID   string
	TenantName string
	Period     string
	DueDate    *time.Time
	Breakdown  entity.Breakdown
}

// ValidateBillInput trims the text fields in place and validates everything,
// returning ValidationErrors when anything is wrong.
func ValidateBillInput(in *BillInput) error {
	if in == nil {
		return newValidationError("bill", MsgBillRequired)
	}
	in.PropertyID = utils.CleanText(in.PropertyID)
	in.TenantID = utils.CleanText(in.TenantID)
	in.TenantName = utils.CleanText(in.TenantName)
	in.Period = utils.CleanText(in.Period)

	var errs ValidationErrors
	if in.PropertyID == "" {
		errs = append(errs, newValidationError("property_id", MsgPropertyRequired))
	}
	if in.TenantName == "" {
		errs = append(errs, newValidationError("tenant_name", MsgTenantNameRequired))
	}
	if in.Period == "" {
		errs = append(errs, newValidationError("period", MsgPeriodRequired))
	}
	if in.Breakdown.Rent == nil {
		errs = append(errs, newValidationError("rent", MsgRentRequired))
	}

	errs = append(errs, ValidateBreakdown(&in.Breakdown)...)
	return errs.errOrNil()
}

// ValidateBreakdown checks every charge is non-negative, every meter reading is
// monotonic and every ad-hoc charge is labelled. Labels are trimmed in place.
func ValidateBreakdown(b *entity.Breakdown) ValidationErrors {
	var errs ValidationErrors

	errs = append(errs, validateLine("rent", "Rent", b.Rent)...)
	errs = append(errs, validateLine("electricity", "Electricity", b.Electricity)...)
	errs = append(errs, validateLine("water", "Water", b.Water)...)
	errs = append(errs, validateLine("internet", "Internet", b.Internet)...)

	for i := range b.Others {
		c := &b.Others[i]
		c.Label = utils.CleanText(c.Label)
		field := fmt.Sprintf("others[%d]", i)

		if c.Label == "" {
			errs = append(errs, newValidationError(field+".label", "Other charge #%d label is required", i+1))
		}
		if c.Amount.IsNegative() {
			name := c.Label
			if name == "" {
				name = fmt.Sprintf("#%d", i+1)
			}
			errs = append(errs, newValidationError(field+".amount", "Other charge %s amount must be greater than or equal to 0", name))
		}
	}

	return errs
}

func validateLine(field, label string, line entity.ChargeLine) ValidationErrors {
	var errs ValidationErrors

	switch l := line.(type) {
	case entity.Fixed:
		if l.Amount.IsNegative() {
			errs = append(errs, newValidationError(field, "%s must be greater than or equal to 0", label))
		}
	case entity.Metered:
		if l.PreviousUnit.IsNegative() {
			errs = append(errs, newValidationError(field+".previous_unit", "%s previous unit must be greater than or equal to 0", label))
		}
		if l.CurrentUnit.IsNegative() {
			errs = append(errs, newValidationError(field+".current_unit", "%s current unit must be greater than or equal to 0", label))
		}
		if l.Rate.IsNegative() {
			errs = append(errs, newValidationError(field+".rate", "%s rate must be greater than or equal to 0", label))
		}
		if l.CurrentUnit.LessThan(l.PreviousUnit) {
			errs = append(errs, newValidationError(field+".current_unit", "%s current unit must be greater than or equal to previous unit", label))
		}
	}

	return errs
}

// ValidatePaidAmount requires a strictly positive claim amount
func ValidatePaidAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return newValidationError("amount", MsgPaidAmountPositive)
	}
	return nil
}

// ValidateEvidence accepts nil (no evidence) or a reference whose type, when
// given, is a PDF or an image
func ValidateEvidence(e *entity.Evidence) error {
	if e == nil {
		return nil
	}
	e.URL = strings.TrimSpace(e.URL)
	e.Name = utils.CleanText(e.Name)

	if e.URL == "" {
		return newValidationError("evidence.url", MsgEvidenceURL)
	}
	e.MimeType = strings.TrimSpace(e.MimeType)
	// an absent type is left to the reader to sniff
	if e.MimeType != "" && !IsAllowedEvidenceType(e.MimeType) {
		return newValidationError("evidence.mime_type", MsgEvidenceType)
	}
	return nil
}

// IsAllowedEvidenceType reports whether a MIME type is a PDF or an image
func IsAllowedEvidenceType(mimeType string) bool {
	e := &entity.Evidence{MimeType: mimeType}
	return e.IsPDF() || e.IsImage()
}

// ValidateEvidenceFile checks an uploaded file's sniffed type and size.
// maxBytes <= 0 disables the size limit.
func ValidateEvidenceFile(mimeType string, size, maxBytes int64) error {
	if size == 0 {
		return newValidationError("file", MsgEvidenceEmpty)
	}
	if maxBytes > 0 && size > maxBytes {
		return newValidationError("file", "Evidence file must be at most %s", humanSize(maxBytes))
	}
	if !IsAllowedEvidenceType(mimeType) {
		return newValidationError("file", MsgEvidenceType)
	}
	return nil
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

// ClaimInput is a payment claim before it is recorded
type ClaimInput struct {
	Amount   decimal.Decimal
	Remarks  string
	Payer    entity.Party
	Evidence *entity.Evidence
}

// ValidateClaimInput checks amount, payer and evidence, trimming remarks in place
func ValidateClaimInput(in *ClaimInput) error {
	if in == nil {
		return newValidationError("claim", MsgClaimRequired)
	}
	in.Remarks = utils.CleanText(in.Remarks)

	if err := ValidatePaidAmount(in.Amount); err != nil {
		return err
	}
	if !in.Payer.IsValid() {
		return newValidationError("payer", MsgPayerRole)
	}
	return ValidateEvidence(in.Evidence)
}
