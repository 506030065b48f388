package port

import "errors"

var (
	ErrBillNotFound       = errors.New("bill not found")
	ErrClaimNotFound      = errors.New("payment claim not found")
	ErrClaimNotPending    = errors.New("payment claim is not pending")
	ErrBillCancelled      = errors.New("bill is cancelled")
	ErrNotCounterParty    = errors.New("only the counter-party can verify a payment claim")
	ErrForbidden          = errors.New("action not allowed for this role")
	ErrRejectNotSupported = errors.New("rejecting payment claims is not supported")
	ErrBillNotSettled     = errors.New("bill still has a remaining amount")
	ErrStatusConflict     = errors.New("bill status changed concurrently")
	ErrEvidenceNotFound   = errors.New("evidence not found")
	ErrEvidenceTooLarge   = errors.New("evidence file is too large")
	ErrReviewNotFound     = errors.New("evidence review not found")
)
