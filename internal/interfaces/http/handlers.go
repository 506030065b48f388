package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/domain/billing"
	"github.com/garyjia/rental-billing/internal/domain/entity"
	"github.com/garyjia/rental-billing/internal/domain/workflow"
)

// uploadSlack leaves room for multipart framing around the file itself
const uploadSlack = 1 << 20

// Handlers contains all HTTP request handlers
type Handlers struct {
	services       Services
	version        string
	maxUploadBytes int64
	logger         Logger
}

// NewHandlers creates a new Handlers instance.
// Uploads larger than maxUploadBytes are cut off before they reach memory.
func NewHandlers(services Services, version string, maxUploadBytes int64, logger Logger) *Handlers {
	return &Handlers{
		services:       services,
		version:        version,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details []string    `json:"details,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateBillRequest is the body of POST /api/bills
type CreateBillRequest struct {
	PropertyID string           `json:"property_id"`
	TenantID   string           `json:"tenant_id"`
	TenantName string           `json:"tenant_name"`
	Period     string           `json:"period"`
	DueDate    string           `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Breakdown  entity.Breakdown `json:"breakdown"`
}

// ListBillsRequest represents query parameters for listing bills
type ListBillsRequest struct {
	PropertyID string `form:"property_id"`
	TenantID   string `form:"tenant_id"`
	Status     string `form:"status" validate:"omitempty,oneof=pending paid overdue cancelled"`
	Limit      int    `form:"limit" validate:"gte=0,lte=100"`
	Offset     int    `form:"offset" validate:"gte=0"`
}

// SubmitClaimRequest is the body of POST /api/bills/:id/claims.
// Payer defaults to the caller's role.
type SubmitClaimRequest struct {
	Amount   json.RawMessage  `json:"amount"`
	Remarks  string           `json:"remarks"`
	Payer    string           `json:"payer"`
	Evidence *entity.Evidence `json:"evidence"`
}

// VerifyClaimRequest is the body of POST /api/bills/:id/claims/:claimId/verify
type VerifyClaimRequest struct {
	Approve *bool `json:"approve" validate:"required"`
}

// UtilityRequest feeds the live utility calculator
type UtilityRequest struct {
	PreviousUnit decimal.Decimal `json:"previous_unit"`
	CurrentUnit  decimal.Decimal `json:"current_unit"`
	Rate         decimal.Decimal `json:"rate"`
}

// UtilityResponse is the calculated utility charge
type UtilityResponse struct {
	Units  decimal.Decimal `json:"units"`
	Amount decimal.Decimal `json:"amount"`
}

// TotalResponse is the live total of a breakdown together with anything that
// would stop it from being saved
type TotalResponse struct {
	Total  decimal.Decimal `json:"total"`
	Valid  bool            `json:"valid"`
	Errors []string        `json:"errors,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// CreateBill handles POST /api/bills
func (h *Handlers) CreateBill(c *gin.Context) {
	var req CreateBillRequest
	if !h.bindJSON(c, &req) {
		return
	}

	input := &billing.BillInput{
		PropertyID: req.PropertyID,
		TenantID:   req.TenantID,
		TenantName: req.TenantName,
		Period:     req.Period,
		Breakdown:  req.Breakdown,
	}
	if req.DueDate != "" {
		due, _ := time.Parse(time.DateOnly, req.DueDate)
		input.DueDate = &due
	}

	bill, err := h.services.Billing.CreateBill(c.Request.Context(), actorFrom(c), input)
	if err != nil {
		h.writeError(c, "create bill", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: bill})
}

// ListBills handles GET /api/bills
func (h *Handlers) ListBills(c *gin.Context) {
	var req ListBillsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "invalid query parameters", err)
		return
	}
	if err := validate.Struct(req); err != nil {
		h.badRequest(c, "invalid query parameters", err)
		return
	}

	bills, err := h.services.Billing.ListBills(c.Request.Context(), actorFrom(c), port.BillFilter{
		PropertyID: req.PropertyID,
		TenantID:   req.TenantID,
		Status:     entity.BillStatus(req.Status),
		Limit:      req.Limit,
		Offset:     req.Offset,
	})
	if err != nil {
		h.writeError(c, "list bills", err)
		return
	}
	if bills == nil {
		bills = []*entity.Bill{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: bills})
}

// GetBill handles GET /api/bills/:id
func (h *Handlers) GetBill(c *gin.Context) {
	bill, err := h.services.Billing.GetBill(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		h.writeError(c, "get bill", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: bill})
}

// GetSections handles GET /api/bills/:id/sections
func (h *Handlers) GetSections(c *gin.Context) {
	summary, err := h.services.Billing.GetBillSectionSummary(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		h.writeError(c, "get bill sections", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: summary})
}

// MarkPaid handles POST /api/bills/:id/paid
func (h *Handlers) MarkPaid(c *gin.Context) {
	bill, err := h.services.Billing.MarkBillPaid(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		h.writeError(c, "mark bill paid", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: bill})
}

// MarkOverdue handles POST /api/bills/:id/overdue. The service call is shared
// with the sweeper, so owner and access checks happen here.
func (h *Handlers) MarkOverdue(c *gin.Context) {
	ctx := c.Request.Context()
	actor := actorFrom(c)
	billID := c.Param("id")

	if !actor.IsOwner() {
		h.writeError(c, "mark bill overdue", fmt.Errorf("%w: owner only", port.ErrForbidden))
		return
	}
	if _, err := h.services.Billing.GetBill(ctx, billID, actor); err != nil {
		h.writeError(c, "mark bill overdue", err)
		return
	}

	bill, err := h.services.Billing.MarkBillOverdue(ctx, billID)
	if err != nil {
		h.writeError(c, "mark bill overdue", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: bill})
}

// CancelBill handles POST /api/bills/:id/cancel
func (h *Handlers) CancelBill(c *gin.Context) {
	bill, err := h.services.Billing.CancelBill(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		h.writeError(c, "cancel bill", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: bill})
}

// ExportStatement handles GET /api/bills/:id/statement.xlsx
func (h *Handlers) ExportStatement(c *gin.Context) {
	statement, err := h.services.Statement.ExportStatement(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		h.writeError(c, "export statement", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, statement.FileName))
	c.Data(http.StatusOK, statement.ContentType, statement.Content)
}

// GetPayments handles GET /api/bills/:id/payments
func (h *Handlers) GetPayments(c *gin.Context) {
	summary, err := h.services.Ledger.GetBillPaymentSummary(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		h.writeError(c, "get payment summary", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: summary})
}

// SubmitClaim handles POST /api/bills/:id/claims
func (h *Handlers) SubmitClaim(c *gin.Context) {
	var req SubmitClaimRequest
	if !h.bindJSON(c, &req) {
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.writeError(c, "submit payment claim", err)
		return
	}

	actor := actorFrom(c)
	payer := entity.Party(strings.ToLower(strings.TrimSpace(req.Payer)))
	if payer == "" {
		payer = actor.Role
	}

	bill, err := h.services.Ledger.SubmitBillPaymentClaim(c.Request.Context(), c.Param("id"), actor, &billing.ClaimInput{
		Amount:   amount,
		Remarks:  req.Remarks,
		Payer:    payer,
		Evidence: req.Evidence,
	})
	if err != nil {
		h.writeError(c, "submit payment claim", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: bill})
}

// parseAmount reads a JSON number or numeric string. A missing amount is
// zero and left to claim validation.
func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	var amount decimal.Decimal
	if len(raw) == 0 {
		return amount, nil
	}
	if err := amount.UnmarshalJSON(raw); err != nil {
		return decimal.Zero, &billing.ValidationError{Field: "amount", Message: billing.MsgPaidAmountNumber}
	}
	return amount, nil
}

// VerifyClaim handles POST /api/bills/:id/claims/:claimId/verify
func (h *Handlers) VerifyClaim(c *gin.Context) {
	var req VerifyClaimRequest
	if !h.bindJSON(c, &req) {
		return
	}

	bill, err := h.services.Ledger.VerifyBillPaymentClaim(c.Request.Context(), c.Param("id"), c.Param("claimId"), actorFrom(c), *req.Approve)
	if err != nil {
		h.writeError(c, "verify payment claim", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: bill})
}

// GetReview handles GET /api/bills/:id/claims/:claimId/review
func (h *Handlers) GetReview(c *gin.Context) {
	if h.services.Review == nil {
		h.writeError(c, "get evidence review", port.ErrReviewNotFound)
		return
	}

	review, err := h.services.Review.GetEvidenceReview(c.Request.Context(), c.Param("id"), c.Param("claimId"), actorFrom(c))
	if err != nil {
		h.writeError(c, "get evidence review", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: review})
}

// UploadEvidence handles POST /api/bills/:id/evidence (multipart field "file")
func (h *Handlers) UploadEvidence(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+uploadSlack)
	}

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(c, "upload evidence", port.ErrEvidenceTooLarge)
			return
		}
		h.badRequest(c, "file is required", err)
		return
	}

	file, err := header.Open()
	if err != nil {
		h.badRequest(c, "file could not be read", err)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.badRequest(c, "file could not be read", err)
		return
	}

	evidence, err := h.services.Evidence.UploadEvidence(c.Request.Context(), c.Param("id"), actorFrom(c), header.Filename, content)
	if err != nil {
		h.writeError(c, "upload evidence", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: evidence})
}

// GetEvidence handles GET /api/evidence/*path. Keys start with the bill id,
// which decides whether the caller may see the file.
func (h *Handlers) GetEvidence(c *gin.Context) {
	ctx := c.Request.Context()
	key := strings.TrimPrefix(c.Param("path"), "/")

	billID, _, found := strings.Cut(key, "/")
	if !found || billID == "" {
		h.writeError(c, "get evidence", port.ErrEvidenceNotFound)
		return
	}
	if _, err := h.services.Billing.GetBill(ctx, billID, actorFrom(c)); err != nil {
		if errors.Is(err, port.ErrBillNotFound) {
			err = port.ErrEvidenceNotFound
		}
		h.writeError(c, "get evidence", err)
		return
	}

	content, mimeType, err := h.services.Evidence.OpenEvidence(ctx, key)
	if err != nil {
		h.writeError(c, "get evidence", err)
		return
	}

	c.Data(http.StatusOK, mimeType, content)
}

// CalculateUtility handles POST /api/calculator/utility
func (h *Handlers) CalculateUtility(c *gin.Context) {
	var req UtilityRequest
	if !h.bindJSON(c, &req) {
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: UtilityResponse{
		Units:  billing.Units(entity.Metered{PreviousUnit: req.PreviousUnit, CurrentUnit: req.CurrentUnit, Rate: req.Rate}),
		Amount: billing.CalculateUtilityCharge(req.PreviousUnit, req.CurrentUnit, req.Rate),
	}})
}

// CalculateTotal handles POST /api/calculator/total. The total is returned
// even when the breakdown would be rejected on save.
func (h *Handlers) CalculateTotal(c *gin.Context) {
	var breakdown entity.Breakdown
	if !h.bindJSON(c, &breakdown) {
		return
	}

	errs := billing.ValidateBreakdown(&breakdown)
	c.JSON(http.StatusOK, Response{Success: true, Data: TotalResponse{
		Total:  billing.ComputeBillTotal(breakdown),
		Valid:  len(errs) == 0,
		Errors: errs.Messages(),
	}})
}

// bindJSON decodes and validates a request body, answering 400 on failure
func (h *Handlers) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.badRequest(c, "invalid request body", err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if !errors.As(err, &invalid) {
			h.badRequest(c, "invalid request body", err)
			return false
		}
	}
	return true
}

func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	h.logger.Info("Bad request", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// writeError maps service errors onto status codes. Validation messages are
// shown verbatim; anything unexpected is logged and hidden.
func (h *Handlers) writeError(c *gin.Context, op string, err error) {
	status := statusFor(err)

	resp := Response{Success: false, Error: err.Error()}
	var multi billing.ValidationErrors
	if errors.As(err, &multi) {
		resp.Details = multi.Messages()
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "op", op, "path", c.Request.URL.Path, "error", err)
		resp.Error = op + " failed"
	} else {
		h.logger.Info("Request refused", "op", op, "status", status, "error", err)
	}

	c.JSON(status, resp)
}

func statusFor(err error) int {
	switch {
	case billing.IsValidationError(err), errors.Is(err, port.ErrRejectNotSupported):
		return http.StatusBadRequest
	case errors.Is(err, port.ErrForbidden), errors.Is(err, port.ErrNotCounterParty):
		return http.StatusForbidden
	case errors.Is(err, port.ErrBillNotFound),
		errors.Is(err, port.ErrClaimNotFound),
		errors.Is(err, port.ErrEvidenceNotFound),
		errors.Is(err, port.ErrReviewNotFound):
		return http.StatusNotFound
	case errors.Is(err, port.ErrClaimNotPending),
		errors.Is(err, port.ErrBillCancelled),
		errors.Is(err, port.ErrBillNotSettled),
		errors.Is(err, port.ErrStatusConflict),
		errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrGuardFailed):
		return http.StatusConflict
	case errors.Is(err, port.ErrEvidenceTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
