package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/founderstab/founders-tab/internal/application/service"
	"github.com/founderstab/founders-tab/internal/domain/entity"
	"github.com/founderstab/founders-tab/pkg/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ExpenseResponse represents an expense in API responses
type ExpenseResponse struct {
	ID              int64   `json:"id"`
	OwnerID         int64   `json:"owner_id"`
	Amount          string  `json:"amount"`
	Category        string  `json:"category"`
	Description     string  `json:"description"`
	ExpenseDate     string  `json:"expense_date"`
	ReceiptRef      string  `json:"receipt_ref,omitempty"`
	Notes           string  `json:"notes,omitempty"`
	Status          string  `json:"status"`
	RejectedBy      *int64  `json:"rejected_by,omitempty"`
	RejectedAt      *string `json:"rejected_at,omitempty"`
	RejectionReason string  `json:"rejection_reason,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// ExpenseDetailResponse is an expense with its ledgers
type ExpenseDetailResponse struct {
	ExpenseResponse
	Approvals           []*entity.Approval `json:"approvals"`
	WithdrawalApprovals []*entity.Approval `json:"withdrawal_approvals"`
	RequiredApprovals   int                `json:"required_approvals"`
	PendingApprovers    []int64            `json:"pending_approvers"`
	AllowedActions      []string           `json:"allowed_actions"`
}

// TransitionResponse reports the outcome of a workflow action
type TransitionResponse struct {
	Expense             ExpenseResponse `json:"expense"`
	PreviousStatus      string          `json:"previous_status"`
	Approvals           int             `json:"approvals,omitempty"`
	RequiredApprovals   int             `json:"required_approvals,omitempty"`
	BecameFullyApproved bool            `json:"became_fully_approved"`
	AutoApproved        bool            `json:"auto_approved"`
}

// amountField accepts an amount as a JSON string or number, keeping its literal text
type amountField string

func (a *amountField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a number or a decimal string")
	}
	*a = amountField(n.String())
	return nil
}

// CreateExpenseRequest represents the body of POST /api/expenses
type CreateExpenseRequest struct {
	Amount      amountField `json:"amount" binding:"required"`
	Category    string      `json:"category" binding:"required"`
	Description string      `json:"description" binding:"required"`
	ExpenseDate string      `json:"expense_date" binding:"required"`
	ReceiptRef  string      `json:"receipt_ref"`
	Notes       string      `json:"notes"`
}

// ListExpensesRequest represents query parameters for listing expenses
type ListExpensesRequest struct {
	Status  string `form:"status"`
	OwnerID int64  `form:"owner_id"`
	Limit   int    `form:"limit"`
	Offset  int    `form:"offset"`
}

// ReasonRequest is the body of the reject endpoints
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// NudgeRequest is the body of POST /api/expenses/:id/nudge
type NudgeRequest struct {
	Type string `json:"type" binding:"required"`
}

// SettingsRequest is the body of PUT /api/company/settings
type SettingsRequest struct {
	NudgeCooldownHours *int `json:"nudge_cooldown_hours" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// CreateExpense handles POST /api/expenses
func (h *Handlers) CreateExpense(c *gin.Context) {
	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	expense, err := h.services.Expenses.Create(c.Request.Context(), actorID(c), service.CreateExpenseInput{
		Amount:      string(req.Amount),
		Category:    req.Category,
		Description: req.Description,
		ExpenseDate: req.ExpenseDate,
		ReceiptRef:  req.ReceiptRef,
		Notes:       req.Notes,
	})
	if err != nil {
		h.writeError(c, "create expense", err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    toExpenseResponse(expense),
	})
}

// ListExpenses handles GET /api/expenses
func (h *Handlers) ListExpenses(c *gin.Context) {
	var req ListExpensesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	expenses, err := h.services.Expenses.List(c.Request.Context(), actorID(c), service.ListExpensesInput{
		Status:  req.Status,
		OwnerID: req.OwnerID,
		Limit:   req.Limit,
		Offset:  req.Offset,
	})
	if err != nil {
		h.writeError(c, "list expenses", err)
		return
	}

	// Convert to response format
	responseExpenses := make([]ExpenseResponse, 0, len(expenses))
	for _, expense := range expenses {
		responseExpenses = append(responseExpenses, toExpenseResponse(expense))
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    responseExpenses,
	})
}

// GetExpense handles GET /api/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	id, ok := expenseID(c)
	if !ok {
		return
	}

	detail, err := h.services.Expenses.Get(c.Request.Context(), actorID(c), id)
	if err != nil {
		h.writeError(c, "get expense", err)
		return
	}

	actions := make([]string, 0, len(detail.AllowedActions))
	for _, t := range detail.AllowedActions {
		actions = append(actions, t.String())
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: ExpenseDetailResponse{
			ExpenseResponse:     toExpenseResponse(detail.Expense),
			Approvals:           detail.Approvals,
			WithdrawalApprovals: detail.WithdrawalApprovals,
			RequiredApprovals:   detail.RequiredApprovals,
			PendingApprovers:    detail.PendingApprovers,
			AllowedActions:      actions,
		},
	})
}

// GetHistory handles GET /api/expenses/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	id, ok := expenseID(c)
	if !ok {
		return
	}

	history, err := h.services.Expenses.History(c.Request.Context(), actorID(c), id)
	if err != nil {
		h.writeError(c, "get history", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// GetNotifications handles GET /api/expenses/:id/notifications
func (h *Handlers) GetNotifications(c *gin.Context) {
	id, ok := expenseID(c)
	if !ok {
		return
	}

	logs, err := h.services.Notifications.Log(c.Request.Context(), actorID(c), id)
	if err != nil {
		h.writeError(c, "get notifications", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: logs})
}

// Approve handles POST /api/expenses/:id/approve
func (h *Handlers) Approve(c *gin.Context) {
	h.transition(c, "approve", func(userID, id int64) (*service.TransitionResult, error) {
		return h.services.Workflow.Approve(c.Request.Context(), userID, id)
	})
}

// Reject handles POST /api/expenses/:id/reject
func (h *Handlers) Reject(c *gin.Context) {
	reason, ok := bindReason(c)
	if !ok {
		return
	}
	h.transition(c, "reject", func(userID, id int64) (*service.TransitionResult, error) {
		return h.services.Workflow.Reject(c.Request.Context(), userID, id, reason)
	})
}

// RequestWithdrawal handles POST /api/expenses/:id/request-withdrawal
func (h *Handlers) RequestWithdrawal(c *gin.Context) {
	h.transition(c, "request withdrawal", func(userID, id int64) (*service.TransitionResult, error) {
		return h.services.Workflow.RequestWithdrawal(c.Request.Context(), userID, id)
	})
}

// ApproveWithdrawal handles POST /api/expenses/:id/approve-withdrawal
func (h *Handlers) ApproveWithdrawal(c *gin.Context) {
	h.transition(c, "approve withdrawal", func(userID, id int64) (*service.TransitionResult, error) {
		return h.services.Workflow.ApproveWithdrawal(c.Request.Context(), userID, id)
	})
}

// RejectWithdrawal handles POST /api/expenses/:id/reject-withdrawal
func (h *Handlers) RejectWithdrawal(c *gin.Context) {
	reason, ok := bindReason(c)
	if !ok {
		return
	}
	h.transition(c, "reject withdrawal", func(userID, id int64) (*service.TransitionResult, error) {
		return h.services.Workflow.RejectWithdrawal(c.Request.Context(), userID, id, reason)
	})
}

// ConfirmReceipt handles POST /api/expenses/:id/confirm-receipt
func (h *Handlers) ConfirmReceipt(c *gin.Context) {
	h.transition(c, "confirm receipt", func(userID, id int64) (*service.TransitionResult, error) {
		return h.services.Workflow.ConfirmReceipt(c.Request.Context(), userID, id)
	})
}

func (h *Handlers) transition(c *gin.Context, op string, call func(userID, id int64) (*service.TransitionResult, error)) {
	id, ok := expenseID(c)
	if !ok {
		return
	}

	result, err := call(actorID(c), id)
	if err != nil {
		h.writeError(c, op, err)
		return
	}

	d := result.Decision
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: TransitionResponse{
			Expense:             toExpenseResponse(result.Expense),
			PreviousStatus:      d.PreviousStatus.String(),
			Approvals:           d.Tally.Approvals,
			RequiredApprovals:   d.Tally.Required,
			BecameFullyApproved: d.BecameFullyApproved,
			AutoApproved:        d.AutoApproved,
		},
	})
}

// Nudge handles POST /api/expenses/:id/nudge
func (h *Handlers) Nudge(c *gin.Context) {
	id, ok := expenseID(c)
	if !ok {
		return
	}

	var req NudgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: type is required")
		return
	}

	result, err := h.services.Nudges.Nudge(c.Request.Context(), actorID(c), id, req.Type)
	if err != nil {
		h.writeError(c, "nudge", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// GetSettings handles GET /api/company/settings
func (h *Handlers) GetSettings(c *gin.Context) {
	settings, err := h.services.Settings.Get(c.Request.Context(), actorID(c))
	if err != nil {
		h.writeError(c, "get settings", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: settings})
}

// UpdateSettings handles PUT /api/company/settings
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: nudge_cooldown_hours is required")
		return
	}

	settings, err := h.services.Settings.Update(c.Request.Context(), actorID(c), *req.NudgeCooldownHours)
	if err != nil {
		h.writeError(c, "update settings", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: settings})
}

// ExportExpenses handles GET /api/reports/expenses.xlsx
func (h *Handlers) ExportExpenses(c *gin.Context) {
	data, err := h.services.Reports.ExportExpenses(c.Request.Context(), actorID(c), c.Query("status"))
	if err != nil {
		h.writeError(c, "export expenses", err)
		return
	}

	filename := fmt.Sprintf("expenses-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func actorID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

func expenseID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid expense ID")
		return 0, false
	}
	return id, true
}

// bindReason reads an optional JSON body; a missing reason is refused by the workflow
func bindReason(c *gin.Context) (string, bool) {
	var req ReasonRequest
	if c.Request.ContentLength == 0 {
		return "", true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return "", false
	}
	return req.Reason, true
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: message})
}

// toExpenseResponse converts domain entity to API response
func toExpenseResponse(expense *entity.Expense) ExpenseResponse {
	resp := ExpenseResponse{
		ID:              expense.ID,
		OwnerID:         expense.OwnerID,
		Amount:          expense.Amount().StringFixed(2),
		Category:        expense.Category,
		Description:     expense.Description,
		ExpenseDate:     expense.ExpenseDate.Format(utils.DateLayout),
		ReceiptRef:      expense.ReceiptRef,
		Notes:           expense.Notes,
		Status:          expense.Status.String(),
		RejectedBy:      expense.RejectedBy,
		RejectionReason: expense.RejectionReason,
		CreatedAt:       expense.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       expense.UpdatedAt.Format(time.RFC3339),
	}

	if expense.RejectedAt != nil {
		rejectedAt := expense.RejectedAt.Format(time.RFC3339)
		resp.RejectedAt = &rejectedAt
	}

	return resp
}
