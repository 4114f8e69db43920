// Package http exposes the loan servicing API over gin.
package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/loanservicing/internal/loan/application"
	"github.com/wyfcoding/loanservicing/internal/loan/domain"
)

const dateLayout = "2006-01-02"

// LoanHandler adapts the loan application services to HTTP.
type LoanHandler struct {
	service *application.LoanService
	queries *application.LoanQueryService
}

func NewLoanHandler(service *application.LoanService, queries *application.LoanQueryService) *LoanHandler {
	return &LoanHandler{service: service, queries: queries}
}

// RegisterRoutes mounts the API under /api/v1.
func (h *LoanHandler) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	{
		loans := v1.Group("/loans")
		{
			loans.POST("", h.CreateLoan)
			loans.GET("/:id", h.GetLoan)
			loans.GET("/:id/schedule", h.GetSchedule)
			loans.POST("/:id/payments", h.AllocatePayment)
			loans.POST("/:id/payments/:payment_id/reclassify", h.ReclassifyPayment)
			loans.POST("/:id/resolve", h.ResolveLoan)
			loans.POST("/:id/collection-actions", h.RecordCollectionAction)
		}
		v1.GET("/payments/:payment_id", h.GetPaymentHistory)
		v1.GET("/overdue-report", h.OverdueReport)
		v1.POST("/jobs/penalty-sweep", h.RunPenaltySweep)
	}
}

type createLoanRequest struct {
	CustomerID  string `json:"customer_id" binding:"required"`
	Principal   string `json:"principal" binding:"required"`
	AnnualRate  string `json:"annual_rate" binding:"required"`
	TermPeriods int    `json:"term_periods" binding:"required,gt=0"`
	StartDate   string `json:"start_date" binding:"required"`
}

func (h *LoanHandler) CreateLoan(c *gin.Context) {
	var req createLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	principal, err := decimal.NewFromString(req.Principal)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid principal"})
		return
	}
	rate, err := decimal.NewFromString(req.AnnualRate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid annual_rate"})
		return
	}
	startDate, err := time.ParseInLocation(dateLayout, req.StartDate, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date, expected YYYY-MM-DD"})
		return
	}

	loan, err := h.service.CreateLoan(c.Request.Context(), application.CreateLoanCommand{
		CustomerID:  req.CustomerID,
		Principal:   principal,
		AnnualRate:  rate,
		TermPeriods: req.TermPeriods,
		StartDate:   startDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loanView(loan))
}

func (h *LoanHandler) GetLoan(c *gin.Context) {
	loan, err := h.queries.GetLoan(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loanView(loan))
}

func (h *LoanHandler) GetSchedule(c *gin.Context) {
	loan, err := h.queries.GetLoan(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	rows := make([]gin.H, 0, len(loan.Installments))
	for _, inst := range loan.Installments {
		rows = append(rows, installmentView(inst))
	}
	c.JSON(http.StatusOK, gin.H{"loan_id": loan.ID, "installments": rows})
}

type allocatePaymentRequest struct {
	Amount       string `json:"amount" binding:"required"`
	PaymentDate  string `json:"payment_date" binding:"required"`
	TargetPeriod int    `json:"target_period"`
}

func (h *LoanHandler) AllocatePayment(c *gin.Context) {
	var req allocatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	paymentDate, err := time.ParseInLocation(dateLayout, req.PaymentDate, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment_date, expected YYYY-MM-DD"})
		return
	}

	result, err := h.service.AllocatePayment(c.Request.Context(), application.AllocatePaymentCommand{
		LoanID:       c.Param("id"),
		Amount:       amount,
		PaymentDate:  paymentDate,
		TargetPeriod: req.TargetPeriod,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"payment_id":  result.Payment.ID,
		"loan_status": result.LoanStatus,
		"allocations": allocationViews(result.Allocations),
	})
}

type reclassifyRequest struct {
	Replacement []allocationInput `json:"replacement" binding:"required,min=1"`
	NewDate     string            `json:"new_date"`
	Reason      string            `json:"reason" binding:"required"`
	Actor       string            `json:"actor" binding:"required"`
}

type allocationInput struct {
	Period    int    `json:"period"`
	Component string `json:"component" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
}

func (h *LoanHandler) ReclassifyPayment(c *gin.Context) {
	var req reclassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	replacement := make([]application.AllocationInput, 0, len(req.Replacement))
	for _, in := range req.Replacement {
		amount, err := decimal.NewFromString(in.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid allocation amount"})
			return
		}
		replacement = append(replacement, application.AllocationInput{
			Period:    in.Period,
			Component: domain.Component(in.Component),
			Amount:    amount,
		})
	}

	var newDate *time.Time
	if req.NewDate != "" {
		parsed, err := time.ParseInLocation(dateLayout, req.NewDate, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid new_date, expected YYYY-MM-DD"})
			return
		}
		newDate = &parsed
	}

	result, err := h.service.ReclassifyPayment(c.Request.Context(), application.ReclassifyPaymentCommand{
		LoanID:      c.Param("id"),
		PaymentID:   c.Param("payment_id"),
		Replacement: replacement,
		NewDate:     newDate,
		Reason:      req.Reason,
		Actor:       req.Actor,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"audit_note_id": result.Note.ID,
		"loan_status":   result.LoanStatus,
		"allocations":   allocationViews(result.Allocations),
	})
}

type resolveLoanRequest struct {
	Type   string `json:"type" binding:"required"`
	Amount string `json:"amount" binding:"required"`
	Actor  string `json:"actor" binding:"required"`
}

func (h *LoanHandler) ResolveLoan(c *gin.Context) {
	var req resolveLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	record, err := h.service.ResolveLoan(c.Request.Context(), application.ResolveLoanCommand{
		LoanID: c.Param("id"),
		Type:   domain.ResolutionType(req.Type),
		Amount: amount,
		Actor:  req.Actor,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"resolution_id":    record.ID,
		"type":             record.Type,
		"write_off_amount": record.WriteOffAmount.StringFixed(2),
	})
}

type collectionActionRequest struct {
	Period int    `json:"period" binding:"required,gt=0"`
	Action string `json:"action" binding:"required"`
	Note   string `json:"note"`
	Actor  string `json:"actor" binding:"required"`
}

func (h *LoanHandler) RecordCollectionAction(c *gin.Context) {
	var req collectionActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	record, err := h.service.RecordCollectionAction(c.Request.Context(), application.RecordCollectionActionCommand{
		LoanID: c.Param("id"),
		Period: req.Period,
		Action: domain.CollectionAction(req.Action),
		Note:   req.Note,
		Actor:  req.Actor,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"action_id": record.ID})
}

func (h *LoanHandler) GetPaymentHistory(c *gin.Context) {
	payment, allocations, err := h.queries.GetPaymentHistory(c.Request.Context(), c.Param("payment_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payment_id":   payment.ID,
		"loan_id":      payment.LoanID,
		"amount":       payment.Amount.StringFixed(2),
		"payment_date": payment.PaymentDate.Format(dateLayout),
		"allocations":  allocationViews(allocations),
	})
}

func (h *LoanHandler) OverdueReport(c *gin.Context) {
	report, err := h.queries.OverdueReport(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]gin.H, 0, len(report.Items))
	for _, item := range report.Items {
		items = append(items, gin.H{
			"loan_id":            item.LoanID,
			"customer_id":        item.CustomerID,
			"period":             item.Period,
			"due_date":           item.DueDate.Format(dateLayout),
			"days_overdue":       item.DaysOverdue,
			"amount_overdue":     item.AmountOverdue.StringFixed(2),
			"penalty_applied":    item.PenaltyApplied.StringFixed(2),
			"severity":           item.Severity,
			"recommended_action": item.RecommendedAction,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"as_of": report.AsOf.Format(dateLayout),
		"items": items,
		"summary": gin.H{
			"installments":         report.Summary.Installments,
			"customers":            report.Summary.Customers,
			"total_overdue":        report.Summary.TotalOverdue.StringFixed(2),
			"total_penalties":      report.Summary.TotalPenalties.StringFixed(2),
			"average_days_overdue": report.Summary.AverageDaysOverdue.String(),
		},
	})
}

func (h *LoanHandler) RunPenaltySweep(c *gin.Context) {
	assessed, err := h.service.AssessOverduePenalties(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"penalties_assessed": assessed})
}

func loanView(loan *domain.Loan) gin.H {
	installments := make([]gin.H, 0, len(loan.Installments))
	for _, inst := range loan.Installments {
		installments = append(installments, installmentView(inst))
	}
	return gin.H{
		"loan_id":          loan.ID,
		"customer_id":      loan.CustomerID,
		"principal":        loan.Principal.StringFixed(2),
		"annual_rate":      loan.AnnualRate.String(),
		"term_periods":     loan.TermPeriods,
		"start_date":       loan.StartDate.Format(dateLayout),
		"status":           loan.Status,
		"unapplied_credit": loan.UnappliedCredit.StringFixed(2),
		"outstanding":      loan.TotalOutstanding().StringFixed(2),
		"installments":     installments,
	}
}

func installmentView(inst *domain.Installment) gin.H {
	return gin.H{
		"period":           inst.Period,
		"due_date":         inst.DueDate.Format(dateLayout),
		"capital_portion":  inst.CapitalPortion.StringFixed(2),
		"interest_portion": inst.InterestPortion.StringFixed(2),
		"penalty_applied":  inst.PenaltyApplied.StringFixed(2),
		"capital_paid":     inst.CapitalPaid.StringFixed(2),
		"interest_paid":    inst.InterestPaid.StringFixed(2),
		"penalty_paid":     inst.PenaltyPaid.StringFixed(2),
		"status":           inst.Status,
	}
}

func allocationViews(allocations []domain.PaymentAllocation) []gin.H {
	views := make([]gin.H, 0, len(allocations))
	for _, a := range allocations {
		views = append(views, gin.H{
			"period":     a.Period,
			"component":  a.Component,
			"amount":     a.Amount.StringFixed(2),
			"superseded": a.Superseded,
		})
	}
	return views
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrLoanNotFound),
		errors.Is(err, domain.ErrPaymentNotFound),
		errors.Is(err, domain.ErrInstallmentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidScheduleInput),
		errors.Is(err, domain.ErrInvalidPaymentAmount),
		errors.Is(err, domain.ErrAllocationMismatch),
		errors.Is(err, domain.ErrInvalidStatusTransition):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrLoanNotPayable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrLoanLocked):
		c.JSON(http.StatusLocked, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
