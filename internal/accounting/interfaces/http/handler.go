// Package http exposes the accounting API over gin.
package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/loanservicing/internal/accounting/application"
	"github.com/wyfcoding/loanservicing/internal/accounting/domain"
)

const dateLayout = "2006-01-02"

// AccountingHandler adapts the accounting services to HTTP.
type AccountingHandler struct {
	posting   *application.PostingService
	reconcile *application.ReconcileService
}

func NewAccountingHandler(posting *application.PostingService, reconcile *application.ReconcileService) *AccountingHandler {
	return &AccountingHandler{posting: posting, reconcile: reconcile}
}

// RegisterRoutes mounts the API under /api/v1.
func (h *AccountingHandler) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	{
		v1.GET("/accounts", h.ListAccounts)
		v1.POST("/journal-entries", h.PostManualEntry)
		v1.GET("/trial-balance", h.TrialBalance)
		v1.GET("/balance-sheet", h.BalanceSheet)
		v1.GET("/income-statement", h.IncomeStatement)
		v1.GET("/reconciliation", h.Reconcile)
	}
}

func (h *AccountingHandler) ListAccounts(c *gin.Context) {
	accounts := domain.ChartOfAccounts()
	views := make([]gin.H, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, gin.H{"code": a.Code, "name": a.Name, "type": a.Type})
	}
	c.JSON(http.StatusOK, gin.H{"accounts": views})
}

type manualEntryRequest struct {
	Reference string            `json:"reference" binding:"required"`
	Memo      string            `json:"memo"`
	EntryDate string            `json:"entry_date" binding:"required"`
	Lines     []manualLineInput `json:"lines" binding:"required,min=2"`
}

type manualLineInput struct {
	AccountCode string `json:"account_code" binding:"required"`
	Direction   string `json:"direction" binding:"required,oneof=debit credit"`
	Amount      string `json:"amount" binding:"required"`
}

func (h *AccountingHandler) PostManualEntry(c *gin.Context) {
	var req manualEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entryDate, err := time.ParseInLocation(dateLayout, req.EntryDate, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry_date, expected YYYY-MM-DD"})
		return
	}

	lines := make([]application.ManualLineInput, 0, len(req.Lines))
	for _, in := range req.Lines {
		amount, err := decimal.NewFromString(in.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid line amount"})
			return
		}
		lines = append(lines, application.ManualLineInput{
			AccountCode: in.AccountCode,
			Direction:   domain.Direction(in.Direction),
			Amount:      amount,
		})
	}

	entry, err := h.posting.PostManualEntry(c.Request.Context(), application.ManualEntryCommand{
		Reference: req.Reference,
		Memo:      req.Memo,
		EntryDate: entryDate,
		Lines:     lines,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry_id": entry.ID})
}

func (h *AccountingHandler) TrialBalance(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	balances, err := h.reconcile.TrialBalance(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]gin.H, 0, len(balances))
	for _, b := range balances {
		views = append(views, gin.H{
			"code":    b.Code,
			"name":    b.Name,
			"type":    b.Type,
			"balance": b.Balance.StringFixed(2),
		})
	}
	c.JSON(http.StatusOK, gin.H{"balances": views})
}

func (h *AccountingHandler) BalanceSheet(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, balanceSheetView(report))
}

func (h *AccountingHandler) IncomeStatement(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, incomeStatementView(report))
}

func (h *AccountingHandler) Reconcile(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entries":          report.Entries,
		"balanced":         report.Balanced,
		"control":          report.Control.StringFixed(2),
		"balance_sheet":    balanceSheetView(report),
		"income_statement": incomeStatementView(report),
	})
}

// report runs the reconciler for the requested range. An imbalanced ledger
// still yields a report; the control value carries the warning.
func (h *AccountingHandler) report(c *gin.Context) (*domain.ReconciliationReport, bool) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return nil, false
	}
	report, err := h.reconcile.Reconcile(c.Request.Context(), from, to)
	if err != nil && !errors.Is(err, domain.ErrLedgerImbalance) {
		respondError(c, err)
		return nil, false
	}
	return report, true
}

func balanceSheetView(report *domain.ReconciliationReport) gin.H {
	return gin.H{
		"assets":            balanceViews(report.BalanceSheet.Assets),
		"liabilities":       balanceViews(report.BalanceSheet.Liabilities),
		"capital":           balanceViews(report.BalanceSheet.Capital),
		"total_assets":      report.BalanceSheet.TotalAssets.StringFixed(2),
		"total_liabilities": report.BalanceSheet.TotalLiabilities.StringFixed(2),
		"total_capital":     report.BalanceSheet.TotalCapital.StringFixed(2),
	}
}

func incomeStatementView(report *domain.ReconciliationReport) gin.H {
	return gin.H{
		"interest_income":        report.IncomeStatement.InterestIncome.StringFixed(2),
		"penalty_income":         report.IncomeStatement.PenaltyIncome.StringFixed(2),
		"sales_income":           report.IncomeStatement.SalesIncome.StringFixed(2),
		"cost_of_goods_sold":     report.IncomeStatement.CostOfGoodsSold.StringFixed(2),
		"product_margin":         report.IncomeStatement.ProductMargin.StringFixed(2),
		"operating_expenses":     report.IncomeStatement.OperatingExpenses.StringFixed(2),
		"write_off_expense":      report.IncomeStatement.WriteOffExpense.StringFixed(2),
		"provisional_net_income": report.IncomeStatement.ProvisionalNetIncome.StringFixed(2),
	}
}

func balanceViews(balances []domain.AccountBalance) []gin.H {
	views := make([]gin.H, 0, len(balances))
	for _, b := range balances {
		views = append(views, gin.H{"code": b.Code, "name": b.Name, "balance": b.Balance.StringFixed(2)})
	}
	return views
}

func parseDateRange(c *gin.Context) (time.Time, time.Time, bool) {
	var from, to time.Time
	var err error
	if v := c.Query("from"); v != "" {
		from, err = time.ParseInLocation(dateLayout, v, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from, expected YYYY-MM-DD"})
			return from, to, false
		}
	}
	if v := c.Query("to"); v != "" {
		to, err = time.ParseInLocation(dateLayout, v, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to, expected YYYY-MM-DD"})
			return from, to, false
		}
	}
	return from, to, true
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUnbalancedEntry),
		errors.Is(err, domain.ErrUnknownAccount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrDuplicateEvent):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
