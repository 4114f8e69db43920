package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountBalance is one account's net balance in its normal direction.
type AccountBalance struct {
	Code    string
	Name    string
	Type    AccountType
	Balance decimal.Decimal
}

// BalanceSheet groups account balances into the three balance sheet sections.
type BalanceSheet struct {
	Assets      []AccountBalance
	Liabilities []AccountBalance
	Capital     []AccountBalance

	TotalAssets      decimal.Decimal
	TotalLiabilities decimal.Decimal
	TotalCapital     decimal.Decimal
}

// IncomeStatement buckets the period's income and expenses. The product
// margin is the merchandise side: sales minus cost of goods.
type IncomeStatement struct {
	InterestIncome    decimal.Decimal
	PenaltyIncome     decimal.Decimal
	SalesIncome       decimal.Decimal
	CostOfGoodsSold   decimal.Decimal
	ProductMargin     decimal.Decimal
	OperatingExpenses decimal.Decimal
	WriteOffExpense   decimal.Decimal
	// Net income before closing entries; it belongs to capital until the
	// books are closed, which is why it appears in the control equation.
	ProvisionalNetIncome decimal.Decimal
}

// ReconciliationReport is the full output of a ledger reconciliation run.
type ReconciliationReport struct {
	From    time.Time
	To      time.Time
	Entries int

	BalanceSheet    BalanceSheet
	IncomeStatement IncomeStatement

	// Control is assets minus (liabilities + capital + provisional net
	// income). Zero when the books balance.
	Control  decimal.Decimal
	Balanced bool
}

// Reconcile replays journal entries in [from, to] into a trial balance,
// builds the balance sheet and income statement, and checks the control
// equation. A non-nil report is returned alongside ErrLedgerImbalance when
// the control is non-zero, so callers can still inspect the numbers.
func Reconcile(entries []*JournalEntry, from, to time.Time) (*ReconciliationReport, error) {
	balances := make(map[string]decimal.Decimal)
	counted := 0

	for _, entry := range entries {
		if !from.IsZero() && entry.EntryDate.Before(from) {
			continue
		}
		if !to.IsZero() && entry.EntryDate.After(to) {
			continue
		}
		if err := entry.Validate(); err != nil {
			return nil, err
		}
		counted++
		for _, line := range entry.Lines {
			account, _ := AccountByCode(line.AccountCode)
			delta := line.Amount
			if (line.Direction == Debit) != account.Type.NormalDebit() {
				delta = delta.Neg()
			}
			balances[line.AccountCode] = balances[line.AccountCode].Add(delta)
		}
	}

	report := &ReconciliationReport{From: from, To: to, Entries: counted}

	for _, account := range ChartOfAccounts() {
		balance := AccountBalance{
			Code:    account.Code,
			Name:    account.Name,
			Type:    account.Type,
			Balance: balances[account.Code],
		}
		switch account.Type {
		case AccountAsset:
			report.BalanceSheet.Assets = append(report.BalanceSheet.Assets, balance)
			report.BalanceSheet.TotalAssets = report.BalanceSheet.TotalAssets.Add(balance.Balance)
		case AccountLiability:
			report.BalanceSheet.Liabilities = append(report.BalanceSheet.Liabilities, balance)
			report.BalanceSheet.TotalLiabilities = report.BalanceSheet.TotalLiabilities.Add(balance.Balance)
		case AccountCapital:
			report.BalanceSheet.Capital = append(report.BalanceSheet.Capital, balance)
			report.BalanceSheet.TotalCapital = report.BalanceSheet.TotalCapital.Add(balance.Balance)
		}
	}

	is := &report.IncomeStatement
	is.InterestIncome = balances[AccountInterestIncome]
	is.PenaltyIncome = balances[AccountPenaltyIncome]
	is.SalesIncome = balances[AccountSalesIncome]
	is.CostOfGoodsSold = balances[AccountCostOfGoodsSold]
	is.ProductMargin = is.SalesIncome.Sub(is.CostOfGoodsSold)
	is.OperatingExpenses = balances[AccountOperatingExpense]
	is.WriteOffExpense = balances[AccountWriteOffExpense]
	is.ProvisionalNetIncome = is.InterestIncome.
		Add(is.PenaltyIncome).
		Add(is.ProductMargin).
		Sub(is.OperatingExpenses).
		Sub(is.WriteOffExpense)

	report.Control = report.BalanceSheet.TotalAssets.
		Sub(report.BalanceSheet.TotalLiabilities).
		Sub(report.BalanceSheet.TotalCapital).
		Sub(is.ProvisionalNetIncome)
	report.Balanced = report.Control.IsZero()

	if !report.Balanced {
		return report, fmt.Errorf("%w: control difference %s", ErrLedgerImbalance, report.Control.StringFixed(2))
	}
	return report, nil
}
