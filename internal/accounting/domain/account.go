// Package domain contains the double-entry bookkeeping engine of the
// accounting context: the chart of accounts, journal entries, posting rules
// for loan events, and the ledger reconciler.
package domain

// AccountType classifies an account for the balance sheet and income
// statement. Asset and expense accounts have a debit normal balance;
// liability, capital, and income accounts a credit normal balance.
type AccountType string

const (
	AccountAsset     AccountType = "asset"
	AccountLiability AccountType = "liability"
	AccountCapital   AccountType = "capital"
	AccountIncome    AccountType = "income"
	AccountExpense   AccountType = "expense"
)

// NormalDebit reports whether debits increase this account type.
func (t AccountType) NormalDebit() bool {
	return t == AccountAsset || t == AccountExpense
}

// Account is one entry in the chart of accounts.
type Account struct {
	Code string
	Name string
	Type AccountType
}

// Fixed chart of accounts of the platform. Loan events post against the
// receivable and income accounts; the merchandise side (water sales) posts
// through manual entries.
const (
	AccountCash              = "1000"
	AccountLoansReceivable   = "1100"
	AccountPenaltyReceivable = "1150"
	AccountInventory         = "1200"
	AccountCustomerCredits   = "2000"
	AccountOwnerCapital      = "3000"
	AccountInterestIncome    = "4000"
	AccountPenaltyIncome     = "4100"
	AccountSalesIncome       = "4200"
	AccountCostOfGoodsSold   = "5000"
	AccountOperatingExpense  = "5100"
	AccountWriteOffExpense   = "5200"
)

// ChartOfAccounts returns the platform's account list, ordered by code.
func ChartOfAccounts() []Account {
	return []Account{
		{Code: AccountCash, Name: "Cash", Type: AccountAsset},
		{Code: AccountLoansReceivable, Name: "Loans Receivable", Type: AccountAsset},
		{Code: AccountPenaltyReceivable, Name: "Penalty Receivable", Type: AccountAsset},
		{Code: AccountInventory, Name: "Inventory", Type: AccountAsset},
		{Code: AccountCustomerCredits, Name: "Customer Credits", Type: AccountLiability},
		{Code: AccountOwnerCapital, Name: "Owner Capital", Type: AccountCapital},
		{Code: AccountInterestIncome, Name: "Interest Income", Type: AccountIncome},
		{Code: AccountPenaltyIncome, Name: "Penalty Income", Type: AccountIncome},
		{Code: AccountSalesIncome, Name: "Sales Income", Type: AccountIncome},
		{Code: AccountCostOfGoodsSold, Name: "Cost of Goods Sold", Type: AccountExpense},
		{Code: AccountOperatingExpense, Name: "Operating Expenses", Type: AccountExpense},
		{Code: AccountWriteOffExpense, Name: "Write-off Expense", Type: AccountExpense},
	}
}

// AccountByCode looks up an account in the chart.
func AccountByCode(code string) (Account, bool) {
	for _, a := range ChartOfAccounts() {
		if a.Code == code {
			return a, true
		}
	}
	return Account{}, false
}
