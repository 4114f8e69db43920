// Package mysql implements the loan context repositories on gorm.
package mysql

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/loanservicing/internal/loan/domain"
)

// LoanPO maps the loans table.
type LoanPO struct {
	ID              string          `gorm:"column:id;primaryKey;size:64"`
	CustomerID      string          `gorm:"column:customer_id;size:64;index"`
	Principal       decimal.Decimal `gorm:"column:principal;type:decimal(20,2)"`
	AnnualRate      decimal.Decimal `gorm:"column:annual_rate;type:decimal(10,6)"`
	TermPeriods     int             `gorm:"column:term_periods"`
	StartDate       time.Time       `gorm:"column:start_date"`
	Status          string          `gorm:"column:status;size:32;index"`
	UnappliedCredit decimal.Decimal `gorm:"column:unapplied_credit;type:decimal(20,2)"`
	CreatedAt       time.Time       `gorm:"column:created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at"`
}

func (LoanPO) TableName() string { return "loans" }

// InstallmentPO maps the loan_installments table.
type InstallmentPO struct {
	ID                string          `gorm:"column:id;primaryKey;size:64"`
	LoanID            string          `gorm:"column:loan_id;size:64;uniqueIndex:uk_loan_period,priority:1"`
	Period            int             `gorm:"column:period;uniqueIndex:uk_loan_period,priority:2"`
	DueDate           time.Time       `gorm:"column:due_date;index"`
	CapitalPortion    decimal.Decimal `gorm:"column:capital_portion;type:decimal(20,2)"`
	InterestPortion   decimal.Decimal `gorm:"column:interest_portion;type:decimal(20,2)"`
	PenaltyApplied    decimal.Decimal `gorm:"column:penalty_applied;type:decimal(20,2)"`
	CapitalPaid       decimal.Decimal `gorm:"column:capital_paid;type:decimal(20,2)"`
	InterestPaid      decimal.Decimal `gorm:"column:interest_paid;type:decimal(20,2)"`
	PenaltyPaid       decimal.Decimal `gorm:"column:penalty_paid;type:decimal(20,2)"`
	Status            string          `gorm:"column:status;size:32;index"`
	PenaltyAssessedAt *time.Time      `gorm:"column:penalty_assessed_at"`
	CreatedAt         time.Time       `gorm:"column:created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at"`
}

func (InstallmentPO) TableName() string { return "loan_installments" }

// PaymentPO maps the payments table.
type PaymentPO struct {
	ID           string          `gorm:"column:id;primaryKey;size:64"`
	LoanID       string          `gorm:"column:loan_id;size:64;index"`
	Amount       decimal.Decimal `gorm:"column:amount;type:decimal(20,2)"`
	PaymentDate  time.Time       `gorm:"column:payment_date"`
	TargetPeriod int             `gorm:"column:target_period"`
	CreatedAt    time.Time       `gorm:"column:created_at"`
}

func (PaymentPO) TableName() string { return "payments" }

// PaymentAllocationPO maps the payment_allocations table. Superseded rows are
// never deleted; they are the reclassification history.
type PaymentAllocationPO struct {
	ID         string          `gorm:"column:id;primaryKey;size:64"`
	PaymentID  string          `gorm:"column:payment_id;size:64;index"`
	LoanID     string          `gorm:"column:loan_id;size:64;index"`
	Period     int             `gorm:"column:period"`
	Component  string          `gorm:"column:component;size:16"`
	Amount     decimal.Decimal `gorm:"column:amount;type:decimal(20,2)"`
	Superseded bool            `gorm:"column:superseded"`
	CreatedAt  time.Time       `gorm:"column:created_at"`
}

func (PaymentAllocationPO) TableName() string { return "payment_allocations" }

// AuditNotePO maps the payment_audit_notes table.
type AuditNotePO struct {
	ID        string    `gorm:"column:id;primaryKey;size:64"`
	PaymentID string    `gorm:"column:payment_id;size:64;index"`
	LoanID    string    `gorm:"column:loan_id;size:64;index"`
	OldDate   time.Time `gorm:"column:old_date"`
	NewDate   time.Time `gorm:"column:new_date"`
	Reason    string    `gorm:"column:reason;size:512"`
	Actor     string    `gorm:"column:actor;size:64"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (AuditNotePO) TableName() string { return "payment_audit_notes" }

// ResolutionPO maps the loan_resolutions table.
type ResolutionPO struct {
	ID                  string          `gorm:"column:id;primaryKey;size:64"`
	LoanID              string          `gorm:"column:loan_id;size:64;index"`
	Type                string          `gorm:"column:type;size:32"`
	Amount              decimal.Decimal `gorm:"column:amount;type:decimal(20,2)"`
	WriteOffAmount      decimal.Decimal `gorm:"column:write_off_amount;type:decimal(20,2)"`
	CapitalOutstanding  decimal.Decimal `gorm:"column:capital_outstanding;type:decimal(20,2)"`
	InterestOutstanding decimal.Decimal `gorm:"column:interest_outstanding;type:decimal(20,2)"`
	PenaltyOutstanding  decimal.Decimal `gorm:"column:penalty_outstanding;type:decimal(20,2)"`
	Status              string          `gorm:"column:status;size:32"`
	CreatedBy           string          `gorm:"column:created_by;size:64"`
	CreatedAt           time.Time       `gorm:"column:created_at"`
	CompletedAt         *time.Time      `gorm:"column:completed_at"`
}

func (ResolutionPO) TableName() string { return "loan_resolutions" }

// CollectionActionPO maps the collection_actions table.
type CollectionActionPO struct {
	ID         string    `gorm:"column:id;primaryKey;size:64"`
	LoanID     string    `gorm:"column:loan_id;size:64;index"`
	Period     int       `gorm:"column:period"`
	Action     string    `gorm:"column:action;size:32"`
	Note       string    `gorm:"column:note;size:512"`
	Actor      string    `gorm:"column:actor;size:64"`
	RecordedAt time.Time `gorm:"column:recorded_at"`
}

func (CollectionActionPO) TableName() string { return "collection_actions" }

func loanToPO(loan *domain.Loan) *LoanPO {
	return &LoanPO{
		ID:              loan.ID,
		CustomerID:      loan.CustomerID,
		Principal:       loan.Principal,
		AnnualRate:      loan.AnnualRate,
		TermPeriods:     loan.TermPeriods,
		StartDate:       loan.StartDate,
		Status:          string(loan.Status),
		UnappliedCredit: loan.UnappliedCredit,
		CreatedAt:       loan.CreatedAt,
		UpdatedAt:       loan.UpdatedAt,
	}
}

func (po *LoanPO) ToDomain() *domain.Loan {
	return &domain.Loan{
		ID:              po.ID,
		CustomerID:      po.CustomerID,
		Principal:       po.Principal,
		AnnualRate:      po.AnnualRate,
		TermPeriods:     po.TermPeriods,
		StartDate:       po.StartDate,
		Status:          domain.LoanStatus(po.Status),
		UnappliedCredit: po.UnappliedCredit,
		CreatedAt:       po.CreatedAt,
		UpdatedAt:       po.UpdatedAt,
	}
}

func installmentToPO(inst *domain.Installment) *InstallmentPO {
	return &InstallmentPO{
		ID:                inst.ID,
		LoanID:            inst.LoanID,
		Period:            inst.Period,
		DueDate:           inst.DueDate,
		CapitalPortion:    inst.CapitalPortion,
		InterestPortion:   inst.InterestPortion,
		PenaltyApplied:    inst.PenaltyApplied,
		CapitalPaid:       inst.CapitalPaid,
		InterestPaid:      inst.InterestPaid,
		PenaltyPaid:       inst.PenaltyPaid,
		Status:            string(inst.Status),
		PenaltyAssessedAt: inst.PenaltyAssessedAt,
		CreatedAt:         inst.CreatedAt,
		UpdatedAt:         inst.UpdatedAt,
	}
}

func (po *InstallmentPO) ToDomain() *domain.Installment {
	return &domain.Installment{
		ID:                po.ID,
		LoanID:            po.LoanID,
		Period:            po.Period,
		DueDate:           po.DueDate,
		CapitalPortion:    po.CapitalPortion,
		InterestPortion:   po.InterestPortion,
		PenaltyApplied:    po.PenaltyApplied,
		CapitalPaid:       po.CapitalPaid,
		InterestPaid:      po.InterestPaid,
		PenaltyPaid:       po.PenaltyPaid,
		Status:            domain.InstallmentStatus(po.Status),
		PenaltyAssessedAt: po.PenaltyAssessedAt,
		CreatedAt:         po.CreatedAt,
		UpdatedAt:         po.UpdatedAt,
	}
}

func paymentToPO(payment *domain.Payment) *PaymentPO {
	return &PaymentPO{
		ID:           payment.ID,
		LoanID:       payment.LoanID,
		Amount:       payment.Amount,
		PaymentDate:  payment.PaymentDate,
		TargetPeriod: payment.TargetPeriod,
		CreatedAt:    payment.CreatedAt,
	}
}

func (po *PaymentPO) ToDomain() *domain.Payment {
	return &domain.Payment{
		ID:           po.ID,
		LoanID:       po.LoanID,
		Amount:       po.Amount,
		PaymentDate:  po.PaymentDate,
		TargetPeriod: po.TargetPeriod,
		CreatedAt:    po.CreatedAt,
	}
}

func allocationToPO(a domain.PaymentAllocation) *PaymentAllocationPO {
	return &PaymentAllocationPO{
		ID:         a.ID,
		PaymentID:  a.PaymentID,
		LoanID:     a.LoanID,
		Period:     a.Period,
		Component:  string(a.Component),
		Amount:     a.Amount,
		Superseded: a.Superseded,
		CreatedAt:  a.CreatedAt,
	}
}

func (po *PaymentAllocationPO) ToDomain() domain.PaymentAllocation {
	return domain.PaymentAllocation{
		ID:         po.ID,
		PaymentID:  po.PaymentID,
		LoanID:     po.LoanID,
		Period:     po.Period,
		Component:  domain.Component(po.Component),
		Amount:     po.Amount,
		Superseded: po.Superseded,
		CreatedAt:  po.CreatedAt,
	}
}
