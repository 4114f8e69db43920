package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/loanservicing/internal/loan/domain"
	"github.com/wyfcoding/loanservicing/pkg/db"
	"github.com/wyfcoding/loanservicing/pkg/idgen"
)

// LoanRepository persists the loan aggregate: the loan row plus its
// installment rows, written together in the caller's transaction.
type LoanRepository struct {
	db *db.DB
}

func NewLoanRepository(database *db.DB) *LoanRepository {
	return &LoanRepository{db: database}
}

func (r *LoanRepository) Save(ctx context.Context, loan *domain.Loan) error {
	conn := getDB(ctx, r.db)

	po := loanToPO(loan)
	if err := conn.Clauses(clause.OnConflict{UpdateAll: true}).Create(po).Error; err != nil {
		return fmt.Errorf("failed to save loan %s: %w", loan.ID, err)
	}

	for _, inst := range loan.Installments {
		if inst.ID == "" {
			inst.ID = idgen.GenStringID("INST")
		}
		instPO := installmentToPO(inst)
		if err := conn.Clauses(clause.OnConflict{UpdateAll: true}).Create(instPO).Error; err != nil {
			return fmt.Errorf("failed to save installment %s/%d: %w", loan.ID, inst.Period, err)
		}
	}
	return nil
}

func (r *LoanRepository) Get(ctx context.Context, loanID string) (*domain.Loan, error) {
	conn := getDB(ctx, r.db)

	var po LoanPO
	if err := conn.Where("id = ?", loanID).First(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, fmt.Errorf("failed to load loan %s: %w", loanID, err)
	}

	loan := po.ToDomain()
	if err := r.attachInstallments(conn, loan); err != nil {
		return nil, err
	}
	return loan, nil
}

func (r *LoanRepository) ListServiceable(ctx context.Context) ([]*domain.Loan, error) {
	conn := getDB(ctx, r.db)

	var pos []LoanPO
	statuses := []string{string(domain.LoanStatusActive), string(domain.LoanStatusOverdue)}
	if err := conn.Where("status IN ?", statuses).Order("id").Find(&pos).Error; err != nil {
		return nil, fmt.Errorf("failed to list serviceable loans: %w", err)
	}

	loans := make([]*domain.Loan, 0, len(pos))
	for i := range pos {
		loan := pos[i].ToDomain()
		if err := r.attachInstallments(conn, loan); err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, nil
}

func (r *LoanRepository) attachInstallments(conn *gorm.DB, loan *domain.Loan) error {
	var pos []InstallmentPO
	if err := conn.Where("loan_id = ?", loan.ID).Order("period").Find(&pos).Error; err != nil {
		return fmt.Errorf("failed to load installments of loan %s: %w", loan.ID, err)
	}
	loan.Installments = make([]*domain.Installment, 0, len(pos))
	for i := range pos {
		loan.Installments = append(loan.Installments, pos[i].ToDomain())
	}
	return nil
}
