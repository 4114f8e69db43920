package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/loanservicing/internal/loan/domain"
	"github.com/wyfcoding/loanservicing/pkg/db"
)

// PaymentRepository persists payments, allocation rows, and audit notes.
// Allocation rows are append-only; reclassification flips superseded flags
// and inserts new rows instead of editing history.
type PaymentRepository struct {
	db *db.DB
}

func NewPaymentRepository(database *db.DB) *PaymentRepository {
	return &PaymentRepository{db: database}
}

func (r *PaymentRepository) SavePayment(ctx context.Context, payment *domain.Payment) error {
	conn := getDB(ctx, r.db)
	po := paymentToPO(payment)
	if err := conn.Clauses(clause.OnConflict{UpdateAll: true}).Create(po).Error; err != nil {
		return fmt.Errorf("failed to save payment %s: %w", payment.ID, err)
	}
	return nil
}

func (r *PaymentRepository) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	conn := getDB(ctx, r.db)
	var po PaymentPO
	if err := conn.Where("id = ?", paymentID).First(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to load payment %s: %w", paymentID, err)
	}
	return po.ToDomain(), nil
}

func (r *PaymentRepository) SaveAllocations(ctx context.Context, allocations []domain.PaymentAllocation) error {
	if len(allocations) == 0 {
		return nil
	}
	conn := getDB(ctx, r.db)
	pos := make([]*PaymentAllocationPO, 0, len(allocations))
	for _, a := range allocations {
		pos = append(pos, allocationToPO(a))
	}
	if err := conn.Create(&pos).Error; err != nil {
		return fmt.Errorf("failed to save allocations of payment %s: %w", allocations[0].PaymentID, err)
	}
	return nil
}

func (r *PaymentRepository) ListAllocations(ctx context.Context, paymentID string) ([]domain.PaymentAllocation, error) {
	conn := getDB(ctx, r.db)
	var pos []PaymentAllocationPO
	if err := conn.Where("payment_id = ?", paymentID).Order("created_at, id").Find(&pos).Error; err != nil {
		return nil, fmt.Errorf("failed to list allocations of payment %s: %w", paymentID, err)
	}
	out := make([]domain.PaymentAllocation, 0, len(pos))
	for i := range pos {
		out = append(out, pos[i].ToDomain())
	}
	return out, nil
}

func (r *PaymentRepository) SupersedeAllocations(ctx context.Context, paymentID string) error {
	conn := getDB(ctx, r.db)
	if err := conn.Model(&PaymentAllocationPO{}).
		Where("payment_id = ? AND superseded = ?", paymentID, false).
		Update("superseded", true).Error; err != nil {
		return fmt.Errorf("failed to supersede allocations of payment %s: %w", paymentID, err)
	}
	return nil
}

func (r *PaymentRepository) SaveAuditNote(ctx context.Context, note *domain.AuditNote) error {
	conn := getDB(ctx, r.db)
	po := &AuditNotePO{
		ID:        note.ID,
		PaymentID: note.PaymentID,
		LoanID:    note.LoanID,
		OldDate:   note.OldDate,
		NewDate:   note.NewDate,
		Reason:    note.Reason,
		Actor:     note.Actor,
		CreatedAt: note.CreatedAt,
	}
	if err := conn.Create(po).Error; err != nil {
		return fmt.Errorf("failed to save audit note for payment %s: %w", note.PaymentID, err)
	}
	return nil
}

// ResolutionRepository persists terminal loan resolutions.
type ResolutionRepository struct {
	db *db.DB
}

func NewResolutionRepository(database *db.DB) *ResolutionRepository {
	return &ResolutionRepository{db: database}
}

func (r *ResolutionRepository) Save(ctx context.Context, record *domain.ResolutionRecord) error {
	conn := getDB(ctx, r.db)
	po := &ResolutionPO{
		ID:                  record.ID,
		LoanID:              record.LoanID,
		Type:                string(record.Type),
		Amount:              record.Amount,
		WriteOffAmount:      record.WriteOffAmount,
		CapitalOutstanding:  record.CapitalOutstanding,
		InterestOutstanding: record.InterestOutstanding,
		PenaltyOutstanding:  record.PenaltyOutstanding,
		Status:              record.Status,
		CreatedBy:           record.CreatedBy,
		CreatedAt:           record.CreatedAt,
		CompletedAt:         record.CompletedAt,
	}
	if err := conn.Create(po).Error; err != nil {
		return fmt.Errorf("failed to save resolution for loan %s: %w", record.LoanID, err)
	}
	return nil
}

// CollectionRepository records collection actions.
type CollectionRepository struct {
	db *db.DB
}

func NewCollectionRepository(database *db.DB) *CollectionRepository {
	return &CollectionRepository{db: database}
}

func (r *CollectionRepository) Record(ctx context.Context, record *domain.CollectionActionRecord) error {
	conn := getDB(ctx, r.db)
	po := &CollectionActionPO{
		ID:         record.ID,
		LoanID:     record.LoanID,
		Period:     record.Period,
		Action:     string(record.Action),
		Note:       record.Note,
		Actor:      record.Actor,
		RecordedAt: record.RecordedAt,
	}
	if err := conn.Create(po).Error; err != nil {
		return fmt.Errorf("failed to record collection action for loan %s: %w", record.LoanID, err)
	}
	return nil
}
