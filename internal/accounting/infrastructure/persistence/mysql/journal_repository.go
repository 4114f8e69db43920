// Package mysql implements the accounting journal repository on gorm.
package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wyfcoding/loanservicing/internal/accounting/domain"
	"github.com/wyfcoding/loanservicing/pkg/db"
)

// JournalEntryPO maps the journal_entries table.
type JournalEntryPO struct {
	ID            string    `gorm:"column:id;primaryKey;size:64"`
	SourceEventID string    `gorm:"column:source_event_id;size:128;uniqueIndex"`
	SourceType    string    `gorm:"column:source_type;size:64"`
	LoanID        string    `gorm:"column:loan_id;size:64;index"`
	Memo          string    `gorm:"column:memo;size:512"`
	EntryDate     time.Time `gorm:"column:entry_date;index"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (JournalEntryPO) TableName() string { return "journal_entries" }

// JournalLinePO maps the journal_lines table.
type JournalLinePO struct {
	ID          string          `gorm:"column:id;primaryKey;size:64"`
	EntryID     string          `gorm:"column:entry_id;size:64;index"`
	AccountCode string          `gorm:"column:account_code;size:16;index"`
	Direction   string          `gorm:"column:direction;size:8"`
	Amount      decimal.Decimal `gorm:"column:amount;type:decimal(20,2)"`
}

func (JournalLinePO) TableName() string { return "journal_lines" }

// TxManager implements application.TxManager for the accounting context.
type TxManager struct {
	db *db.DB
}

func NewTxManager(database *db.DB) *TxManager {
	return &TxManager{db: database}
}

func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.db.WithTx(ctx, func(tx *gorm.DB) error {
		return fn(db.CtxWithTx(ctx, tx))
	})
}

// SnapshotRunner implements application.SnapshotRunner with a REPEATABLE_READ
// transaction, so reconciliation sees a consistent journal.
type SnapshotRunner struct {
	db *db.DB
}

func NewSnapshotRunner(database *db.DB) *SnapshotRunner {
	return &SnapshotRunner{db: database}
}

func (s *SnapshotRunner) RunInSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.db.WithTxIsolation(ctx, "REPEATABLE_READ", func(tx *gorm.DB) error {
		return fn(db.CtxWithTx(ctx, tx))
	})
}

// JournalRepository persists journal entries and their lines append-only.
type JournalRepository struct {
	db *db.DB
}

func NewJournalRepository(database *db.DB) *JournalRepository {
	return &JournalRepository{db: database}
}

func getDB(ctx context.Context, database *db.DB) *gorm.DB {
	if tx, ok := db.TxFromContext(ctx); ok {
		return tx
	}
	return database.DB.WithContext(ctx)
}

func (r *JournalRepository) SaveEntry(ctx context.Context, entry *domain.JournalEntry) error {
	conn := getDB(ctx, r.db)

	po := &JournalEntryPO{
		ID:            entry.ID,
		SourceEventID: entry.SourceEventID,
		SourceType:    entry.SourceType,
		LoanID:        entry.LoanID,
		Memo:          entry.Memo,
		EntryDate:     entry.EntryDate,
		CreatedAt:     entry.CreatedAt,
	}
	if err := conn.Create(po).Error; err != nil {
		return fmt.Errorf("failed to save journal entry %s: %w", entry.SourceEventID, err)
	}

	lines := make([]*JournalLinePO, 0, len(entry.Lines))
	for _, line := range entry.Lines {
		lines = append(lines, &JournalLinePO{
			ID:          line.ID,
			EntryID:     line.EntryID,
			AccountCode: line.AccountCode,
			Direction:   string(line.Direction),
			Amount:      line.Amount,
		})
	}
	if err := conn.Create(&lines).Error; err != nil {
		return fmt.Errorf("failed to save journal lines of %s: %w", entry.SourceEventID, err)
	}
	return nil
}

func (r *JournalRepository) ListEntries(ctx context.Context, from, to time.Time) ([]*domain.JournalEntry, error) {
	conn := getDB(ctx, r.db)

	query := conn.Model(&JournalEntryPO{})
	if !from.IsZero() {
		query = query.Where("entry_date >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("entry_date <= ?", to)
	}

	var entryPOs []JournalEntryPO
	if err := query.Order("entry_date, id").Find(&entryPOs).Error; err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	if len(entryPOs) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(entryPOs))
	for _, po := range entryPOs {
		ids = append(ids, po.ID)
	}
	var linePOs []JournalLinePO
	if err := conn.Where("entry_id IN ?", ids).Order("entry_id, id").Find(&linePOs).Error; err != nil {
		return nil, fmt.Errorf("failed to list journal lines: %w", err)
	}

	linesByEntry := make(map[string][]domain.JournalLine)
	for _, po := range linePOs {
		linesByEntry[po.EntryID] = append(linesByEntry[po.EntryID], domain.JournalLine{
			ID:          po.ID,
			EntryID:     po.EntryID,
			AccountCode: po.AccountCode,
			Direction:   domain.Direction(po.Direction),
			Amount:      po.Amount,
		})
	}

	entries := make([]*domain.JournalEntry, 0, len(entryPOs))
	for _, po := range entryPOs {
		entries = append(entries, &domain.JournalEntry{
			ID:            po.ID,
			SourceEventID: po.SourceEventID,
			SourceType:    po.SourceType,
			LoanID:        po.LoanID,
			Memo:          po.Memo,
			EntryDate:     po.EntryDate,
			Lines:         linesByEntry[po.ID],
			CreatedAt:     po.CreatedAt,
		})
	}
	return entries, nil
}

func (r *JournalRepository) ExistsBySourceEvent(ctx context.Context, sourceEventID string) (bool, error) {
	conn := getDB(ctx, r.db)
	var count int64
	if err := conn.Model(&JournalEntryPO{}).Where("source_event_id = ?", sourceEventID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check source event %s: %w", sourceEventID, err)
	}
	return count > 0, nil
}
