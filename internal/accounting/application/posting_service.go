// Package application orchestrates journal posting and ledger reconciliation
// for the accounting context.
package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/loanservicing/internal/accounting/domain"
	"github.com/wyfcoding/loanservicing/pkg/idgen"
	"github.com/wyfcoding/loanservicing/pkg/logger"
)

// TxManager runs fn atomically; repositories called with the returned context
// join the same transaction.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PostingService turns consumed loan events and manual requests into journal
// entries. Posting is idempotent per source event id, so the Kafka consumer
// can redeliver freely.
type PostingService struct {
	journal domain.JournalRepository
	tx      TxManager
}

func NewPostingService(journal domain.JournalRepository, tx TxManager) *PostingService {
	return &PostingService{journal: journal, tx: tx}
}

// HandleLoanEvent decodes and posts one consumed loan event. Events already
// posted and event types accounting does not book are skipped silently.
func (s *PostingService) HandleLoanEvent(ctx context.Context, event domain.LoanEvent) error {
	entries, err := s.entriesFor(event)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	exists, err := s.journal.ExistsBySourceEvent(ctx, entries[0].SourceEventID)
	if err != nil {
		return err
	}
	if exists {
		logger.Debug(ctx, "Event already posted, skipping", "event_id", event.ID, "event_type", event.Type)
		return nil
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, entry := range entries {
			entry.ID = idgen.GenStringID("JRN")
			for i := range entry.Lines {
				entry.Lines[i].ID = idgen.GenStringID("JRL")
				entry.Lines[i].EntryID = entry.ID
			}
			if err := s.journal.SaveEntry(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "Loan event posted",
		"event_id", event.ID, "event_type", event.Type, "loan_id", event.LoanID, "entries", len(entries))
	return nil
}

func (s *PostingService) entriesFor(event domain.LoanEvent) ([]*domain.JournalEntry, error) {
	switch event.Type {
	case domain.EventLoanCreated:
		var p domain.LoanCreatedPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", event.Type, err)
		}
		entry, err := domain.PostLoanCreated(event, p)
		if err != nil {
			return nil, err
		}
		return []*domain.JournalEntry{entry}, nil

	case domain.EventPaymentAllocated:
		var p domain.PaymentAllocatedPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", event.Type, err)
		}
		entry, err := domain.PostPaymentAllocated(event, p)
		if err != nil {
			return nil, err
		}
		return []*domain.JournalEntry{entry}, nil

	case domain.EventPaymentReclassified:
		var p domain.PaymentReclassifiedPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", event.Type, err)
		}
		return domain.PostPaymentReclassified(event, p)

	case domain.EventPenaltyAssessed:
		var p domain.PenaltyAssessedPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", event.Type, err)
		}
		entry, err := domain.PostPenaltyAssessed(event, p)
		if err != nil {
			return nil, err
		}
		return []*domain.JournalEntry{entry}, nil

	case domain.EventLoanResolved:
		var p domain.LoanResolvedPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", event.Type, err)
		}
		entry, err := domain.PostLoanResolved(event, p)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, nil
		}
		return []*domain.JournalEntry{entry}, nil
	}

	logger.Warn(context.Background(), "Unknown event type, skipping", "event_type", event.Type, "event_id", event.ID)
	return nil, nil
}

// ManualLineInput is one line of a manual journal entry request.
type ManualLineInput struct {
	AccountCode string
	Direction   domain.Direction
	Amount      decimal.Decimal
}

// ManualEntryCommand posts a hand-written entry: capital injections, water
// sales, operating expenses, anything the loan event stream does not cover.
type ManualEntryCommand struct {
	Reference string
	Memo      string
	EntryDate time.Time
	Lines     []ManualLineInput
}

// PostManualEntry validates and stores a manual journal entry.
func (s *PostingService) PostManualEntry(ctx context.Context, cmd ManualEntryCommand) (*domain.JournalEntry, error) {
	entry := &domain.JournalEntry{
		SourceEventID: cmd.Reference,
		SourceType:    "manual",
		Memo:          cmd.Memo,
		EntryDate:     cmd.EntryDate,
	}
	for _, in := range cmd.Lines {
		entry.Lines = append(entry.Lines, domain.JournalLine{
			AccountCode: in.AccountCode,
			Direction:   in.Direction,
			Amount:      in.Amount,
		})
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.journal.ExistsBySourceEvent(ctx, entry.SourceEventID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateEvent, entry.SourceEventID)
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		entry.ID = idgen.GenStringID("JRN")
		for i := range entry.Lines {
			entry.Lines[i].ID = idgen.GenStringID("JRL")
			entry.Lines[i].EntryID = entry.ID
		}
		return s.journal.SaveEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "Manual journal entry posted", "reference", cmd.Reference, "lines", len(entry.Lines))
	return entry, nil
}
