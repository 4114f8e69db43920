// Package application orchestrates the loan servicing use cases: locking,
// transactions, persistence, and event publishing around the domain engine.
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/loanservicing/internal/loan/domain"
	"github.com/wyfcoding/loanservicing/pkg/idgen"
	"github.com/wyfcoding/loanservicing/pkg/logger"
	"github.com/wyfcoding/loanservicing/pkg/metrics"
)

// TxManager runs fn atomically; repositories called with the returned context
// join the same transaction.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// LoanService is the write side of the loan context. Every mutation of a loan
// goes through the per-loan lock and a single transaction; events are
// published only after the transaction commits.
type LoanService struct {
	loans       domain.LoanRepository
	payments    domain.PaymentRepository
	resolutions domain.ResolutionRepository
	collections domain.CollectionRepository
	locker      domain.LoanLocker
	publisher   domain.EventPublisher
	tx          TxManager
	metrics     *metrics.Metrics

	penaltyPolicy  domain.PenaltyPolicy
	periodsPerYear int
	lockTTL        time.Duration

	now func() time.Time
}

// NewLoanService wires the loan write service.
func NewLoanService(
	loans domain.LoanRepository,
	payments domain.PaymentRepository,
	resolutions domain.ResolutionRepository,
	collections domain.CollectionRepository,
	locker domain.LoanLocker,
	publisher domain.EventPublisher,
	tx TxManager,
	m *metrics.Metrics,
	penaltyPolicy domain.PenaltyPolicy,
	periodsPerYear int,
	lockTTL time.Duration,
) *LoanService {
	return &LoanService{
		loans:          loans,
		payments:       payments,
		resolutions:    resolutions,
		collections:    collections,
		locker:         locker,
		publisher:      publisher,
		tx:             tx,
		metrics:        m,
		penaltyPolicy:  penaltyPolicy,
		periodsPerYear: periodsPerYear,
		lockTTL:        lockTTL,
		now:            time.Now,
	}
}

// CreateLoan generates the amortization schedule, activates the loan, and
// persists the whole aggregate.
func (s *LoanService) CreateLoan(ctx context.Context, cmd CreateLoanCommand) (*domain.Loan, error) {
	schedule, err := domain.GenerateSchedule(cmd.Principal, cmd.AnnualRate, cmd.TermPeriods, cmd.StartDate, s.periodsPerYear)
	if err != nil {
		return nil, err
	}

	loan := domain.NewLoan(idgen.GenStringID("LOAN"), cmd.CustomerID, cmd.Principal, cmd.AnnualRate, cmd.TermPeriods, cmd.StartDate, schedule)
	if err := loan.TransitionTo(domain.LoanStatusActive); err != nil {
		return nil, err
	}

	if err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.loans.Save(ctx, loan)
	}); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.LoansCreatedTotal.Inc()
	}
	s.publish(ctx, domain.EventLoanCreated, loan.ID, domain.LoanCreatedEvent{
		LoanID:     loan.ID,
		CustomerID: loan.CustomerID,
		Principal:  loan.Principal,
	})
	logger.Info(ctx, "Loan created", "loan_id", loan.ID, "customer_id", loan.CustomerID, "principal", loan.Principal)
	return loan, nil
}

// AllocatePayment records a payment and runs it through the waterfall under
// the loan lock. The payment, its allocation rows, and the updated aggregate
// are committed together.
func (s *LoanService) AllocatePayment(ctx context.Context, cmd AllocatePaymentCommand) (*PaymentResult, error) {
	release, err := s.locker.Acquire(ctx, cmd.LoanID, s.lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	today := s.today()
	payment := &domain.Payment{
		ID:           idgen.GenStringID("PAY"),
		LoanID:       cmd.LoanID,
		Amount:       cmd.Amount,
		PaymentDate:  cmd.PaymentDate,
		TargetPeriod: cmd.TargetPeriod,
	}

	var result PaymentResult
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		loan, err := s.loans.Get(ctx, cmd.LoanID)
		if err != nil {
			return err
		}

		allocations, err := domain.AllocatePayment(loan, payment, today)
		if err != nil {
			return err
		}
		for i := range allocations {
			allocations[i].ID = idgen.GenStringID("ALC")
		}

		if err := s.payments.SavePayment(ctx, payment); err != nil {
			return err
		}
		if err := s.payments.SaveAllocations(ctx, allocations); err != nil {
			return err
		}
		if err := s.loans.Save(ctx, loan); err != nil {
			return err
		}

		result = PaymentResult{Payment: payment, Allocations: allocations, LoanStatus: loan.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PaymentsAllocatedTotal.Inc()
	}
	s.publish(ctx, domain.EventPaymentAllocated, cmd.LoanID, domain.PaymentAllocatedEvent{
		PaymentID:   payment.ID,
		LoanID:      cmd.LoanID,
		Amount:      payment.Amount,
		PaymentDate: payment.PaymentDate,
		Allocations: domain.ComponentAmounts(result.Allocations),
	})
	logger.Info(ctx, "Payment allocated",
		"loan_id", cmd.LoanID, "payment_id", payment.ID,
		"amount", payment.Amount, "rows", len(result.Allocations))
	return &result, nil
}

// ReclassifyPayment replaces the active allocation rows of a payment with the
// requested set. The original rows survive as superseded history and an audit
// note records who changed what and why.
func (s *LoanService) ReclassifyPayment(ctx context.Context, cmd ReclassifyPaymentCommand) (*ReclassifyResult, error) {
	release, err := s.locker.Acquire(ctx, cmd.LoanID, s.lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	today := s.today()
	replacement := make([]domain.PaymentAllocation, 0, len(cmd.Replacement))
	for _, in := range cmd.Replacement {
		replacement = append(replacement, domain.PaymentAllocation{
			Period:    in.Period,
			Component: in.Component,
			Amount:    in.Amount,
		})
	}

	var (
		result ReclassifyResult
		oldSet []domain.ComponentAmount
		pay    *domain.Payment
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		loan, err := s.loans.Get(ctx, cmd.LoanID)
		if err != nil {
			return err
		}
		pay, err = s.payments.GetPayment(ctx, cmd.PaymentID)
		if err != nil {
			return err
		}
		if pay.LoanID != loan.ID {
			return fmt.Errorf("%w: payment %s does not belong to loan %s", domain.ErrPaymentNotFound, cmd.PaymentID, cmd.LoanID)
		}

		original, err := s.payments.ListAllocations(ctx, cmd.PaymentID)
		if err != nil {
			return err
		}
		oldSet = domain.ComponentAmounts(original)

		note, applied, err := domain.ReclassifyPayment(loan, pay, original, replacement, cmd.NewDate, cmd.Reason, cmd.Actor, today)
		if err != nil {
			return err
		}
		note.ID = idgen.GenStringID("AUD")
		for i := range applied {
			applied[i].ID = idgen.GenStringID("ALC")
		}

		if err := s.payments.SupersedeAllocations(ctx, cmd.PaymentID); err != nil {
			return err
		}
		if err := s.payments.SaveAllocations(ctx, applied); err != nil {
			return err
		}
		if err := s.payments.SaveAuditNote(ctx, note); err != nil {
			return err
		}
		if err := s.payments.SavePayment(ctx, pay); err != nil {
			return err
		}
		if err := s.loans.Save(ctx, loan); err != nil {
			return err
		}

		result = ReclassifyResult{Note: note, Allocations: applied, LoanStatus: loan.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ReclassificationsTotal.Inc()
	}
	s.publish(ctx, domain.EventPaymentReclassified, cmd.LoanID, domain.PaymentReclassifiedEvent{
		PaymentID: cmd.PaymentID,
		LoanID:    cmd.LoanID,
		Amount:    pay.Amount,
		Old:       oldSet,
		New:       domain.ComponentAmounts(result.Allocations),
		Reason:    cmd.Reason,
		Actor:     cmd.Actor,
	})
	logger.Info(ctx, "Payment reclassified",
		"loan_id", cmd.LoanID, "payment_id", cmd.PaymentID, "actor", cmd.Actor, "reason", cmd.Reason)
	return &result, nil
}

// ResolveLoan closes out a loan with a settlement, write-off, or repossession.
func (s *LoanService) ResolveLoan(ctx context.Context, cmd ResolveLoanCommand) (*domain.ResolutionRecord, error) {
	release, err := s.locker.Acquire(ctx, cmd.LoanID, s.lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	today := s.today()
	var record *domain.ResolutionRecord
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		loan, err := s.loans.Get(ctx, cmd.LoanID)
		if err != nil {
			return err
		}
		record, err = domain.ResolveLoan(loan, cmd.Type, cmd.Amount, cmd.Actor, today)
		if err != nil {
			return err
		}
		record.ID = idgen.GenStringID("RES")
		if err := s.resolutions.Save(ctx, record); err != nil {
			return err
		}
		return s.loans.Save(ctx, loan)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventLoanResolved, cmd.LoanID, domain.LoanResolvedEvent{
		LoanID:              cmd.LoanID,
		Type:                record.Type,
		Amount:              record.Amount,
		WriteOffAmount:      record.WriteOffAmount,
		CapitalOutstanding:  record.CapitalOutstanding,
		InterestOutstanding: record.InterestOutstanding,
		PenaltyOutstanding:  record.PenaltyOutstanding,
	})
	logger.Info(ctx, "Loan resolved",
		"loan_id", cmd.LoanID, "type", record.Type, "write_off", record.WriteOffAmount)
	return record, nil
}

// RecordCollectionAction logs a collection step against an overdue
// installment. Pure side-effect storage; the engine never contacts customers.
func (s *LoanService) RecordCollectionAction(ctx context.Context, cmd RecordCollectionActionCommand) (*domain.CollectionActionRecord, error) {
	record := &domain.CollectionActionRecord{
		ID:         idgen.GenStringID("COL"),
		LoanID:     cmd.LoanID,
		Period:     cmd.Period,
		Action:     cmd.Action,
		Note:       cmd.Note,
		Actor:      cmd.Actor,
		RecordedAt: s.now(),
	}
	if err := s.collections.Record(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// AssessOverduePenalties sweeps every serviceable loan, assessing at most one
// penalty per overdue installment and applying any held credit that has come
// due. Safe to rerun; already-assessed installments are skipped.
func (s *LoanService) AssessOverduePenalties(ctx context.Context) (int, error) {
	today := s.today()
	loans, err := s.loans.ListServiceable(ctx)
	if err != nil {
		return 0, err
	}

	type assessment struct {
		period int
		amount decimal.Decimal
	}

	assessed := 0
	for _, candidate := range loans {
		loanID := candidate.ID
		release, err := s.locker.Acquire(ctx, loanID, s.lockTTL)
		if err != nil {
			// A locked loan is being serviced right now; the next sweep gets it.
			logger.Warn(ctx, "Skipping locked loan during penalty sweep", "loan_id", loanID, "error", err)
			continue
		}

		var assessments []assessment
		err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
			assessments = nil
			loan, err := s.loans.Get(ctx, loanID)
			if err != nil {
				return err
			}

			for _, inst := range loan.Installments {
				if amount, applied := inst.ApplyPenalty(s.penaltyPolicy, today); applied {
					assessments = append(assessments, assessment{period: inst.Period, amount: amount})
				}
			}
			credits := loan.ApplyUnappliedCredit(today)
			loan.RecomputeStatus(today)

			if len(assessments) == 0 && len(credits) == 0 {
				return nil
			}
			return s.loans.Save(ctx, loan)
		})
		release()
		if err != nil {
			logger.Error(ctx, "Penalty sweep failed for loan", "loan_id", loanID, "error", err)
			continue
		}

		// Counters and events cover committed assessments only.
		for _, a := range assessments {
			assessed++
			if s.metrics != nil {
				s.metrics.PenaltiesAssessedTotal.Inc()
			}
			s.publish(ctx, domain.EventPenaltyAssessed, loanID, domain.PenaltyAssessedEvent{
				LoanID: loanID,
				Period: a.period,
				Amount: a.amount,
			})
		}
	}

	logger.Info(ctx, "Penalty sweep finished", "loans", len(loans), "penalties", assessed)
	return assessed, nil
}

// ReprocessPayment re-runs the waterfall for a payment that has no active
// allocation rows. Payments that were already allocated are left untouched,
// so a crashed batch can simply be rerun.
func (s *LoanService) ReprocessPayment(ctx context.Context, loanID, paymentID string) (bool, error) {
	release, err := s.locker.Acquire(ctx, loanID, s.lockTTL)
	if err != nil {
		return false, err
	}
	defer release()

	processed := false
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		pay, err := s.payments.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if pay.LoanID != loanID {
			return fmt.Errorf("%w: payment %s does not belong to loan %s", domain.ErrPaymentNotFound, paymentID, loanID)
		}

		existing, err := s.payments.ListAllocations(ctx, paymentID)
		if err != nil {
			return err
		}
		for _, row := range existing {
			if !row.Superseded {
				// Already applied; reprocessing is a no-op.
				return nil
			}
		}

		loan, err := s.loans.Get(ctx, loanID)
		if err != nil {
			return err
		}
		allocations, err := domain.AllocatePayment(loan, pay, s.today())
		if err != nil {
			return err
		}
		for i := range allocations {
			allocations[i].ID = idgen.GenStringID("ALC")
		}
		if err := s.payments.SaveAllocations(ctx, allocations); err != nil {
			return err
		}
		if err := s.loans.Save(ctx, loan); err != nil {
			return err
		}
		processed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if processed {
		logger.Info(ctx, "Payment reprocessed", "loan_id", loanID, "payment_id", paymentID)
	}
	return processed, nil
}

// today truncates the clock to a date; servicing decisions are day-granular.
func (s *LoanService) today() time.Time {
	n := s.now().UTC()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *LoanService) publish(ctx context.Context, eventType, loanID string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	event := domain.Event{
		ID:         idgen.GenStringID("EVT"),
		Type:       eventType,
		LoanID:     loanID,
		OccurredAt: s.now().UTC(),
		Payload:    payload,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		// The write already committed; accounting catches up via the backfill.
		logger.Error(ctx, "Failed to publish event", "event_type", eventType, "loan_id", loanID, "error", err)
	}
}
