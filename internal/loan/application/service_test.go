package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/loanservicing/internal/loan/domain"
)

type fakeLoanRepo struct {
	loans map[string]*domain.Loan
}

func newFakeLoanRepo() *fakeLoanRepo {
	return &fakeLoanRepo{loans: make(map[string]*domain.Loan)}
}

func (r *fakeLoanRepo) Save(_ context.Context, loan *domain.Loan) error {
	r.loans[loan.ID] = loan
	return nil
}

func (r *fakeLoanRepo) Get(_ context.Context, loanID string) (*domain.Loan, error) {
	loan, ok := r.loans[loanID]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	return loan, nil
}

func (r *fakeLoanRepo) ListServiceable(_ context.Context) ([]*domain.Loan, error) {
	var out []*domain.Loan
	for _, loan := range r.loans {
		if loan.Status == domain.LoanStatusActive || loan.Status == domain.LoanStatusOverdue {
			out = append(out, loan)
		}
	}
	return out, nil
}

type fakePaymentRepo struct {
	payments    map[string]*domain.Payment
	allocations map[string][]domain.PaymentAllocation
	notes       []*domain.AuditNote
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{
		payments:    make(map[string]*domain.Payment),
		allocations: make(map[string][]domain.PaymentAllocation),
	}
}

func (r *fakePaymentRepo) SavePayment(_ context.Context, payment *domain.Payment) error {
	r.payments[payment.ID] = payment
	return nil
}

func (r *fakePaymentRepo) GetPayment(_ context.Context, paymentID string) (*domain.Payment, error) {
	payment, ok := r.payments[paymentID]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return payment, nil
}

func (r *fakePaymentRepo) SaveAllocations(_ context.Context, allocations []domain.PaymentAllocation) error {
	for _, a := range allocations {
		r.allocations[a.PaymentID] = append(r.allocations[a.PaymentID], a)
	}
	return nil
}

func (r *fakePaymentRepo) ListAllocations(_ context.Context, paymentID string) ([]domain.PaymentAllocation, error) {
	return r.allocations[paymentID], nil
}

func (r *fakePaymentRepo) SupersedeAllocations(_ context.Context, paymentID string) error {
	rows := r.allocations[paymentID]
	for i := range rows {
		rows[i].Superseded = true
	}
	r.allocations[paymentID] = rows
	return nil
}

func (r *fakePaymentRepo) SaveAuditNote(_ context.Context, note *domain.AuditNote) error {
	r.notes = append(r.notes, note)
	return nil
}

type fakeResolutionRepo struct {
	records []*domain.ResolutionRecord
}

func (r *fakeResolutionRepo) Save(_ context.Context, record *domain.ResolutionRecord) error {
	r.records = append(r.records, record)
	return nil
}

type fakeCollectionRepo struct {
	records []*domain.CollectionActionRecord
}

func (r *fakeCollectionRepo) Record(_ context.Context, record *domain.CollectionActionRecord) error {
	r.records = append(r.records, record)
	return nil
}

type fakeLocker struct {
	held     map[string]bool
	acquired int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) Acquire(_ context.Context, loanID string, _ time.Duration) (func(), error) {
	if l.held[loanID] {
		return nil, domain.ErrLoanLocked
	}
	l.held[loanID] = true
	l.acquired++
	return func() { delete(l.held, loanID) }, nil
}

type fakePublisher struct {
	events []domain.Event
}

func (p *fakePublisher) Publish(_ context.Context, event domain.Event) error {
	p.events = append(p.events, event)
	return nil
}

type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// failCommitTx runs the closure but fails at commit time.
type failCommitTx struct{}

func (failCommitTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	return errors.New("commit failed")
}

type serviceFixture struct {
	svc         *LoanService
	loans       *fakeLoanRepo
	payments    *fakePaymentRepo
	resolutions *fakeResolutionRepo
	locker      *fakeLocker
	publisher   *fakePublisher
}

var fixtureStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newServiceFixture(t *testing.T, today time.Time) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		loans:       newFakeLoanRepo(),
		payments:    newFakePaymentRepo(),
		resolutions: &fakeResolutionRepo{},
		locker:      newFakeLocker(),
		publisher:   &fakePublisher{},
	}
	f.svc = NewLoanService(
		f.loans, f.payments, f.resolutions, &fakeCollectionRepo{},
		f.locker, f.publisher, passthroughTx{}, nil,
		domain.PenaltyPolicy{Mode: domain.PenaltyModePercentage, Rate: decimal.RequireFromString("0.05")},
		52, 30*time.Second,
	)
	f.svc.now = func() time.Time { return today }
	return f
}

func (f *serviceFixture) seedLoan(t *testing.T) *domain.Loan {
	t.Helper()
	schedule, err := domain.GenerateSchedule(decimal.RequireFromString("1000"), decimal.RequireFromString("0.52"), 10, fixtureStart, 52)
	require.NoError(t, err)
	loan := domain.NewLoan("LOAN-1", "CUST-1", decimal.RequireFromString("1000"), decimal.RequireFromString("0.52"), 10, fixtureStart, schedule)
	loan.Status = domain.LoanStatusActive
	require.NoError(t, f.loans.Save(context.Background(), loan))
	return loan
}

func TestCreateLoanActivatesAndPublishes(t *testing.T) {
	f := newServiceFixture(t, fixtureStart)

	loan, err := f.svc.CreateLoan(context.Background(), CreateLoanCommand{
		CustomerID:  "CUST-9",
		Principal:   decimal.RequireFromString("1000"),
		AnnualRate:  decimal.RequireFromString("0.52"),
		TermPeriods: 10,
		StartDate:   fixtureStart,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, loan.Status)
	assert.Len(t, loan.Installments, 10)

	stored, err := f.loans.Get(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.ID, stored.ID)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, domain.EventLoanCreated, f.publisher.events[0].Type)
}

func TestCreateLoanRejectsBadSchedule(t *testing.T) {
	f := newServiceFixture(t, fixtureStart)

	_, err := f.svc.CreateLoan(context.Background(), CreateLoanCommand{
		CustomerID:  "CUST-9",
		Principal:   decimal.Zero,
		AnnualRate:  decimal.RequireFromString("0.52"),
		TermPeriods: 10,
		StartDate:   fixtureStart,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidScheduleInput)
	assert.Empty(t, f.publisher.events)
}

func TestAllocatePaymentPersistsAndPublishes(t *testing.T) {
	today := fixtureStart.AddDate(0, 0, 7)
	f := newServiceFixture(t, today)
	f.seedLoan(t)

	result, err := f.svc.AllocatePayment(context.Background(), AllocatePaymentCommand{
		LoanID:      "LOAN-1",
		Amount:      decimal.RequireFromString("105.58"),
		PaymentDate: today,
	})
	require.NoError(t, err)
	require.Len(t, result.Allocations, 2)
	assert.Equal(t, domain.LoanStatusActive, result.LoanStatus)

	stored, err := f.payments.GetPayment(context.Background(), result.Payment.ID)
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(decimal.RequireFromString("105.58")))

	rows, err := f.payments.ListAllocations(context.Background(), result.Payment.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	for _, row := range rows {
		assert.NotEmpty(t, row.ID)
		assert.Equal(t, result.Payment.ID, row.PaymentID)
	}

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, domain.EventPaymentAllocated, f.publisher.events[0].Type)

	// The lock was released.
	assert.False(t, f.locker.held["LOAN-1"])
}

func TestAllocatePaymentPropagatesLockContention(t *testing.T) {
	today := fixtureStart.AddDate(0, 0, 7)
	f := newServiceFixture(t, today)
	f.seedLoan(t)
	f.locker.held["LOAN-1"] = true

	_, err := f.svc.AllocatePayment(context.Background(), AllocatePaymentCommand{
		LoanID:      "LOAN-1",
		Amount:      decimal.RequireFromString("50"),
		PaymentDate: today,
	})
	assert.ErrorIs(t, err, domain.ErrLoanLocked)
	assert.Empty(t, f.payments.payments)
	assert.Empty(t, f.publisher.events)
}

func TestAllocatePaymentRejectsInvalidAmountWithoutSideEffects(t *testing.T) {
	today := fixtureStart.AddDate(0, 0, 7)
	f := newServiceFixture(t, today)
	f.seedLoan(t)

	_, err := f.svc.AllocatePayment(context.Background(), AllocatePaymentCommand{
		LoanID:      "LOAN-1",
		Amount:      decimal.Zero,
		PaymentDate: today,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentAmount)
	assert.Empty(t, f.payments.payments)
	assert.Empty(t, f.publisher.events)
}

func TestReclassifyPaymentThroughService(t *testing.T) {
	today := fixtureStart.AddDate(0, 0, 7)
	f := newServiceFixture(t, today)
	f.seedLoan(t)

	result, err := f.svc.AllocatePayment(context.Background(), AllocatePaymentCommand{
		LoanID:      "LOAN-1",
		Amount:      decimal.RequireFromString("105.58"),
		PaymentDate: today,
	})
	require.NoError(t, err)

	reclassified, err := f.svc.ReclassifyPayment(context.Background(), ReclassifyPaymentCommand{
		LoanID:    "LOAN-1",
		PaymentID: result.Payment.ID,
		Replacement: []AllocationInput{
			{Period: 2, Component: domain.ComponentInterest, Amount: decimal.RequireFromString("9.04")},
			{Period: 2, Component: domain.ComponentCapital, Amount: decimal.RequireFromString("96.54")},
		},
		Reason: "posted to wrong installment",
		Actor:  "ops",
	})
	require.NoError(t, err)
	require.Len(t, reclassified.Allocations, 2)
	require.NotNil(t, reclassified.Note)
	require.Len(t, f.payments.notes, 1)

	// History survives: the original rows are superseded, the new ones active.
	rows, err := f.payments.ListAllocations(context.Background(), result.Payment.ID)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	active := 0
	for _, row := range rows {
		if !row.Superseded {
			active++
			assert.Equal(t, 2, row.Period)
		}
	}
	assert.Equal(t, 2, active)

	require.Len(t, f.publisher.events, 2)
	assert.Equal(t, domain.EventPaymentReclassified, f.publisher.events[1].Type)
}

func TestResolveLoanThroughService(t *testing.T) {
	today := fixtureStart.AddDate(0, 0, 60)
	f := newServiceFixture(t, today)
	f.seedLoan(t)

	record, err := f.svc.ResolveLoan(context.Background(), ResolveLoanCommand{
		LoanID: "LOAN-1",
		Type:   domain.ResolutionWriteOff,
		Amount: decimal.RequireFromString("55.82"),
		Actor:  "ops",
	})
	require.NoError(t, err)
	assert.True(t, record.WriteOffAmount.Equal(decimal.RequireFromString("1000")))
	require.Len(t, f.resolutions.records, 1)

	loan, err := f.loans.Get(context.Background(), "LOAN-1")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusWrittenOff, loan.Status)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, domain.EventLoanResolved, f.publisher.events[0].Type)
	payload, ok := f.publisher.events[0].Payload.(domain.LoanResolvedEvent)
	require.True(t, ok)
	assert.True(t, payload.CapitalOutstanding.Equal(decimal.RequireFromString("1000")))
	assert.True(t, payload.InterestOutstanding.Equal(decimal.RequireFromString("55.82")))
	assert.True(t, payload.PenaltyOutstanding.IsZero())
}

func TestAssessOverduePenaltiesIsIdempotent(t *testing.T) {
	today := fixtureStart.AddDate(0, 0, 10) // installment 1 three days past due
	f := newServiceFixture(t, today)
	f.seedLoan(t)

	assessed, err := f.svc.AssessOverduePenalties(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, assessed)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, domain.EventPenaltyAssessed, f.publisher.events[0].Type)

	loan, err := f.loans.Get(context.Background(), "LOAN-1")
	require.NoError(t, err)
	assert.True(t, loan.InstallmentAt(1).PenaltyApplied.Equal(decimal.RequireFromString("5.28")))
	assert.Equal(t, domain.LoanStatusOverdue, loan.Status)

	// Rerunning the sweep assesses nothing new.
	assessed, err = f.svc.AssessOverduePenalties(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, assessed)
	assert.True(t, loan.InstallmentAt(1).PenaltyApplied.Equal(decimal.RequireFromString("5.28")))
}

func TestAssessOverduePenaltiesFailedCommitEmitsNothing(t *testing.T) {
	today := fixtureStart.AddDate(0, 0, 30) // four installments overdue
	f := newServiceFixture(t, today)
	f.seedLoan(t)
	f.svc.tx = failCommitTx{}

	assessed, err := f.svc.AssessOverduePenalties(context.Background())
	require.NoError(t, err)

	// A failed commit must leave no trace outside the database: no events
	// for accounting to book, nothing in the sweep count.
	assert.Equal(t, 0, assessed)
	assert.Empty(t, f.publisher.events)
	assert.False(t, f.locker.held["LOAN-1"])
}

func TestAssessOverduePenaltiesSkipsLockedLoans(t *testing.T) {
	today := fixtureStart.AddDate(0, 0, 10)
	f := newServiceFixture(t, today)
	f.seedLoan(t)
	f.locker.held["LOAN-1"] = true

	assessed, err := f.svc.AssessOverduePenalties(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, assessed)
}

func TestReprocessPaymentIsIdempotent(t *testing.T) {
	today := fixtureStart.AddDate(0, 0, 7)
	f := newServiceFixture(t, today)
	f.seedLoan(t)

	result, err := f.svc.AllocatePayment(context.Background(), AllocatePaymentCommand{
		LoanID:      "LOAN-1",
		Amount:      decimal.RequireFromString("105.58"),
		PaymentDate: today,
	})
	require.NoError(t, err)

	// Already allocated: reprocessing must not double-apply.
	processed, err := f.svc.ReprocessPayment(context.Background(), "LOAN-1", result.Payment.ID)
	require.NoError(t, err)
	assert.False(t, processed)

	loan, err := f.loans.Get(context.Background(), "LOAN-1")
	require.NoError(t, err)
	assert.True(t, loan.InstallmentAt(1).CapitalPaid.Equal(decimal.RequireFromString("95.58")))
}

func TestReprocessPaymentAppliesDanglingPayment(t *testing.T) {
	today := fixtureStart.AddDate(0, 0, 7)
	f := newServiceFixture(t, today)
	f.seedLoan(t)

	// A payment row that crashed before its allocations were written.
	dangling := &domain.Payment{
		ID:          "PAY-DANGLING",
		LoanID:      "LOAN-1",
		Amount:      decimal.RequireFromString("105.58"),
		PaymentDate: today,
	}
	require.NoError(t, f.payments.SavePayment(context.Background(), dangling))

	processed, err := f.svc.ReprocessPayment(context.Background(), "LOAN-1", "PAY-DANGLING")
	require.NoError(t, err)
	assert.True(t, processed)

	rows, err := f.payments.ListAllocations(context.Background(), "PAY-DANGLING")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	loan, err := f.loans.Get(context.Background(), "LOAN-1")
	require.NoError(t, err)
	assert.Equal(t, domain.InstallmentStatusPaid, loan.InstallmentAt(1).Status)
}
