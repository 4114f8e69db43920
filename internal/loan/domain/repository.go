package domain

import (
	"context"
	"time"
)

// LoanRepository persists the loan aggregate including its installments.
type LoanRepository interface {
	Save(ctx context.Context, loan *Loan) error
	Get(ctx context.Context, loanID string) (*Loan, error)
	// ListServiceable returns loans in active or overdue status.
	ListServiceable(ctx context.Context) ([]*Loan, error)
}

// PaymentRepository persists payments, their allocation rows, and audit notes.
type PaymentRepository interface {
	SavePayment(ctx context.Context, payment *Payment) error
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
	SaveAllocations(ctx context.Context, allocations []PaymentAllocation) error
	// ListAllocations returns every allocation row of a payment, active and
	// superseded, oldest first.
	ListAllocations(ctx context.Context, paymentID string) ([]PaymentAllocation, error)
	// SupersedeAllocations marks the currently active rows of a payment as
	// superseded.
	SupersedeAllocations(ctx context.Context, paymentID string) error
	SaveAuditNote(ctx context.Context, note *AuditNote) error
}

// ResolutionRepository persists terminal loan resolutions.
type ResolutionRepository interface {
	Save(ctx context.Context, record *ResolutionRecord) error
}

// CollectionRepository records collection actions taken against overdue
// installments. Opaque side-effect storage; nothing in the engine reads it.
type CollectionRepository interface {
	Record(ctx context.Context, record *CollectionActionRecord) error
}

// LoanLocker serializes mutations of a single loan across processes.
// Acquire returns ErrLoanLocked when the lock cannot be obtained within the
// configured wait window; callers retry with backoff.
type LoanLocker interface {
	Acquire(ctx context.Context, loanID string, ttl time.Duration) (release func(), err error)
}

// EventPublisher pushes domain events to the message bus after commit.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
