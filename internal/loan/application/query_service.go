package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/loanservicing/internal/loan/domain"
	"github.com/wyfcoding/loanservicing/pkg/logger"
	"github.com/wyfcoding/loanservicing/pkg/metrics"
)

// ReportCache is the small read-side cache used for overdue reports. Loan
// aggregates themselves are never cached; they change under the loan lock.
type ReportCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// LoanQueryService is the read side of the loan context.
type LoanQueryService struct {
	loans    domain.LoanRepository
	payments domain.PaymentRepository
	cache    ReportCache
	metrics  *metrics.Metrics

	now func() time.Time
}

// NewLoanQueryService wires the loan read service. cache may be nil.
func NewLoanQueryService(loans domain.LoanRepository, payments domain.PaymentRepository, cache ReportCache, m *metrics.Metrics) *LoanQueryService {
	return &LoanQueryService{loans: loans, payments: payments, cache: cache, metrics: m, now: time.Now}
}

// GetLoan returns the full aggregate with statuses derived as of today.
func (s *LoanQueryService) GetLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	loan, err := s.loans.Get(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status == domain.LoanStatusActive || loan.Status == domain.LoanStatusOverdue {
		loan.RefreshInstallments(s.today())
	}
	return loan, nil
}

// GetPaymentHistory returns a payment with all of its allocation rows,
// superseded history included.
func (s *LoanQueryService) GetPaymentHistory(ctx context.Context, paymentID string) (*domain.Payment, []domain.PaymentAllocation, error) {
	payment, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	allocations, err := s.payments.ListAllocations(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	return payment, allocations, nil
}

// OverdueReport scans every serviceable loan and classifies delinquent
// installments. The report is cached briefly; collections dashboards poll it.
func (s *LoanQueryService) OverdueReport(ctx context.Context) (*domain.OverdueReport, error) {
	asOf := s.today()
	cacheKey := fmt.Sprintf("loan:overdue_report:%s", asOf.Format("2006-01-02"))

	if s.cache != nil {
		var cached domain.OverdueReport
		if err := s.cache.GetJSON(ctx, cacheKey, &cached); err != nil {
			logger.Warn(ctx, "Overdue report cache read failed", "error", err)
		} else if !cached.AsOf.IsZero() {
			return &cached, nil
		}
	}

	loans, err := s.loans.ListServiceable(ctx)
	if err != nil {
		return nil, err
	}
	report := domain.DetectOverdue(loans, asOf)

	if s.metrics != nil {
		s.metrics.OverdueInstallments.Set(float64(report.Summary.Installments))
	}
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey, report, 5*time.Minute); err != nil {
			logger.Warn(ctx, "Overdue report cache write failed", "error", err)
		}
	}
	return report, nil
}

func (s *LoanQueryService) today() time.Time {
	n := s.now().UTC()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}
