package domain

import "errors"

var (
	ErrInvalidScheduleInput    = errors.New("invalid schedule input")
	ErrInvalidPaymentAmount    = errors.New("invalid payment amount")
	ErrLoanNotPayable          = errors.New("loan is not payable")
	ErrAllocationMismatch      = errors.New("allocation set does not match payment amount")
	ErrLoanNotFound            = errors.New("loan not found")
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrInstallmentNotFound     = errors.New("installment not found")
	ErrLoanLocked              = errors.New("loan is locked by another operation")
	ErrInvalidStatusTransition = errors.New("invalid loan status transition")
)
