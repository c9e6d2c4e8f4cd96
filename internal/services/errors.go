package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidState         = errors.New("invalid state")
	ErrForbidden            = errors.New("forbidden")
	ErrNotFound             = errors.New("not found")
	ErrSlotUnavailable      = errors.New("slot unavailable")
	ErrNoPlan               = errors.New("no active plan")
	ErrQuotaExceeded        = errors.New("quota exceeded")
	ErrProfessionalNotFound = errors.New("professional not found")
)

type QuotaReason string

const (
	QuotaReasonWeeklyCap      QuotaReason = "weekly-cap"
	QuotaReasonTotalExhausted QuotaReason = "total-exhausted"
	QuotaReasonPlanExpired    QuotaReason = "plan-expired"
)

// QuotaExceededError carries the sub-reason so callers can tell a reached
// weekly cap from an exhausted allowance or an expired plan. It unwraps to
// ErrQuotaExceeded for errors.Is checks.
type QuotaExceededError struct {
	Reason QuotaReason
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %s", e.Reason)
}

func (e *QuotaExceededError) Unwrap() error {
	return ErrQuotaExceeded
}
