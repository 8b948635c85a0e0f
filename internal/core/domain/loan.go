package domain

import (
	"math"
	"time"
)

// LoanStatus is the stored lifecycle state of a loan. Overdue is not a
// state: it is derived from DueAt on demand (see Overdue).
type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "active"
	LoanStatusReturned LoanStatus = "returned"
	LoanStatusLost     LoanStatus = "lost"
)

// Loan policy limits
const (
	MinLoanDays    = 1
	MaxLoanDays    = 90
	MaxRenewals    = 2
	MaxActiveLoans = 3
)

// Loan records one borrow event. Book and borrower references are
// immutable after creation; all state changes go through the transition
// methods below.
type Loan struct {
	ID           uint
	BookID       uint
	BorrowerID   uint
	BorrowedAt   time.Time
	DueAt        time.Time
	ReturnedAt   *time.Time
	Status       LoanStatus
	RenewalCount int
	Fine         *Fine
	Notes        string

	// OverdueNotifiedAt records when the overdue event was emitted for
	// this loan, so the sweep emits it once. Not lifecycle state.
	OverdueNotifiedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

// PeriodDays counts the whole days between from and until, rounding up.
func PeriodDays(from, until time.Time) int {
	return int(math.Ceil(until.Sub(from).Hours() / 24))
}

// NewLoan creates an active loan due at dueAt. The period must span
// between 1 and 90 days from now.
func NewLoan(bookID, borrowerID uint, dueAt, now time.Time) (*Loan, error) {
	days := PeriodDays(now, dueAt)
	if days < MinLoanDays || days > MaxLoanDays {
		return nil, ErrInvalidPeriod
	}
	return &Loan{
		BookID:       bookID,
		BorrowerID:   borrowerID,
		BorrowedAt:   now,
		DueAt:        dueAt,
		Status:       LoanStatusActive,
		RenewalCount: 0,
	}, nil
}

// Overdue reports whether an active loan has passed its due date.
func (l *Loan) Overdue(now time.Time) bool {
	return l.Status == LoanStatusActive && now.After(l.DueAt)
}

// LateDays counts days past due: against the real return date for
// returned loans, against now for active ones. Zero when in good standing.
func (l *Loan) LateDays(now time.Time) int {
	switch l.Status {
	case LoanStatusReturned:
		if l.ReturnedAt == nil {
			return 0
		}
		return LateDaysBetween(l.DueAt, *l.ReturnedAt)
	case LoanStatusActive:
		return LateDaysBetween(l.DueAt, now)
	default:
		return 0
	}
}

// Renew extends the due date by additionalDays. Renewals exist to
// extend good-standing loans: the renewal cap is checked before the
// overdue check, and a loan already past due cannot be renewed.
func (l *Loan) Renew(additionalDays int, now time.Time) error {
	if l.Status != LoanStatusActive {
		return ErrAlreadyReturned
	}
	if additionalDays < MinLoanDays || additionalDays > MaxLoanDays {
		return ErrInvalidPeriod
	}
	if l.RenewalCount >= MaxRenewals {
		return ErrRenewalLimitExceeded
	}
	if l.Overdue(now) {
		return ErrAlreadyOverdue
	}
	l.DueAt = l.DueAt.AddDate(0, 0, additionalDays)
	l.RenewalCount++
	return nil
}

// Return closes the loan, attaching a fine when it comes back late.
// Legal from active only, including its overdue view.
func (l *Loan) Return(now time.Time, dailyRate float64) error {
	if l.Status != LoanStatusActive {
		return ErrAlreadyReturned
	}
	returnedAt := now
	l.Status = LoanStatusReturned
	l.ReturnedAt = &returnedAt
	l.Fine = ComputeFine(l.DueAt, returnedAt, dailyRate)
	return nil
}

// MarkLost is terminal. No time-based fine is computed; replacement
// cost is a separate policy handled by catalog management.
func (l *Loan) MarkLost(now time.Time) error {
	if l.Status != LoanStatusActive {
		return ErrAlreadyReturned
	}
	l.Status = LoanStatusLost
	l.UpdatedAt = now
	return nil
}

// PayFine settles an attached fine.
func (l *Loan) PayFine(now time.Time) error {
	if l.Fine == nil {
		return ErrNoFine
	}
	if l.Fine.Paid {
		return ErrFineAlreadyPaid
	}
	paidAt := now
	l.Fine.Paid = true
	l.Fine.PaidAt = &paidAt
	return nil
}
