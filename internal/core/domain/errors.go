package domain

import "errors"

// Lookup errors
var (
	ErrBookNotFound     = errors.New("book not found")
	ErrLoanNotFound     = errors.New("loan not found")
	ErrBorrowerNotFound = errors.New("borrower not found")
)

// Policy violations: the request was understood but the loan policy
// forbids it. Always safe to return to the caller unchanged.
var (
	ErrBookUnavailable      = errors.New("book is not available for loan")
	ErrMaxActiveLoans       = errors.New("borrower already has the maximum number of active loans")
	ErrInvalidPeriod        = errors.New("loan period must be between 1 and 90 days")
	ErrRenewalLimitExceeded = errors.New("renewal limit reached")
	ErrAlreadyOverdue       = errors.New("overdue loans cannot be renewed")
	ErrAlreadyReturned      = errors.New("loan is not active")
	ErrFineAlreadyPaid      = errors.New("fine already paid")
	ErrNoFine               = errors.New("loan has no fine")
)

// Catalog errors
var (
	ErrISBNAlreadyExists  = errors.New("a book with this ISBN already exists")
	ErrInvalidISBN        = errors.New("ISBN must be 10 or 13 digits")
	ErrBookHasActiveLoans = errors.New("book still has active loans")
	ErrInvalidCopyCount   = errors.New("copy count would drop below copies on loan")
)

// ErrVersionConflict signals a stale optimistic-version write. Callers
// retry the whole command a bounded number of times before surfacing it.
var ErrVersionConflict = errors.New("version conflict, concurrent update detected")

// ErrOverRelease signals a bookkeeping bug: a release would push the
// available count above the total. Never corrected silently.
var ErrOverRelease = errors.New("release would exceed total copies")

// ErrorKind classifies domain errors for transport-layer translation.
type ErrorKind string

const (
	KindNotFound        ErrorKind = "not_found"
	KindConflict        ErrorKind = "conflict"
	KindPolicyViolation ErrorKind = "policy_violation"
	KindInternal        ErrorKind = "internal"
)

// Kind maps a domain error to its taxonomy bucket.
func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrBookNotFound),
		errors.Is(err, ErrLoanNotFound),
		errors.Is(err, ErrBorrowerNotFound):
		return KindNotFound
	case errors.Is(err, ErrVersionConflict):
		return KindConflict
	case errors.Is(err, ErrBookUnavailable),
		errors.Is(err, ErrMaxActiveLoans),
		errors.Is(err, ErrInvalidPeriod),
		errors.Is(err, ErrRenewalLimitExceeded),
		errors.Is(err, ErrAlreadyOverdue),
		errors.Is(err, ErrAlreadyReturned),
		errors.Is(err, ErrFineAlreadyPaid),
		errors.Is(err, ErrNoFine),
		errors.Is(err, ErrISBNAlreadyExists),
		errors.Is(err, ErrInvalidISBN),
		errors.Is(err, ErrBookHasActiveLoans),
		errors.Is(err, ErrInvalidCopyCount):
		return KindPolicyViolation
	default:
		return KindInternal
	}
}
