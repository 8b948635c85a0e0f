package domain

import (
	"regexp"
	"time"
)

// BookStatus is derived from the copy counters and the withdrawn flag.
// It is never stored, so it can never drift from the counters.
type BookStatus string

const (
	BookStatusAvailable   BookStatus = "available"
	BookStatusFullyLoaned BookStatus = "fully_loaned"
	BookStatusWithdrawn   BookStatus = "withdrawn"
)

var isbnPattern = regexp.MustCompile(`^(?:\d{10}|\d{13})$`)

// ValidISBN reports whether s is a 10 or 13 digit ISBN.
func ValidISBN(s string) bool {
	return isbnPattern.MatchString(s)
}

// Book owns the copy counters for one catalog title. AvailableCopies is
// mutated only through ReserveCopy/ReleaseCopy so the invariant
// 0 <= AvailableCopies <= TotalCopies holds in every reachable state.
type Book struct {
	ID              uint
	ISBN            string
	Title           string
	Author          string
	Publisher       string
	Genre           string
	Year            int
	Description     string
	Location        string
	TotalCopies     int
	AvailableCopies int
	Withdrawn       bool
	AcquiredAt      time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
}

// Status derives the availability status. Withdrawn overrides the counters.
func (b *Book) Status() BookStatus {
	switch {
	case b.Withdrawn:
		return BookStatusWithdrawn
	case b.AvailableCopies == 0:
		return BookStatusFullyLoaned
	default:
		return BookStatusAvailable
	}
}

// Available reports whether at least one copy can be lent out.
func (b *Book) Available() bool {
	return b.Status() == BookStatusAvailable
}

// ReserveCopy takes one copy for a new loan. The caller persists the
// book with its expected version in the same step, which makes the
// check-and-decrement linearizable across concurrent borrowers.
func (b *Book) ReserveCopy() error {
	if b.Withdrawn || b.AvailableCopies <= 0 {
		return ErrBookUnavailable
	}
	b.AvailableCopies--
	return nil
}

// AdjustCopies changes TotalCopies by delta, moving AvailableCopies in
// step. The count can never shrink below the copies currently out on
// loan, and a title always keeps at least one copy.
func (b *Book) AdjustCopies(delta int) error {
	onLoan := b.TotalCopies - b.AvailableCopies
	newTotal := b.TotalCopies + delta
	if newTotal < 1 || newTotal < onLoan {
		return ErrInvalidCopyCount
	}
	b.TotalCopies = newTotal
	b.AvailableCopies = newTotal - onLoan
	return nil
}

// ReleaseCopy puts a copy back after a return or a compensating rollback.
// Releasing beyond TotalCopies is a bug upstream and is rejected, never
// clamped.
func (b *Book) ReleaseCopy() error {
	if b.AvailableCopies >= b.TotalCopies {
		return ErrOverRelease
	}
	b.AvailableCopies++
	return nil
}

// Availability is the read-only view served to availability queries.
type Availability struct {
	BookID    uint       `json:"book_id"`
	Available int        `json:"available"`
	Total     int        `json:"total"`
	Status    BookStatus `json:"status"`
}
