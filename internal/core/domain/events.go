package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a loan lifecycle event.
type EventType string

const (
	EventLoanCreated  EventType = "loan.created"
	EventLoanReturned EventType = "loan.returned"
	EventLoanRenewed  EventType = "loan.renewed"
	EventLoanOverdue  EventType = "loan.overdue"
	EventLoanLost     EventType = "loan.lost"
)

// Event is emitted by the loan service for the notification layer.
// LoanOverdue is emitted once per loan, when it first crosses its due
// date, not on every sweep pass.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	LoanID     uint      `json:"loan_id"`
	BookID     uint      `json:"book_id"`
	BorrowerID uint      `json:"borrower_id"`
	DueAt      time.Time `json:"due_at"`
	Fine       *Fine     `json:"fine,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent builds an event for the given loan.
func NewEvent(eventType EventType, loan *Loan, now time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		LoanID:     loan.ID,
		BookID:     loan.BookID,
		BorrowerID: loan.BorrowerID,
		DueAt:      loan.DueAt,
		Fine:       loan.Fine,
		OccurredAt: now,
	}
}

// EventPublisher receives loan lifecycle events. Implementations must
// not block the calling command.
type EventPublisher interface {
	Publish(event Event)
}
