package domain

import (
	"fmt"
	"math"
	"time"
)

// Fine is a monetary penalty attached to a loan returned late.
type Fine struct {
	Amount float64    `json:"amount"`
	Reason string     `json:"reason"`
	Paid   bool       `json:"paid"`
	PaidAt *time.Time `json:"paid_at,omitempty"`
}

// LateDaysBetween counts whole days of lateness between the due date
// and the moment of return. Partial days round up.
func LateDaysBetween(dueAt, at time.Time) int {
	diff := at.Sub(dueAt)
	if diff <= 0 {
		return 0
	}
	return int(math.Ceil(diff.Hours() / 24))
}

// ComputeFine maps lateness to a penalty of dailyRate per late day.
// An on-time return yields nil, not a zero-amount fine, so reporting
// can tell "on time" apart from "fined nothing".
func ComputeFine(dueAt, returnedAt time.Time, dailyRate float64) *Fine {
	lateDays := LateDaysBetween(dueAt, returnedAt)
	if lateDays <= 0 {
		return nil
	}
	return &Fine{
		Amount: float64(lateDays) * dailyRate,
		Reason: fmt.Sprintf("late by %d day(s)", lateDays),
	}
}
