package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loanNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newActiveLoan(t *testing.T, days int) *Loan {
	t.Helper()
	loan, err := NewLoan(1, 1, loanNow.AddDate(0, 0, days), loanNow)
	require.NoError(t, err)
	loan.ID = 1
	return loan
}

func TestNewLoanPeriodBounds(t *testing.T) {
	tests := []struct {
		name    string
		dueAt   time.Time
		wantErr error
	}{
		{"one day is the minimum", loanNow.AddDate(0, 0, 1), nil},
		{"fifteen days is typical", loanNow.AddDate(0, 0, 15), nil},
		{"ninety days is the maximum", loanNow.AddDate(0, 0, 90), nil},
		{"ninety-one days is too long", loanNow.AddDate(0, 0, 91), ErrInvalidPeriod},
		{"due in the past", loanNow.AddDate(0, 0, -1), ErrInvalidPeriod},
		{"due right now", loanNow, ErrInvalidPeriod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan, err := NewLoan(1, 2, tt.dueAt, loanNow)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, loan)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, LoanStatusActive, loan.Status)
			assert.Equal(t, 0, loan.RenewalCount)
			assert.Equal(t, tt.dueAt, loan.DueAt)
		})
	}
}

func TestLoanOverdueIsDerived(t *testing.T) {
	loan := newActiveLoan(t, 5)

	assert.False(t, loan.Overdue(loanNow))
	assert.False(t, loan.Overdue(loan.DueAt))
	assert.True(t, loan.Overdue(loan.DueAt.Add(time.Minute)))

	// Terminal states are never overdue.
	require.NoError(t, loan.Return(loan.DueAt.AddDate(0, 0, 3), 5))
	assert.False(t, loan.Overdue(loan.DueAt.AddDate(0, 0, 10)))
}

func TestLoanRenew(t *testing.T) {
	t.Run("extends due date and counts the renewal", func(t *testing.T) {
		loan := newActiveLoan(t, 5)
		originalDue := loan.DueAt

		require.NoError(t, loan.Renew(15, loanNow))
		assert.Equal(t, originalDue.AddDate(0, 0, 15), loan.DueAt)
		assert.Equal(t, 1, loan.RenewalCount)
	})

	t.Run("third renewal hits the limit", func(t *testing.T) {
		loan := newActiveLoan(t, 5)
		require.NoError(t, loan.Renew(15, loanNow))
		require.NoError(t, loan.Renew(15, loanNow))
		assert.ErrorIs(t, loan.Renew(15, loanNow), ErrRenewalLimitExceeded)
		assert.Equal(t, 2, loan.RenewalCount)
	})

	t.Run("overdue loan cannot be renewed", func(t *testing.T) {
		loan := newActiveLoan(t, 5)
		lateNow := loan.DueAt.AddDate(0, 0, 1)
		assert.ErrorIs(t, loan.Renew(15, lateNow), ErrAlreadyOverdue)
	})

	t.Run("limit check comes before overdue check", func(t *testing.T) {
		loan := newActiveLoan(t, 5)
		loan.RenewalCount = MaxRenewals
		lateNow := loan.DueAt.AddDate(0, 0, 1)
		assert.ErrorIs(t, loan.Renew(15, lateNow), ErrRenewalLimitExceeded)
	})

	t.Run("returned loan cannot be renewed", func(t *testing.T) {
		loan := newActiveLoan(t, 5)
		require.NoError(t, loan.Return(loanNow.AddDate(0, 0, 1), 5))
		assert.ErrorIs(t, loan.Renew(15, loanNow), ErrAlreadyReturned)
	})

	t.Run("invalid extension", func(t *testing.T) {
		loan := newActiveLoan(t, 5)
		assert.ErrorIs(t, loan.Renew(0, loanNow), ErrInvalidPeriod)
		assert.ErrorIs(t, loan.Renew(91, loanNow), ErrInvalidPeriod)
	})
}

func TestLoanReturn(t *testing.T) {
	t.Run("on-time return carries no fine", func(t *testing.T) {
		loan := newActiveLoan(t, 5)
		returnedAt := loan.DueAt.AddDate(0, 0, -1)

		require.NoError(t, loan.Return(returnedAt, 5))
		assert.Equal(t, LoanStatusReturned, loan.Status)
		require.NotNil(t, loan.ReturnedAt)
		assert.Equal(t, returnedAt, *loan.ReturnedAt)
		assert.Nil(t, loan.Fine)
	})

	t.Run("late return attaches a fine", func(t *testing.T) {
		loan := newActiveLoan(t, 5)
		returnedAt := loan.DueAt.AddDate(0, 0, 3)

		require.NoError(t, loan.Return(returnedAt, 5))
		require.NotNil(t, loan.Fine)
		assert.Equal(t, 15.0, loan.Fine.Amount)
		assert.Equal(t, "late by 3 day(s)", loan.Fine.Reason)
		assert.False(t, loan.Fine.Paid)
	})

	t.Run("overdue loan can still be returned", func(t *testing.T) {
		loan := newActiveLoan(t, 5)
		lateNow := loan.DueAt.AddDate(0, 0, 2)
		require.True(t, loan.Overdue(lateNow))
		require.NoError(t, loan.Return(lateNow, 5))
		assert.NotNil(t, loan.Fine)
	})

	t.Run("second return fails", func(t *testing.T) {
		loan := newActiveLoan(t, 5)
		require.NoError(t, loan.Return(loanNow.AddDate(0, 0, 1), 5))
		assert.ErrorIs(t, loan.Return(loanNow.AddDate(0, 0, 2), 5), ErrAlreadyReturned)
	})
}

func TestLoanMarkLost(t *testing.T) {
	t.Run("active loan becomes lost without a fine", func(t *testing.T) {
		loan := newActiveLoan(t, 5)
		require.NoError(t, loan.MarkLost(loanNow.AddDate(0, 0, 20)))
		assert.Equal(t, LoanStatusLost, loan.Status)
		assert.Nil(t, loan.Fine)
	})

	t.Run("terminal states reject mark lost", func(t *testing.T) {
		loan := newActiveLoan(t, 5)
		require.NoError(t, loan.MarkLost(loanNow))
		assert.ErrorIs(t, loan.MarkLost(loanNow), ErrAlreadyReturned)

		returned := newActiveLoan(t, 5)
		require.NoError(t, returned.Return(loanNow.AddDate(0, 0, 1), 5))
		assert.ErrorIs(t, returned.MarkLost(loanNow), ErrAlreadyReturned)
	})
}

func TestLoanPayFine(t *testing.T) {
	loan := newActiveLoan(t, 5)
	require.NoError(t, loan.Return(loan.DueAt.AddDate(0, 0, 2), 5))
	require.NotNil(t, loan.Fine)

	paidAt := loan.DueAt.AddDate(0, 0, 4)
	require.NoError(t, loan.PayFine(paidAt))
	assert.True(t, loan.Fine.Paid)
	require.NotNil(t, loan.Fine.PaidAt)
	assert.Equal(t, paidAt, *loan.Fine.PaidAt)

	assert.ErrorIs(t, loan.PayFine(paidAt), ErrFineAlreadyPaid)

	onTime := newActiveLoan(t, 5)
	require.NoError(t, onTime.Return(loanNow.AddDate(0, 0, 1), 5))
	assert.ErrorIs(t, onTime.PayFine(paidAt), ErrNoFine)
}
