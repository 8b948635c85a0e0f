package services

import (
	"context"
	"testing"

	"librohub/internal/core/domain"
	"librohub/internal/pkg/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepRun(t *testing.T) {
	loans := newMemLoanStore()
	loans.put(&domain.Loan{
		BookID: 1, BorrowerID: 7, DueAt: testNow.AddDate(0, 0, -2),
		Status: domain.LoanStatusActive,
	})
	loans.put(&domain.Loan{
		BookID: 2, BorrowerID: 8, DueAt: testNow.AddDate(0, 0, -1),
		Status: domain.LoanStatusActive,
	})
	loans.put(&domain.Loan{
		BookID: 3, BorrowerID: 9, DueAt: testNow.AddDate(0, 0, 5),
		Status: domain.LoanStatusActive,
	})

	pub := &recordPublisher{}
	sweep := NewSweepService(loans, clock.NewFixed(testNow), pub, "30 8 * * *")

	reported, err := sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, reported)
	assert.Len(t, pub.byType(domain.EventLoanOverdue), 2)

	// A second pass stamps nothing and stays silent
	reported, err = sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, reported)
	assert.Len(t, pub.byType(domain.EventLoanOverdue), 2)
}

func TestSweepSkipsSettledLoans(t *testing.T) {
	returnedAt := testNow.AddDate(0, 0, -1)
	loans := newMemLoanStore()
	loans.put(&domain.Loan{
		BookID: 1, BorrowerID: 7, DueAt: testNow.AddDate(0, 0, -3),
		Status: domain.LoanStatusReturned, ReturnedAt: &returnedAt,
	})
	loans.put(&domain.Loan{
		BookID: 2, BorrowerID: 8, DueAt: testNow.AddDate(0, 0, -3),
		Status: domain.LoanStatusLost,
	})

	pub := &recordPublisher{}
	sweep := NewSweepService(loans, clock.NewFixed(testNow), pub, "30 8 * * *")

	reported, err := sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, reported)
	assert.Empty(t, pub.events)
}

func TestSweepStampedLoanNotReportedAgain(t *testing.T) {
	stamped := testNow.AddDate(0, 0, -1)
	loans := newMemLoanStore()
	loans.put(&domain.Loan{
		BookID: 1, BorrowerID: 7, DueAt: testNow.AddDate(0, 0, -3),
		Status: domain.LoanStatusActive, OverdueNotifiedAt: &stamped,
	})

	pub := &recordPublisher{}
	sweep := NewSweepService(loans, clock.NewFixed(testNow), pub, "30 8 * * *")

	reported, err := sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, reported)
	assert.Empty(t, pub.events)
}

func TestSweepStampsExactTimestamp(t *testing.T) {
	loans := newMemLoanStore()
	loans.put(&domain.Loan{
		BookID: 1, BorrowerID: 7, DueAt: testNow.AddDate(0, 0, -2),
		Status: domain.LoanStatusActive,
	})

	sweep := NewSweepService(loans, clock.NewFixed(testNow), &recordPublisher{}, "30 8 * * *")

	_, err := sweep.Run(context.Background())
	require.NoError(t, err)

	loan, err := loans.LoadLoan(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, loan.OverdueNotifiedAt)
	assert.Equal(t, testNow, *loan.OverdueNotifiedAt)
}
