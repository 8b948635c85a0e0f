package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeFine(t *testing.T) {
	dueAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("three days late at 5 per day", func(t *testing.T) {
		returnedAt := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
		fine := ComputeFine(dueAt, returnedAt, 5)
		require.NotNil(t, fine)
		assert.Equal(t, 15.0, fine.Amount)
		assert.Equal(t, "late by 3 day(s)", fine.Reason)
		assert.False(t, fine.Paid)
	})

	t.Run("returned exactly on time yields no fine", func(t *testing.T) {
		assert.Nil(t, ComputeFine(dueAt, dueAt, 5))
	})

	t.Run("returned early yields no fine", func(t *testing.T) {
		returnedAt := dueAt.AddDate(0, 0, -2)
		assert.Nil(t, ComputeFine(dueAt, returnedAt, 5))
	})

	t.Run("partial day rounds up", func(t *testing.T) {
		returnedAt := dueAt.Add(3 * time.Hour)
		fine := ComputeFine(dueAt, returnedAt, 5)
		require.NotNil(t, fine)
		assert.Equal(t, 5.0, fine.Amount)
		assert.Equal(t, "late by 1 day(s)", fine.Reason)
	})
}

func TestLateDaysBetween(t *testing.T) {
	dueAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{"on time", dueAt, 0},
		{"early", dueAt.AddDate(0, 0, -1), 0},
		{"one full day", dueAt.AddDate(0, 0, 1), 1},
		{"one second into a new day", dueAt.AddDate(0, 0, 1).Add(time.Second), 2},
		{"ten days", dueAt.AddDate(0, 0, 10), 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LateDaysBetween(dueAt, tt.at))
		})
	}
}
