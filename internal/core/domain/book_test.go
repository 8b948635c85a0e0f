package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookStatus(t *testing.T) {
	tests := []struct {
		name string
		book Book
		want BookStatus
	}{
		{"copies available", Book{TotalCopies: 3, AvailableCopies: 2}, BookStatusAvailable},
		{"no copies left", Book{TotalCopies: 3, AvailableCopies: 0}, BookStatusFullyLoaned},
		{"withdrawn overrides availability", Book{TotalCopies: 3, AvailableCopies: 3, Withdrawn: true}, BookStatusWithdrawn},
		{"withdrawn and fully loaned", Book{TotalCopies: 1, AvailableCopies: 0, Withdrawn: true}, BookStatusWithdrawn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.book.Status())
		})
	}
}

func TestBookReserveCopy(t *testing.T) {
	t.Run("decrements available copies", func(t *testing.T) {
		book := Book{TotalCopies: 2, AvailableCopies: 2}
		require.NoError(t, book.ReserveCopy())
		assert.Equal(t, 1, book.AvailableCopies)
		assert.Equal(t, BookStatusAvailable, book.Status())
	})

	t.Run("last copy flips status to fully_loaned", func(t *testing.T) {
		book := Book{TotalCopies: 2, AvailableCopies: 1}
		require.NoError(t, book.ReserveCopy())
		assert.Equal(t, 0, book.AvailableCopies)
		assert.Equal(t, BookStatusFullyLoaned, book.Status())
	})

	t.Run("no copies left", func(t *testing.T) {
		book := Book{TotalCopies: 2, AvailableCopies: 0}
		err := book.ReserveCopy()
		assert.ErrorIs(t, err, ErrBookUnavailable)
		assert.Equal(t, 0, book.AvailableCopies)
	})

	t.Run("withdrawn book cannot be reserved", func(t *testing.T) {
		book := Book{TotalCopies: 2, AvailableCopies: 2, Withdrawn: true}
		assert.ErrorIs(t, book.ReserveCopy(), ErrBookUnavailable)
	})
}

func TestBookReleaseCopy(t *testing.T) {
	t.Run("increments available copies", func(t *testing.T) {
		book := Book{TotalCopies: 2, AvailableCopies: 0}
		require.NoError(t, book.ReleaseCopy())
		assert.Equal(t, 1, book.AvailableCopies)
		assert.Equal(t, BookStatusAvailable, book.Status())
	})

	t.Run("over-release is rejected, not clamped", func(t *testing.T) {
		book := Book{TotalCopies: 2, AvailableCopies: 2}
		err := book.ReleaseCopy()
		assert.ErrorIs(t, err, ErrOverRelease)
		assert.Equal(t, 2, book.AvailableCopies)
	})
}

func TestValidISBN(t *testing.T) {
	assert.True(t, ValidISBN("8437604947"))
	assert.True(t, ValidISBN("9788437604947"))
	assert.False(t, ValidISBN("978-8437604947"))
	assert.False(t, ValidISBN("12345"))
	assert.False(t, ValidISBN(""))
}
