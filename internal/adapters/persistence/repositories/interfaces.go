package repositories

import (
	"context"
	"time"

	"librohub/internal/adapters/persistence/models"
	"librohub/internal/core/domain"
)

// BookStore is the optimistic-concurrency gateway over book rows used
// by the loan service. SaveBook is a compare-and-swap on the version
// column and fails with domain.ErrVersionConflict on a stale write.
type BookStore interface {
	LoadBook(ctx context.Context, id uint) (*domain.Book, error)
	SaveBook(ctx context.Context, book *domain.Book, expectedVersion int64) error
}

// LoanStore is the optimistic-concurrency gateway over loan rows.
type LoanStore interface {
	LoadLoan(ctx context.Context, id uint) (*domain.Loan, error)
	CreateLoan(ctx context.Context, loan *domain.Loan) error
	SaveLoan(ctx context.Context, loan *domain.Loan, expectedVersion int64) error
	CountActiveByBorrower(ctx context.Context, borrowerID uint) (int64, error)
	CountActiveByBook(ctx context.Context, bookID uint) (int64, error)
	ListOverdueUnnotified(ctx context.Context, now time.Time) ([]*domain.Loan, error)
	MarkOverdueNotified(ctx context.Context, loanID uint, at time.Time) (bool, error)
}

// UserRepository defines user data access
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, offset, limit int) ([]*models.User, int64, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// RefreshTokenRepository defines refresh token data access
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id uint) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context) error
}
