package services

import (
	"context"
	"errors"
	"log"
	"time"

	"librohub/internal/adapters/persistence/models"
	"librohub/internal/adapters/persistence/repositories"
	"librohub/internal/config"
	"librohub/internal/core/domain"
	"librohub/internal/pkg/clock"

	"gorm.io/gorm"
)

// LoanQueries is the read side of the loans API, separate from the
// compare-and-swap command path.
type LoanQueries interface {
	GetModelByID(ctx context.Context, id uint) (*models.Loan, error)
	List(ctx context.Context, filter repositories.LoanFilter, offset, limit int) ([]*models.Loan, int64, error)
	ListOverdue(ctx context.Context, now time.Time) ([]*models.Loan, error)
}

// LoanService orchestrates the copy counter, the loan record, and the
// fine calculator as one logical transaction per command. The two rows
// cannot be committed atomically, so Borrow reserves the copy first and
// compensates with a release whenever the loan cannot be committed
// afterwards: a failed command never leaves a reserved-but-orphaned
// copy behind.
type LoanService struct {
	books     repositories.BookStore
	loans     repositories.LoanStore
	queries   LoanQueries
	userRepo  repositories.UserRepository
	clock     clock.Clock
	publisher domain.EventPublisher
	policy    config.LoanConfig
}

// NewLoanService creates a new loan service
func NewLoanService(
	books repositories.BookStore,
	loans repositories.LoanStore,
	queries LoanQueries,
	userRepo repositories.UserRepository,
	clk clock.Clock,
	publisher domain.EventPublisher,
	policy config.LoanConfig,
) *LoanService {
	return &LoanService{
		books:     books,
		loans:     loans,
		queries:   queries,
		userRepo:  userRepo,
		clock:     clk,
		publisher: publisher,
		policy:    policy,
	}
}

// retryConflict re-runs op while it fails with a version conflict,
// bounded by the configured retry budget. Any other outcome is final.
func (s *LoanService) retryConflict(op func() error) error {
	var err error
	for attempt := 0; attempt <= s.policy.ConflictRetries; attempt++ {
		err = op()
		if !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
	}
	return err
}

// BorrowInput represents borrow input
type BorrowInput struct {
	BookID     uint      `json:"book_id" validate:"required"`
	BorrowerID uint      `json:"borrower_id" validate:"required"`
	DueAt      time.Time `json:"due_at"`
	Notes      string    `json:"notes,omitempty"`
}

// Borrow lends one copy of a book to a borrower. Preconditions are
// checked in order: book exists, borrower exists and is under the
// active-loan cap, period is within bounds. The copy is reserved
// strictly before the loan record is created.
func (s *LoanService) Borrow(ctx context.Context, input *BorrowInput) (*domain.Loan, error) {
	now := s.clock.Now()

	dueAt := input.DueAt
	if dueAt.IsZero() {
		dueAt = now.AddDate(0, 0, s.policy.DefaultDays)
	}

	borrower, err := s.userRepo.GetByID(ctx, input.BorrowerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBorrowerNotFound
		}
		return nil, err
	}
	if !borrower.IsActive {
		return nil, domain.ErrBorrowerNotFound
	}

	activeCount, err := s.loans.CountActiveByBorrower(ctx, input.BorrowerID)
	if err != nil {
		return nil, err
	}
	if activeCount >= int64(s.policy.MaxActiveLoans) {
		return nil, domain.ErrMaxActiveLoans
	}

	days := domain.PeriodDays(now, dueAt)
	if days < domain.MinLoanDays || days > domain.MaxLoanDays {
		return nil, domain.ErrInvalidPeriod
	}

	// Reserve the copy. The check-and-decrement is made linearizable by
	// the version guard on SaveBook: when two borrowers race for the
	// last copy, one save loses, reloads, and finds no copy left.
	err = s.retryConflict(func() error {
		book, loadErr := s.books.LoadBook(ctx, input.BookID)
		if loadErr != nil {
			return loadErr
		}
		if reserveErr := book.ReserveCopy(); reserveErr != nil {
			return reserveErr
		}
		return s.books.SaveBook(ctx, book, book.Version)
	})
	if err != nil {
		return nil, err
	}

	loan, err := domain.NewLoan(input.BookID, input.BorrowerID, dueAt, now)
	if err != nil {
		s.compensateRelease(ctx, input.BookID)
		return nil, err
	}
	loan.Notes = input.Notes

	if err := s.loans.CreateLoan(ctx, loan); err != nil {
		s.compensateRelease(ctx, input.BookID)
		return nil, err
	}

	s.publish(domain.NewEvent(domain.EventLoanCreated, loan, now))
	return loan, nil
}

// Return closes a loan, computing the fine when it comes back late, and
// releases the copy back into inventory.
func (s *LoanService) Return(ctx context.Context, loanID uint) (*domain.Loan, error) {
	now := s.clock.Now()

	var loan *domain.Loan
	err := s.retryConflict(func() error {
		current, loadErr := s.loans.LoadLoan(ctx, loanID)
		if loadErr != nil {
			return loadErr
		}
		if returnErr := current.Return(now, s.policy.FineDailyRate); returnErr != nil {
			return returnErr
		}
		if saveErr := s.loans.SaveLoan(ctx, current, current.Version); saveErr != nil {
			return saveErr
		}
		loan = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.releaseCopy(ctx, loan.BookID); err != nil {
		// The loan is already closed; an over-release here means the
		// counters were corrupted elsewhere. Surface it, never mask it.
		log.Printf("❌ Defect: releasing copy for loan %d failed: %v", loan.ID, err)
		return nil, err
	}

	s.publish(domain.NewEvent(domain.EventLoanReturned, loan, now))
	return loan, nil
}

// RenewInput represents renew input
type RenewInput struct {
	AdditionalDays int `json:"additional_days"`
}

// Renew extends an active, in-good-standing loan.
func (s *LoanService) Renew(ctx context.Context, loanID uint, input *RenewInput) (*domain.Loan, error) {
	now := s.clock.Now()

	days := input.AdditionalDays
	if days <= 0 {
		days = s.policy.DefaultDays
	}

	var loan *domain.Loan
	err := s.retryConflict(func() error {
		current, loadErr := s.loans.LoadLoan(ctx, loanID)
		if loadErr != nil {
			return loadErr
		}
		if renewErr := current.Renew(days, now); renewErr != nil {
			return renewErr
		}
		if saveErr := s.loans.SaveLoan(ctx, current, current.Version); saveErr != nil {
			return saveErr
		}
		loan = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(domain.NewEvent(domain.EventLoanRenewed, loan, now))
	return loan, nil
}

// MarkLost terminates a loan whose copy will not come back. The copy is
// not released: it is gone from inventory, and catalog management gets
// an adjustment notice through the lost event.
func (s *LoanService) MarkLost(ctx context.Context, loanID uint) (*domain.Loan, error) {
	now := s.clock.Now()

	var loan *domain.Loan
	err := s.retryConflict(func() error {
		current, loadErr := s.loans.LoadLoan(ctx, loanID)
		if loadErr != nil {
			return loadErr
		}
		if lostErr := current.MarkLost(now); lostErr != nil {
			return lostErr
		}
		if saveErr := s.loans.SaveLoan(ctx, current, current.Version); saveErr != nil {
			return saveErr
		}
		loan = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(domain.NewEvent(domain.EventLoanLost, loan, now))
	return loan, nil
}

// PayFine settles the fine on a returned loan.
func (s *LoanService) PayFine(ctx context.Context, loanID uint) (*domain.Loan, error) {
	now := s.clock.Now()

	var loan *domain.Loan
	err := s.retryConflict(func() error {
		current, loadErr := s.loans.LoadLoan(ctx, loanID)
		if loadErr != nil {
			return loadErr
		}
		if payErr := current.PayFine(now); payErr != nil {
			return payErr
		}
		if saveErr := s.loans.SaveLoan(ctx, current, current.Version); saveErr != nil {
			return saveErr
		}
		loan = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// GetAvailability serves the read-only availability view. The value may
// be slightly stale under concurrent traffic but is always a state the
// counters actually held.
func (s *LoanService) GetAvailability(ctx context.Context, bookID uint) (*domain.Availability, error) {
	book, err := s.books.LoadBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	return &domain.Availability{
		BookID:    book.ID,
		Available: book.AvailableCopies,
		Total:     book.TotalCopies,
		Status:    book.Status(),
	}, nil
}

// releaseCopy puts one copy back under the version guard.
func (s *LoanService) releaseCopy(ctx context.Context, bookID uint) error {
	return s.retryConflict(func() error {
		book, err := s.books.LoadBook(ctx, bookID)
		if err != nil {
			return err
		}
		if err := book.ReleaseCopy(); err != nil {
			return err
		}
		return s.books.SaveBook(ctx, book, book.Version)
	})
}

// compensateRelease undoes a committed reservation after a later step
// failed. It runs detached from the caller's context so a request
// timeout cannot leave the copy under-counted.
func (s *LoanService) compensateRelease(ctx context.Context, bookID uint) {
	if err := s.releaseCopy(context.WithoutCancel(ctx), bookID); err != nil {
		log.Printf("❌ Defect: compensating release for book %d failed: %v", bookID, err)
	}
}

func (s *LoanService) publish(event domain.Event) {
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}

// ============================================================
// Read side
// ============================================================

// ListLoansInput represents list loans input
type ListLoansInput struct {
	Page       int
	Limit      int
	Status     string
	BorrowerID uint
}

// ListLoansOutput represents list loans output
type ListLoansOutput struct {
	Loans      []*models.LoanResponse `json:"loans"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	TotalPages int                    `json:"total_pages"`
}

// List lists loans with pagination and optional filters
func (s *LoanService) List(ctx context.Context, input *ListLoansInput) (*ListLoansOutput, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.Limit < 1 {
		input.Limit = 10
	}
	if input.Limit > 100 {
		input.Limit = 100
	}

	offset := (input.Page - 1) * input.Limit
	filter := repositories.LoanFilter{Status: input.Status, BorrowerID: input.BorrowerID}

	rows, total, err := s.queries.List(ctx, filter, offset, input.Limit)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	loans := make([]*models.LoanResponse, len(rows))
	for i, row := range rows {
		loans[i] = row.ToResponse(now)
	}

	totalPages := int(total) / input.Limit
	if int(total)%input.Limit > 0 {
		totalPages++
	}

	return &ListLoansOutput{
		Loans:      loans,
		Total:      total,
		Page:       input.Page,
		Limit:      input.Limit,
		TotalPages: totalPages,
	}, nil
}

// GetByID gets a loan with book and borrower details.
func (s *LoanService) GetByID(ctx context.Context, id uint) (*models.LoanResponse, error) {
	row, err := s.queries.GetModelByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}
	return row.ToResponse(s.clock.Now()), nil
}

// ListOverdue lists all currently overdue loans.
func (s *LoanService) ListOverdue(ctx context.Context) ([]*models.LoanResponse, error) {
	now := s.clock.Now()
	rows, err := s.queries.ListOverdue(ctx, now)
	if err != nil {
		return nil, err
	}
	loans := make([]*models.LoanResponse, len(rows))
	for i, row := range rows {
		loans[i] = row.ToResponse(now)
	}
	return loans, nil
}
