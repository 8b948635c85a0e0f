package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"librohub/internal/adapters/persistence/models"
	"librohub/internal/adapters/persistence/repositories"
	"librohub/internal/config"
	"librohub/internal/core/domain"
	"librohub/internal/pkg/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memBookStore is an in-memory BookStore with the same version-guard
// semantics as the gorm repository.
type memBookStore struct {
	mu    sync.Mutex
	books map[uint]*domain.Book
}

func newMemBookStore(books ...*domain.Book) *memBookStore {
	s := &memBookStore{books: map[uint]*domain.Book{}}
	for _, b := range books {
		cp := *b
		s.books[b.ID] = &cp
	}
	return s
}

func (s *memBookStore) LoadBook(ctx context.Context, id uint) (*domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return nil, domain.ErrBookNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *memBookStore) SaveBook(ctx context.Context, book *domain.Book, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.books[book.ID]
	if !ok {
		return domain.ErrBookNotFound
	}
	if cur.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	cp := *book
	cp.Version = expectedVersion + 1
	s.books[book.ID] = &cp
	book.Version = cp.Version
	return nil
}

func (s *memBookStore) available(id uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.books[id].AvailableCopies
}

// memLoanStore is an in-memory LoanStore. createErr lets a test inject
// a failure between copy reservation and loan creation.
type memLoanStore struct {
	mu        sync.Mutex
	loans     map[uint]*domain.Loan
	nextID    uint
	createErr error
}

func newMemLoanStore() *memLoanStore {
	return &memLoanStore{loans: map[uint]*domain.Loan{}, nextID: 1}
}

func (s *memLoanStore) put(loan *domain.Loan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if loan.ID == 0 {
		loan.ID = s.nextID
		s.nextID++
	}
	if loan.Version == 0 {
		loan.Version = 1
	}
	cp := *loan
	s.loans[loan.ID] = &cp
}

func (s *memLoanStore) LoadLoan(ctx context.Context, id uint) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *memLoanStore) CreateLoan(ctx context.Context, loan *domain.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	loan.ID = s.nextID
	s.nextID++
	loan.Version = 1
	cp := *loan
	s.loans[loan.ID] = &cp
	return nil
}

func (s *memLoanStore) SaveLoan(ctx context.Context, loan *domain.Loan, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.loans[loan.ID]
	if !ok {
		return domain.ErrLoanNotFound
	}
	if cur.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	cp := *loan
	cp.Version = expectedVersion + 1
	s.loans[loan.ID] = &cp
	loan.Version = cp.Version
	return nil
}

func (s *memLoanStore) CountActiveByBorrower(ctx context.Context, borrowerID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, l := range s.loans {
		if l.BorrowerID == borrowerID && l.Status == domain.LoanStatusActive {
			count++
		}
	}
	return count, nil
}

func (s *memLoanStore) CountActiveByBook(ctx context.Context, bookID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, l := range s.loans {
		if l.BookID == bookID && l.Status == domain.LoanStatusActive {
			count++
		}
	}
	return count, nil
}

func (s *memLoanStore) ListOverdueUnnotified(ctx context.Context, now time.Time) ([]*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Loan
	for _, l := range s.loans {
		if l.Status == domain.LoanStatusActive && now.After(l.DueAt) && l.OverdueNotifiedAt == nil {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memLoanStore) MarkOverdueNotified(ctx context.Context, loanID uint, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[loanID]
	if !ok || l.OverdueNotifiedAt != nil {
		return false, nil
	}
	stamped := at
	l.OverdueNotifiedAt = &stamped
	return true, nil
}

// memUserRepo serves the borrower lookup on the borrow path.
type memUserRepo struct {
	users map[uint]*models.User
}

func newMemUserRepo(users ...*models.User) *memUserRepo {
	r := &memUserRepo{users: map[uint]*models.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) Create(ctx context.Context, user *models.User) error { return nil }

func (r *memUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) Update(ctx context.Context, user *models.User) error { return nil }
func (r *memUserRepo) Delete(ctx context.Context, id uint) error           { return nil }

func (r *memUserRepo) List(ctx context.Context, offset, limit int) ([]*models.User, int64, error) {
	return nil, 0, nil
}

func (r *memUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return false, nil
}

// stubQueries is the read side, unused on the command path.
type stubQueries struct{}

func (stubQueries) GetModelByID(ctx context.Context, id uint) (*models.Loan, error) {
	return nil, gorm.ErrRecordNotFound
}

func (stubQueries) List(ctx context.Context, filter repositories.LoanFilter, offset, limit int) ([]*models.Loan, int64, error) {
	return nil, 0, nil
}

func (stubQueries) ListOverdue(ctx context.Context, now time.Time) ([]*models.Loan, error) {
	return nil, nil
}

// recordPublisher captures published events.
type recordPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordPublisher) Publish(event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordPublisher) byType(t domain.EventType) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func testPolicy() config.LoanConfig {
	return config.LoanConfig{
		MaxActiveLoans:  3,
		DefaultDays:     15,
		FineDailyRate:   5,
		ConflictRetries: 3,
	}
}

func testBook(id uint, copies int) *domain.Book {
	return &domain.Book{
		ID:              id,
		ISBN:            "9780307474728",
		Title:           "Cien años de soledad",
		Author:          "Gabriel García Márquez",
		TotalCopies:     copies,
		AvailableCopies: copies,
		Version:         1,
	}
}

func testUser(id uint) *models.User {
	return &models.User{ID: id, Name: "Reader", Email: "reader@example.org", Role: "USER", IsActive: true}
}

func newTestLoanService(books *memBookStore, loans *memLoanStore, users *memUserRepo, pub *recordPublisher) *LoanService {
	return NewLoanService(books, loans, stubQueries{}, users, clock.NewFixed(testNow), pub, testPolicy())
}

func TestBorrow(t *testing.T) {
	t.Run("creates an active loan and reserves the copy", func(t *testing.T) {
		books := newMemBookStore(testBook(1, 2))
		loans := newMemLoanStore()
		pub := &recordPublisher{}
		svc := newTestLoanService(books, loans, newMemUserRepo(testUser(7)), pub)

		loan, err := svc.Borrow(context.Background(), &BorrowInput{BookID: 1, BorrowerID: 7})
		require.NoError(t, err)

		assert.Equal(t, domain.LoanStatusActive, loan.Status)
		assert.Equal(t, testNow.AddDate(0, 0, 15), loan.DueAt)
		assert.Equal(t, 1, books.available(1))
		assert.Len(t, pub.byType(domain.EventLoanCreated), 1)
	})

	t.Run("runs out of copies", func(t *testing.T) {
		books := newMemBookStore(testBook(1, 2))
		loans := newMemLoanStore()
		users := newMemUserRepo(testUser(1), testUser(2), testUser(3))
		svc := newTestLoanService(books, loans, users, &recordPublisher{})

		_, err := svc.Borrow(context.Background(), &BorrowInput{BookID: 1, BorrowerID: 1})
		require.NoError(t, err)
		_, err = svc.Borrow(context.Background(), &BorrowInput{BookID: 1, BorrowerID: 2})
		require.NoError(t, err)

		_, err = svc.Borrow(context.Background(), &BorrowInput{BookID: 1, BorrowerID: 3})
		assert.ErrorIs(t, err, domain.ErrBookUnavailable)
		assert.Equal(t, 0, books.available(1))
	})

	t.Run("enforces the active loan cap", func(t *testing.T) {
		books := newMemBookStore(testBook(1, 10))
		loans := newMemLoanStore()
		svc := newTestLoanService(books, loans, newMemUserRepo(testUser(7)), &recordPublisher{})

		for i := 0; i < 3; i++ {
			_, err := svc.Borrow(context.Background(), &BorrowInput{BookID: 1, BorrowerID: 7})
			require.NoError(t, err)
		}

		_, err := svc.Borrow(context.Background(), &BorrowInput{BookID: 1, BorrowerID: 7})
		assert.ErrorIs(t, err, domain.ErrMaxActiveLoans)
		assert.Equal(t, 7, books.available(1))
	})

	t.Run("period bounds", func(t *testing.T) {
		books := newMemBookStore(testBook(1, 5))
		loans := newMemLoanStore()
		svc := newTestLoanService(books, loans, newMemUserRepo(testUser(7), testUser(8)), &recordPublisher{})

		_, err := svc.Borrow(context.Background(), &BorrowInput{
			BookID: 1, BorrowerID: 7, DueAt: testNow.AddDate(0, 0, 90),
		})
		assert.NoError(t, err)

		_, err = svc.Borrow(context.Background(), &BorrowInput{
			BookID: 1, BorrowerID: 8, DueAt: testNow.AddDate(0, 0, 91),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
		// Rejected before any copy was reserved
		assert.Equal(t, 4, books.available(1))
	})

	t.Run("unknown borrower", func(t *testing.T) {
		books := newMemBookStore(testBook(1, 1))
		svc := newTestLoanService(books, newMemLoanStore(), newMemUserRepo(), &recordPublisher{})

		_, err := svc.Borrow(context.Background(), &BorrowInput{BookID: 1, BorrowerID: 99})
		assert.ErrorIs(t, err, domain.ErrBorrowerNotFound)
	})

	t.Run("inactive borrower", func(t *testing.T) {
		inactive := testUser(7)
		inactive.IsActive = false
		books := newMemBookStore(testBook(1, 1))
		svc := newTestLoanService(books, newMemLoanStore(), newMemUserRepo(inactive), &recordPublisher{})

		_, err := svc.Borrow(context.Background(), &BorrowInput{BookID: 1, BorrowerID: 7})
		assert.ErrorIs(t, err, domain.ErrBorrowerNotFound)
	})

	t.Run("releases the copy when loan creation fails", func(t *testing.T) {
		books := newMemBookStore(testBook(1, 2))
		loans := newMemLoanStore()
		loans.createErr = errors.New("insert failed")
		svc := newTestLoanService(books, loans, newMemUserRepo(testUser(7)), &recordPublisher{})

		_, err := svc.Borrow(context.Background(), &BorrowInput{BookID: 1, BorrowerID: 7})
		require.Error(t, err)

		// The compensating release restored the counter
		assert.Equal(t, 2, books.available(1))
	})

	t.Run("concurrent borrowers race for the last copy", func(t *testing.T) {
		books := newMemBookStore(testBook(1, 1))
		loans := newMemLoanStore()
		users := newMemUserRepo(testUser(1), testUser(2))
		svc := newTestLoanService(books, loans, users, &recordPublisher{})

		var wg sync.WaitGroup
		results := make([]error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, results[i] = svc.Borrow(context.Background(), &BorrowInput{BookID: 1, BorrowerID: uint(i + 1)})
			}(i)
		}
		wg.Wait()

		var won, lost int
		for _, err := range results {
			switch {
			case err == nil:
				won++
			case errors.Is(err, domain.ErrBookUnavailable):
				lost++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, won)
		assert.Equal(t, 1, lost)
		assert.Equal(t, 0, books.available(1))
	})
}

func TestReturn(t *testing.T) {
	setup := func(dueAt time.Time) (*LoanService, *memBookStore, *memLoanStore, *recordPublisher) {
		book := testBook(1, 2)
		book.AvailableCopies = 1 // one copy out
		books := newMemBookStore(book)
		loans := newMemLoanStore()
		loans.put(&domain.Loan{
			BookID:     1,
			BorrowerID: 7,
			BorrowedAt: dueAt.AddDate(0, 0, -15),
			DueAt:      dueAt,
			Status:     domain.LoanStatusActive,
		})
		pub := &recordPublisher{}
		svc := newTestLoanService(books, loans, newMemUserRepo(testUser(7)), pub)
		return svc, books, loans, pub
	}

	t.Run("on time, no fine", func(t *testing.T) {
		svc, books, _, pub := setup(testNow.AddDate(0, 0, 5))

		loan, err := svc.Return(context.Background(), 1)
		require.NoError(t, err)

		assert.Equal(t, domain.LoanStatusReturned, loan.Status)
		assert.Nil(t, loan.Fine)
		assert.Equal(t, 2, books.available(1))
		assert.Len(t, pub.byType(domain.EventLoanReturned), 1)
	})

	t.Run("three days late", func(t *testing.T) {
		svc, books, _, _ := setup(testNow.AddDate(0, 0, -3))

		loan, err := svc.Return(context.Background(), 1)
		require.NoError(t, err)

		require.NotNil(t, loan.Fine)
		assert.Equal(t, 15.0, loan.Fine.Amount)
		assert.Equal(t, "late by 3 day(s)", loan.Fine.Reason)
		assert.False(t, loan.Fine.Paid)
		assert.Equal(t, 2, books.available(1))
	})

	t.Run("double return does not double release", func(t *testing.T) {
		svc, books, _, _ := setup(testNow.AddDate(0, 0, 5))

		_, err := svc.Return(context.Background(), 1)
		require.NoError(t, err)

		_, err = svc.Return(context.Background(), 1)
		assert.ErrorIs(t, err, domain.ErrAlreadyReturned)
		assert.Equal(t, 2, books.available(1))
	})

	t.Run("unknown loan", func(t *testing.T) {
		svc, _, _, _ := setup(testNow.AddDate(0, 0, 5))

		_, err := svc.Return(context.Background(), 42)
		assert.ErrorIs(t, err, domain.ErrLoanNotFound)
	})
}

func TestRenew(t *testing.T) {
	setup := func(loan *domain.Loan) (*LoanService, *memLoanStore, *recordPublisher) {
		books := newMemBookStore(testBook(1, 2))
		loans := newMemLoanStore()
		loans.put(loan)
		pub := &recordPublisher{}
		svc := newTestLoanService(books, loans, newMemUserRepo(testUser(7)), pub)
		return svc, loans, pub
	}

	t.Run("extends the due date", func(t *testing.T) {
		dueAt := testNow.AddDate(0, 0, 5)
		svc, _, pub := setup(&domain.Loan{
			BookID: 1, BorrowerID: 7, DueAt: dueAt, Status: domain.LoanStatusActive,
		})

		loan, err := svc.Renew(context.Background(), 1, &RenewInput{AdditionalDays: 7})
		require.NoError(t, err)

		assert.Equal(t, dueAt.AddDate(0, 0, 7), loan.DueAt)
		assert.Equal(t, 1, loan.RenewalCount)
		assert.Len(t, pub.byType(domain.EventLoanRenewed), 1)
	})

	t.Run("defaults to the standard period", func(t *testing.T) {
		dueAt := testNow.AddDate(0, 0, 5)
		svc, _, _ := setup(&domain.Loan{
			BookID: 1, BorrowerID: 7, DueAt: dueAt, Status: domain.LoanStatusActive,
		})

		loan, err := svc.Renew(context.Background(), 1, &RenewInput{})
		require.NoError(t, err)
		assert.Equal(t, dueAt.AddDate(0, 0, 15), loan.DueAt)
	})

	t.Run("renewal limit reached", func(t *testing.T) {
		svc, _, _ := setup(&domain.Loan{
			BookID: 1, BorrowerID: 7, DueAt: testNow.AddDate(0, 0, 5),
			Status: domain.LoanStatusActive, RenewalCount: domain.MaxRenewals,
		})

		_, err := svc.Renew(context.Background(), 1, &RenewInput{AdditionalDays: 7})
		assert.ErrorIs(t, err, domain.ErrRenewalLimitExceeded)
	})

	t.Run("limit reported before overdue on an exhausted late loan", func(t *testing.T) {
		svc, _, _ := setup(&domain.Loan{
			BookID: 1, BorrowerID: 7, DueAt: testNow.AddDate(0, 0, -2),
			Status: domain.LoanStatusActive, RenewalCount: domain.MaxRenewals,
		})

		_, err := svc.Renew(context.Background(), 1, &RenewInput{AdditionalDays: 7})
		assert.ErrorIs(t, err, domain.ErrRenewalLimitExceeded)
	})

	t.Run("overdue loans cannot be renewed", func(t *testing.T) {
		svc, _, _ := setup(&domain.Loan{
			BookID: 1, BorrowerID: 7, DueAt: testNow.AddDate(0, 0, -2),
			Status: domain.LoanStatusActive,
		})

		_, err := svc.Renew(context.Background(), 1, &RenewInput{AdditionalDays: 7})
		assert.ErrorIs(t, err, domain.ErrAlreadyOverdue)
	})

	t.Run("returned loans cannot be renewed", func(t *testing.T) {
		returnedAt := testNow.AddDate(0, 0, -1)
		svc, _, _ := setup(&domain.Loan{
			BookID: 1, BorrowerID: 7, DueAt: testNow.AddDate(0, 0, 5),
			Status: domain.LoanStatusReturned, ReturnedAt: &returnedAt,
		})

		_, err := svc.Renew(context.Background(), 1, &RenewInput{AdditionalDays: 7})
		assert.ErrorIs(t, err, domain.ErrAlreadyReturned)
	})
}

func TestMarkLost(t *testing.T) {
	book := testBook(1, 2)
	book.AvailableCopies = 1
	books := newMemBookStore(book)
	loans := newMemLoanStore()
	loans.put(&domain.Loan{
		BookID: 1, BorrowerID: 7, DueAt: testNow.AddDate(0, 0, 5),
		Status: domain.LoanStatusActive,
	})
	pub := &recordPublisher{}
	svc := newTestLoanService(books, loans, newMemUserRepo(testUser(7)), pub)

	loan, err := svc.MarkLost(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, domain.LoanStatusLost, loan.Status)
	// The copy is gone, not back on the shelf
	assert.Equal(t, 1, books.available(1))
	assert.Len(t, pub.byType(domain.EventLoanLost), 1)

	// Terminal: no further transitions
	_, err = svc.Return(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrAlreadyReturned)
	_, err = svc.MarkLost(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrAlreadyReturned)
}

func TestPayFine(t *testing.T) {
	setup := func() (*LoanService, *memLoanStore) {
		book := testBook(1, 2)
		book.AvailableCopies = 1
		books := newMemBookStore(book)
		loans := newMemLoanStore()
		loans.put(&domain.Loan{
			BookID: 1, BorrowerID: 7, DueAt: testNow.AddDate(0, 0, -3),
			Status: domain.LoanStatusActive,
		})
		svc := newTestLoanService(books, loans, newMemUserRepo(testUser(7)), &recordPublisher{})
		return svc, loans
	}

	t.Run("settles a fine once", func(t *testing.T) {
		svc, _ := setup()
		_, err := svc.Return(context.Background(), 1)
		require.NoError(t, err)

		loan, err := svc.PayFine(context.Background(), 1)
		require.NoError(t, err)
		require.NotNil(t, loan.Fine)
		assert.True(t, loan.Fine.Paid)
		assert.Equal(t, testNow, *loan.Fine.PaidAt)

		_, err = svc.PayFine(context.Background(), 1)
		assert.ErrorIs(t, err, domain.ErrFineAlreadyPaid)
	})

	t.Run("no fine to pay", func(t *testing.T) {
		svc, loans := setup()
		loans.put(&domain.Loan{
			ID: 2, BookID: 1, BorrowerID: 7, DueAt: testNow.AddDate(0, 0, 5),
			Status: domain.LoanStatusActive,
		})

		_, err := svc.PayFine(context.Background(), 2)
		assert.ErrorIs(t, err, domain.ErrNoFine)
	})
}

func TestGetAvailability(t *testing.T) {
	book := testBook(1, 3)
	book.AvailableCopies = 1
	books := newMemBookStore(book)
	svc := newTestLoanService(books, newMemLoanStore(), newMemUserRepo(), &recordPublisher{})

	availability, err := svc.GetAvailability(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, uint(1), availability.BookID)
	assert.Equal(t, 1, availability.Available)
	assert.Equal(t, 3, availability.Total)
	assert.Equal(t, domain.BookStatusAvailable, availability.Status)

	_, err = svc.GetAvailability(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrBookNotFound)
}
