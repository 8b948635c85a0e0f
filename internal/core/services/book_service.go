package services

import (
	"context"
	"errors"

	"librohub/internal/adapters/persistence/models"
	"librohub/internal/adapters/persistence/repositories"
	"librohub/internal/core/domain"
	"librohub/internal/pkg/clock"

	"gorm.io/gorm"
)

// BookService handles catalog management. Copy-counter changes go
// through the versioned SaveBook path shared with the loan service so
// catalog edits can never race a borrow into a negative counter.
type BookService struct {
	bookRepo *repositories.BookRepository
	loans    repositories.LoanStore
	clock    clock.Clock
	retries  int
}

// NewBookService creates a new book service
func NewBookService(bookRepo *repositories.BookRepository, loans repositories.LoanStore, clk clock.Clock, retries int) *BookService {
	return &BookService{
		bookRepo: bookRepo,
		loans:    loans,
		clock:    clk,
		retries:  retries,
	}
}

func (s *BookService) retryConflict(op func() error) error {
	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		err = op()
		if !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
	}
	return err
}

// CreateBookInput represents create book input
type CreateBookInput struct {
	ISBN        string `json:"isbn" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Author      string `json:"author" validate:"required"`
	Publisher   string `json:"publisher"`
	Genre       string `json:"genre"`
	Year        int    `json:"year"`
	Description string `json:"description"`
	Location    string `json:"location"`
	TotalCopies int    `json:"total_copies" validate:"required,min=1"`
}

// Create adds a new title to the catalog. All copies start available.
func (s *BookService) Create(ctx context.Context, input *CreateBookInput) (*models.BookResponse, error) {
	if !domain.ValidISBN(input.ISBN) {
		return nil, domain.ErrInvalidISBN
	}
	if input.TotalCopies < 1 {
		return nil, domain.ErrInvalidCopyCount
	}

	exists, err := s.bookRepo.ExistsByISBN(ctx, input.ISBN)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrISBNAlreadyExists
	}

	book := &models.Book{
		ISBN:            input.ISBN,
		Title:           input.Title,
		Author:          input.Author,
		Publisher:       input.Publisher,
		Genre:           input.Genre,
		Year:            input.Year,
		Description:     input.Description,
		Location:        input.Location,
		TotalCopies:     input.TotalCopies,
		AvailableCopies: input.TotalCopies,
		AcquiredAt:      s.clock.Now(),
		Version:         1,
	}

	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, err
	}
	return book.ToResponse(), nil
}

// GetByID gets a book by ID
func (s *BookService) GetByID(ctx context.Context, id uint) (*models.BookResponse, error) {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBookNotFound
		}
		return nil, err
	}
	return book.ToResponse(), nil
}

// ListBooksInput represents list books input
type ListBooksInput struct {
	Page          int
	Limit         int
	Genre         string
	Author        string
	AvailableOnly bool
}

// ListBooksOutput represents list books output
type ListBooksOutput struct {
	Books      []*models.BookResponse `json:"books"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	TotalPages int                    `json:"total_pages"`
}

// List lists catalog entries with pagination and optional filters
func (s *BookService) List(ctx context.Context, input *ListBooksInput) (*ListBooksOutput, error) {
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
	filter := repositories.BookFilter{
		Genre:         input.Genre,
		Author:        input.Author,
		AvailableOnly: input.AvailableOnly,
	}

	rows, total, err := s.bookRepo.List(ctx, filter, offset, input.Limit)
	if err != nil {
		return nil, err
	}

	books := make([]*models.BookResponse, len(rows))
	for i, row := range rows {
		books[i] = row.ToResponse()
	}

	totalPages := int(total) / input.Limit
	if int(total)%input.Limit > 0 {
		totalPages++
	}

	return &ListBooksOutput{
		Books:      books,
		Total:      total,
		Page:       input.Page,
		Limit:      input.Limit,
		TotalPages: totalPages,
	}, nil
}

// UpdateBookInput represents update book input. Copy counters are not
// part of metadata; they change through AdjustCopies.
type UpdateBookInput struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Publisher   *string `json:"publisher"`
	Genre       *string `json:"genre"`
	Year        *int    `json:"year"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
}

// Update changes catalog metadata
func (s *BookService) Update(ctx context.Context, id uint, input *UpdateBookInput) (*models.BookResponse, error) {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBookNotFound
		}
		return nil, err
	}

	if input.Title != nil {
		book.Title = *input.Title
	}
	if input.Author != nil {
		book.Author = *input.Author
	}
	if input.Publisher != nil {
		book.Publisher = *input.Publisher
	}
	if input.Genre != nil {
		book.Genre = *input.Genre
	}
	if input.Year != nil {
		book.Year = *input.Year
	}
	if input.Description != nil {
		book.Description = *input.Description
	}
	if input.Location != nil {
		book.Location = *input.Location
	}

	if err := s.bookRepo.UpdateMetadata(ctx, book); err != nil {
		return nil, err
	}
	return book.ToResponse(), nil
}

// AdjustCopies changes the total copy count by delta, keeping the
// available counter in step. Used when copies are acquired, scrapped,
// or written off after a lost loan. Shrinking below the number of
// copies currently out on loan is rejected.
func (s *BookService) AdjustCopies(ctx context.Context, id uint, delta int) (*domain.Availability, error) {
	var book *domain.Book
	err := s.retryConflict(func() error {
		current, loadErr := s.bookRepo.LoadBook(ctx, id)
		if loadErr != nil {
			return loadErr
		}
		if adjustErr := current.AdjustCopies(delta); adjustErr != nil {
			return adjustErr
		}
		if saveErr := s.bookRepo.SaveBook(ctx, current, current.Version); saveErr != nil {
			return saveErr
		}
		book = current
		return nil
	})
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

// Withdraw pulls a title from circulation. A book with active loans
// cannot be withdrawn; the copies out there still have to come back.
func (s *BookService) Withdraw(ctx context.Context, id uint) (*models.BookResponse, error) {
	active, err := s.loans.CountActiveByBook(ctx, id)
	if err != nil {
		return nil, err
	}
	if active > 0 {
		return nil, domain.ErrBookHasActiveLoans
	}

	err = s.retryConflict(func() error {
		book, loadErr := s.bookRepo.LoadBook(ctx, id)
		if loadErr != nil {
			return loadErr
		}
		book.Withdrawn = true
		return s.bookRepo.SaveBook(ctx, book, book.Version)
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Reinstate puts a withdrawn title back into circulation
func (s *BookService) Reinstate(ctx context.Context, id uint) (*models.BookResponse, error) {
	err := s.retryConflict(func() error {
		book, loadErr := s.bookRepo.LoadBook(ctx, id)
		if loadErr != nil {
			return loadErr
		}
		book.Withdrawn = false
		return s.bookRepo.SaveBook(ctx, book, book.Version)
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Delete soft deletes a catalog entry. Blocked while loans are active.
func (s *BookService) Delete(ctx context.Context, id uint) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	active, err := s.loans.CountActiveByBook(ctx, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return domain.ErrBookHasActiveLoans
	}
	return s.bookRepo.Delete(ctx, id)
}
