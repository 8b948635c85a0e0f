package repositories

import (
	"context"
	"errors"

	"librohub/internal/adapters/persistence/models"
	"librohub/internal/core/domain"

	"gorm.io/gorm"
)

// BookRepository handles book data access. The Load/Save pair
// implements the BookStore compare-and-swap contract; the remaining
// methods serve catalog management.
type BookRepository struct {
	db *gorm.DB
}

// NewBookRepository creates a new book repository
func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{db: db}
}

// LoadBook reads a book snapshot with its current version token.
func (r *BookRepository) LoadBook(ctx context.Context, id uint) (*domain.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBookNotFound
		}
		return nil, err
	}
	return book.ToDomain(), nil
}

// SaveBook writes the mutable book state if and only if the row still
// carries expectedVersion. RowsAffected == 0 means another writer got
// there first, or the book vanished; both are distinguished before
// returning.
func (r *BookRepository) SaveBook(ctx context.Context, book *domain.Book, expectedVersion int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ? AND version = ?", book.ID, expectedVersion).
		Updates(map[string]interface{}{
			"available_copies": book.AvailableCopies,
			"total_copies":     book.TotalCopies,
			"withdrawn":        book.Withdrawn,
			"version":          expectedVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Book{}).Where("id = ?", book.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrBookNotFound
		}
		return domain.ErrVersionConflict
	}
	book.Version = expectedVersion + 1
	return nil
}

// Create creates a new catalog entry
func (r *BookRepository) Create(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).Create(book).Error
}

// GetByID gets a book by ID
func (r *BookRepository) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetByISBN gets a book by ISBN
func (r *BookRepository) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).Where("isbn = ?", isbn).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// ExistsByISBN checks if a book with the given ISBN exists
func (r *BookRepository) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Book{}).Where("isbn = ?", isbn).Count(&count).Error
	return count > 0, err
}

// BookFilter narrows catalog listings
type BookFilter struct {
	Genre         string
	Author        string
	AvailableOnly bool
}

// List lists books with pagination and optional filters
func (r *BookRepository) List(ctx context.Context, filter BookFilter, offset, limit int) ([]*models.Book, int64, error) {
	var books []*models.Book
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Book{})
	if filter.Genre != "" {
		query = query.Where("genre LIKE ?", "%"+filter.Genre+"%")
	}
	if filter.Author != "" {
		query = query.Where("author LIKE ?", "%"+filter.Author+"%")
	}
	if filter.AvailableOnly {
		query = query.Where("available_copies > 0 AND withdrawn = ?", false)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("title ASC").
		Offset(offset).
		Limit(limit).
		Find(&books).Error

	return books, total, err
}

// UpdateMetadata updates catalog fields that are outside the
// copy-counter invariant. Counter changes go through SaveBook only.
func (r *BookRepository) UpdateMetadata(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ?", book.ID).
		Updates(map[string]interface{}{
			"title":       book.Title,
			"author":      book.Author,
			"publisher":   book.Publisher,
			"genre":       book.Genre,
			"year":        book.Year,
			"description": book.Description,
			"location":    book.Location,
		}).Error
}

// Delete soft deletes a book
func (r *BookRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Book{}, id).Error
}
