package repositories

import (
	"context"
	"errors"
	"time"

	"librohub/internal/adapters/persistence/models"
	"librohub/internal/core/domain"

	"gorm.io/gorm"
)

// LoanRepository handles loan data access. Load/Create/Save implement
// the LoanStore compare-and-swap contract; the rest serve the loans API
// and the overdue sweep.
type LoanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

// LoadLoan reads a loan snapshot with its current version token.
func (r *LoanRepository) LoadLoan(ctx context.Context, id uint) (*domain.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).First(&loan, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}
	return loan.ToDomain(), nil
}

// CreateLoan persists a new loan and backfills the generated ID.
func (r *LoanRepository) CreateLoan(ctx context.Context, loan *domain.Loan) error {
	row := models.LoanFromDomain(loan)
	row.Version = 1
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	loan.ID = row.ID
	loan.Version = row.Version
	return nil
}

// SaveLoan writes the mutable loan state guarded by expectedVersion.
func (r *LoanRepository) SaveLoan(ctx context.Context, loan *domain.Loan, expectedVersion int64) error {
	row := models.LoanFromDomain(loan)
	result := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("id = ? AND version = ?", loan.ID, expectedVersion).
		Updates(map[string]interface{}{
			"due_at":        row.DueAt,
			"returned_at":   row.ReturnedAt,
			"status":        row.Status,
			"renewal_count": row.RenewalCount,
			"fine_amount":   row.FineAmount,
			"fine_reason":   row.FineReason,
			"fine_paid":     row.FinePaid,
			"fine_paid_at":  row.FinePaidAt,
			"notes":         row.Notes,
			"version":       expectedVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Loan{}).Where("id = ?", loan.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrLoanNotFound
		}
		return domain.ErrVersionConflict
	}
	loan.Version = expectedVersion + 1
	return nil
}

// CountActiveByBorrower counts a borrower's active loans.
func (r *LoanRepository) CountActiveByBorrower(ctx context.Context, borrowerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("borrower_id = ? AND status = ?", borrowerID, string(domain.LoanStatusActive)).
		Count(&count).Error
	return count, err
}

// CountActiveByBook counts active loans referencing a book. Used by the
// catalog to block withdrawing a book that is still out on loan.
func (r *LoanRepository) CountActiveByBook(ctx context.Context, bookID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("book_id = ? AND status = ?", bookID, string(domain.LoanStatusActive)).
		Count(&count).Error
	return count, err
}

// ListOverdueUnnotified returns active loans past due whose overdue
// event has not been emitted yet.
func (r *LoanRepository) ListOverdueUnnotified(ctx context.Context, now time.Time) ([]*domain.Loan, error) {
	var rows []*models.Loan
	err := r.db.WithContext(ctx).
		Where("status = ? AND due_at < ? AND overdue_notified_at IS NULL", string(domain.LoanStatusActive), now).
		Order("due_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	loans := make([]*domain.Loan, len(rows))
	for i, row := range rows {
		loans[i] = row.ToDomain()
	}
	return loans, nil
}

// MarkOverdueNotified stamps the overdue-notified timestamp exactly
// once. Returns false when another sweep pass already stamped it, which
// makes re-running the sweep a no-op.
func (r *LoanRepository) MarkOverdueNotified(ctx context.Context, loanID uint, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("id = ? AND overdue_notified_at IS NULL", loanID).
		Update("overdue_notified_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// LoanFilter narrows loan listings
type LoanFilter struct {
	Status     string
	BorrowerID uint
}

// GetModelByID gets a loan row with its book and borrower preloaded.
func (r *LoanRepository) GetModelByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Preload("Book").
		Preload("Borrower").
		First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// List lists loans with pagination and optional filters
func (r *LoanRepository) List(ctx context.Context, filter LoanFilter, offset, limit int) ([]*models.Loan, int64, error) {
	var loans []*models.Loan
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Loan{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.BorrowerID != 0 {
		query = query.Where("borrower_id = ?", filter.BorrowerID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Book").
		Preload("Borrower").
		Order("borrowed_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&loans).Error

	return loans, total, err
}

// ListOverdue returns all active loans past their due date, for the
// admin overdue report.
func (r *LoanRepository) ListOverdue(ctx context.Context, now time.Time) ([]*models.Loan, error) {
	var loans []*models.Loan
	err := r.db.WithContext(ctx).
		Preload("Book").
		Preload("Borrower").
		Where("status = ? AND due_at < ?", string(domain.LoanStatusActive), now).
		Order("due_at ASC").
		Find(&loans).Error
	return loans, err
}
