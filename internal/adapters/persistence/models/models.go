package models

import (
	"time"

	"librohub/internal/core/domain"

	"gorm.io/gorm"
)

// ============================================================
// Auth & User Tables
// ============================================================

// User represents the users table
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"size:100;not null" json:"name"`
	Email     string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Role      string         `gorm:"size:20;default:'USER'" json:"role"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"is_active"`
	ActiveLoans int64     `json:"active_loans"`
	CreatedAt   time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// RefreshToken represents the refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Catalog & Loan Tables
// ============================================================

// Book represents the books table. AvailableCopies and Version are
// written together through the compare-and-swap update in the book
// repository; status is derived, never stored.
type Book struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	ISBN            string         `gorm:"uniqueIndex;size:13;not null" json:"isbn"`
	Title           string         `gorm:"size:255;not null;index" json:"title"`
	Author          string         `gorm:"size:100;not null;index" json:"author"`
	Publisher       string         `gorm:"size:100" json:"publisher"`
	Genre           string         `gorm:"size:50;index" json:"genre"`
	Year            int            `json:"year"`
	Description     string         `gorm:"type:text" json:"description"`
	Location        string         `gorm:"size:100" json:"location"`
	TotalCopies     int            `gorm:"not null" json:"total_copies"`
	AvailableCopies int            `gorm:"not null" json:"available_copies"`
	Withdrawn       bool           `gorm:"default:false" json:"withdrawn"`
	AcquiredAt      time.Time      `json:"acquired_at"`
	Version         int64          `gorm:"not null;default:1" json:"-"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Book) TableName() string {
	return "books"
}

func (b *Book) ToDomain() *domain.Book {
	return &domain.Book{
		ID:              b.ID,
		ISBN:            b.ISBN,
		Title:           b.Title,
		Author:          b.Author,
		Publisher:       b.Publisher,
		Genre:           b.Genre,
		Year:            b.Year,
		Description:     b.Description,
		Location:        b.Location,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		Withdrawn:       b.Withdrawn,
		AcquiredAt:      b.AcquiredAt,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
		Version:         b.Version,
	}
}

// BookFromDomain maps a domain book back onto its row.
func BookFromDomain(b *domain.Book) *Book {
	return &Book{
		ID:              b.ID,
		ISBN:            b.ISBN,
		Title:           b.Title,
		Author:          b.Author,
		Publisher:       b.Publisher,
		Genre:           b.Genre,
		Year:            b.Year,
		Description:     b.Description,
		Location:        b.Location,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		Withdrawn:       b.Withdrawn,
		AcquiredAt:      b.AcquiredAt,
		Version:         b.Version,
	}
}

// BookResponse DTO with the derived status included
type BookResponse struct {
	ID              uint              `json:"id"`
	ISBN            string            `json:"isbn"`
	Title           string            `json:"title"`
	Author          string            `json:"author"`
	Publisher       string            `json:"publisher,omitempty"`
	Genre           string            `json:"genre,omitempty"`
	Year            int               `json:"year,omitempty"`
	Description     string            `json:"description,omitempty"`
	Location        string            `json:"location,omitempty"`
	TotalCopies     int               `json:"total_copies"`
	AvailableCopies int               `json:"available_copies"`
	Status          domain.BookStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
}

func (b *Book) ToResponse() *BookResponse {
	return &BookResponse{
		ID:              b.ID,
		ISBN:            b.ISBN,
		Title:           b.Title,
		Author:          b.Author,
		Publisher:       b.Publisher,
		Genre:           b.Genre,
		Year:            b.Year,
		Description:     b.Description,
		Location:        b.Location,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		Status:          b.ToDomain().Status(),
		CreatedAt:       b.CreatedAt,
	}
}

// Loan represents the loans table. Fine columns are null until a late
// return attaches one. Loans are never physically deleted.
type Loan struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	BookID            uint       `gorm:"index;not null" json:"book_id"`
	BorrowerID        uint       `gorm:"index;not null" json:"borrower_id"`
	BorrowedAt        time.Time  `gorm:"not null;index" json:"borrowed_at"`
	DueAt             time.Time  `gorm:"not null;index" json:"due_at"`
	ReturnedAt        *time.Time `json:"returned_at"`
	Status            string     `gorm:"size:20;not null;index" json:"status"`
	RenewalCount      int        `gorm:"not null;default:0" json:"renewal_count"`
	FineAmount        *float64   `json:"-"`
	FineReason        *string    `gorm:"size:255" json:"-"`
	FinePaid          *bool      `json:"-"`
	FinePaidAt        *time.Time `json:"-"`
	Notes             string     `gorm:"size:500" json:"notes,omitempty"`
	OverdueNotifiedAt *time.Time `gorm:"index" json:"-"`
	Version           int64      `gorm:"not null;default:1" json:"-"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	Book              Book       `gorm:"foreignKey:BookID" json:"-"`
	Borrower          User       `gorm:"foreignKey:BorrowerID" json:"-"`
}

func (Loan) TableName() string {
	return "loans"
}

func (l *Loan) ToDomain() *domain.Loan {
	loan := &domain.Loan{
		ID:                l.ID,
		BookID:            l.BookID,
		BorrowerID:        l.BorrowerID,
		BorrowedAt:        l.BorrowedAt,
		DueAt:             l.DueAt,
		ReturnedAt:        l.ReturnedAt,
		Status:            domain.LoanStatus(l.Status),
		RenewalCount:      l.RenewalCount,
		Notes:             l.Notes,
		OverdueNotifiedAt: l.OverdueNotifiedAt,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
		Version:           l.Version,
	}
	if l.FineAmount != nil {
		fine := &domain.Fine{Amount: *l.FineAmount, PaidAt: l.FinePaidAt}
		if l.FineReason != nil {
			fine.Reason = *l.FineReason
		}
		if l.FinePaid != nil {
			fine.Paid = *l.FinePaid
		}
		loan.Fine = fine
	}
	return loan
}

// LoanFromDomain maps a domain loan back onto its row.
func LoanFromDomain(l *domain.Loan) *Loan {
	row := &Loan{
		ID:                l.ID,
		BookID:            l.BookID,
		BorrowerID:        l.BorrowerID,
		BorrowedAt:        l.BorrowedAt,
		DueAt:             l.DueAt,
		ReturnedAt:        l.ReturnedAt,
		Status:            string(l.Status),
		RenewalCount:      l.RenewalCount,
		Notes:             l.Notes,
		OverdueNotifiedAt: l.OverdueNotifiedAt,
		Version:           l.Version,
	}
	if l.Fine != nil {
		row.FineAmount = &l.Fine.Amount
		row.FineReason = &l.Fine.Reason
		row.FinePaid = &l.Fine.Paid
		row.FinePaidAt = l.Fine.PaidAt
	}
	return row
}

// LoanResponse DTO with derived overdue view
type LoanResponse struct {
	ID           uint         `json:"id"`
	BookID       uint         `json:"book_id"`
	BookTitle    string       `json:"book_title,omitempty"`
	BorrowerID   uint         `json:"borrower_id"`
	BorrowerName string       `json:"borrower_name,omitempty"`
	BorrowedAt   time.Time    `json:"borrowed_at"`
	DueAt        time.Time    `json:"due_at"`
	ReturnedAt   *time.Time   `json:"returned_at,omitempty"`
	Status       string       `json:"status"`
	Overdue      bool         `json:"overdue"`
	LateDays     int          `json:"late_days"`
	RenewalCount int          `json:"renewal_count"`
	Fine         *domain.Fine `json:"fine,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// ToResponse builds the response view; overdue and late days are
// derived against now, never read from storage.
func (l *Loan) ToResponse(now time.Time) *LoanResponse {
	loan := l.ToDomain()
	resp := &LoanResponse{
		ID:           l.ID,
		BookID:       l.BookID,
		BorrowerID:   l.BorrowerID,
		BorrowedAt:   l.BorrowedAt,
		DueAt:        l.DueAt,
		ReturnedAt:   l.ReturnedAt,
		Status:       l.Status,
		Overdue:      loan.Overdue(now),
		LateDays:     loan.LateDays(now),
		RenewalCount: l.RenewalCount,
		Fine:         loan.Fine,
		Notes:        l.Notes,
		CreatedAt:    l.CreatedAt,
	}
	if l.Book.ID != 0 {
		resp.BookTitle = l.Book.Title
	}
	if l.Borrower.ID != 0 {
		resp.BorrowerName = l.Borrower.Name
	}
	return resp
}

// AutoMigrate creates or updates all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&Book{},
		&Loan{},
	)
}
