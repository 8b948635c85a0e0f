package services

import (
	"context"
	"time"

	"librohub/internal/pkg/clock"

	"gorm.io/gorm"
)

// ReportService aggregates loan and catalog statistics straight off
// the tables. Overdue counts are derived against now at query time.
type ReportService struct {
	db    *gorm.DB
	clock clock.Clock
}

// NewReportService creates a new report service
func NewReportService(db *gorm.DB, clk clock.Clock) *ReportService {
	return &ReportService{db: db, clock: clk}
}

// LoanReport represents loan statistics
type LoanReport struct {
	TotalLoans    int64 `json:"total_loans"`
	ActiveLoans   int64 `json:"active_loans"`
	ReturnedLoans int64 `json:"returned_loans"`
	LostLoans     int64 `json:"lost_loans"`
	OverdueLoans  int64 `json:"overdue_loans"`

	LoansThisMonth   int64 `json:"loans_this_month"`
	ReturnsThisMonth int64 `json:"returns_this_month"`

	FinesTotal       float64 `json:"fines_total"`
	FinesPaid        float64 `json:"fines_paid"`
	FinesOutstanding float64 `json:"fines_outstanding"`

	TopBooks []BookLoanCount `json:"top_books"`
}

// BookLoanCount represents how often a title has been borrowed
type BookLoanCount struct {
	BookID uint   `json:"book_id"`
	Title  string `json:"title"`
	Loans  int64  `json:"loans"`
}

// GetLoanReport returns loan statistics
func (s *ReportService) GetLoanReport(ctx context.Context) (*LoanReport, error) {
	report := &LoanReport{}
	now := s.clock.Now()

	s.db.WithContext(ctx).Table("loans").Count(&report.TotalLoans)
	s.db.WithContext(ctx).Table("loans").Where("status = ?", "active").Count(&report.ActiveLoans)
	s.db.WithContext(ctx).Table("loans").Where("status = ?", "returned").Count(&report.ReturnedLoans)
	s.db.WithContext(ctx).Table("loans").Where("status = ?", "lost").Count(&report.LostLoans)

	// Overdue is a view over active loans, not a stored state
	s.db.WithContext(ctx).Table("loans").
		Where("status = ? AND due_at < ?", "active", now).
		Count(&report.OverdueLoans)

	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	s.db.WithContext(ctx).Table("loans").
		Where("borrowed_at >= ?", startOfMonth).
		Count(&report.LoansThisMonth)
	s.db.WithContext(ctx).Table("loans").
		Where("returned_at >= ?", startOfMonth).
		Count(&report.ReturnsThisMonth)

	s.db.WithContext(ctx).Table("loans").
		Where("fine_amount IS NOT NULL").
		Select("COALESCE(SUM(fine_amount), 0)").
		Scan(&report.FinesTotal)

	s.db.WithContext(ctx).Table("loans").
		Where("fine_amount IS NOT NULL AND fine_paid = ?", true).
		Select("COALESCE(SUM(fine_amount), 0)").
		Scan(&report.FinesPaid)

	report.FinesOutstanding = report.FinesTotal - report.FinesPaid

	var topBooks []struct {
		BookID uint
		Title  string
		Loans  int64
	}
	s.db.WithContext(ctx).Table("loans").
		Select("loans.book_id, books.title, COUNT(*) as loans").
		Joins("JOIN books ON loans.book_id = books.id").
		Group("loans.book_id, books.title").
		Order("loans DESC").
		Limit(10).
		Scan(&topBooks)

	report.TopBooks = make([]BookLoanCount, len(topBooks))
	for i, b := range topBooks {
		report.TopBooks[i] = BookLoanCount{BookID: b.BookID, Title: b.Title, Loans: b.Loans}
	}

	return report, nil
}

// CatalogReport represents catalog statistics
type CatalogReport struct {
	TotalTitles     int64 `json:"total_titles"`
	WithdrawnTitles int64 `json:"withdrawn_titles"`
	TotalCopies     int64 `json:"total_copies"`
	AvailableCopies int64 `json:"available_copies"`
	CopiesOnLoan    int64 `json:"copies_on_loan"`

	TitlesByGenre []GenreCount `json:"titles_by_genre"`
}

// GenreCount represents title count per genre
type GenreCount struct {
	Genre  string `json:"genre"`
	Titles int64  `json:"titles"`
}

// GetCatalogReport returns catalog statistics
func (s *ReportService) GetCatalogReport(ctx context.Context) (*CatalogReport, error) {
	report := &CatalogReport{}

	s.db.WithContext(ctx).Table("books").Where("deleted_at IS NULL").Count(&report.TotalTitles)
	s.db.WithContext(ctx).Table("books").
		Where("withdrawn = ? AND deleted_at IS NULL", true).
		Count(&report.WithdrawnTitles)

	s.db.WithContext(ctx).Table("books").
		Where("deleted_at IS NULL").
		Select("COALESCE(SUM(total_copies), 0)").
		Scan(&report.TotalCopies)

	s.db.WithContext(ctx).Table("books").
		Where("deleted_at IS NULL").
		Select("COALESCE(SUM(available_copies), 0)").
		Scan(&report.AvailableCopies)

	report.CopiesOnLoan = report.TotalCopies - report.AvailableCopies

	var genres []struct {
		Genre  string
		Titles int64
	}
	s.db.WithContext(ctx).Table("books").
		Select("genre, COUNT(*) as titles").
		Where("genre <> '' AND deleted_at IS NULL").
		Group("genre").
		Order("titles DESC").
		Scan(&genres)

	report.TitlesByGenre = make([]GenreCount, len(genres))
	for i, g := range genres {
		report.TitlesByGenre[i] = GenreCount{Genre: g.Genre, Titles: g.Titles}
	}

	return report, nil
}
