package handlers

import (
	"strconv"
	"time"

	"librohub/internal/core/services"
	"librohub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// LoanHandler handles loan endpoints
type LoanHandler struct {
	loanService *services.LoanService
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(loanService *services.LoanService) *LoanHandler {
	return &LoanHandler{
		loanService: loanService,
	}
}

// BorrowRequest represents borrow request body
type BorrowRequest struct {
	BookID     uint       `json:"book_id"`
	BorrowerID uint       `json:"borrower_id"`
	DueAt      *time.Time `json:"due_at"`
	Notes      string     `json:"notes"`
}

// Borrow handles lending a copy to a borrower
// @Summary Borrow a book
// @Description Lend one copy of a book to a borrower; omitting due_at uses the default loan period
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body BorrowRequest true "Borrow data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /loans [post]
func (h *LoanHandler) Borrow(c *fiber.Ctx) error {
	var req BorrowRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.BookID == 0 {
		return response.BadRequest(c, "Book ID is required")
	}

	// Non-admins borrow for themselves
	borrowerID := req.BorrowerID
	if role, _ := c.Locals("role").(string); role != "ADMIN" || borrowerID == 0 {
		borrowerID, _ = c.Locals("userID").(uint)
	}

	input := &services.BorrowInput{
		BookID:     req.BookID,
		BorrowerID: borrowerID,
		Notes:      req.Notes,
	}
	if req.DueAt != nil {
		input.DueAt = *req.DueAt
	}

	loan, err := h.loanService.Borrow(c.Context(), input)
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Created(c, "Book borrowed successfully", fiber.Map{
		"loan": loan,
	})
}

// ListLoans handles listing loans
// @Summary List loans
// @Description Get a paginated loan listing; non-admins see only their own loans
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(10)
// @Param status query string false "Filter by status (active/returned/lost)"
// @Success 200 {object} response.Response
// @Router /loans [get]
func (h *LoanHandler) ListLoans(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	input := &services.ListLoansInput{
		Page:   page,
		Limit:  limit,
		Status: c.Query("status"),
	}

	// Non-admins see only their own loans
	if role, _ := c.Locals("role").(string); role != "ADMIN" {
		input.BorrowerID, _ = c.Locals("userID").(uint)
	} else if borrowerID, err := strconv.ParseUint(c.Query("borrower_id", "0"), 10, 32); err == nil {
		input.BorrowerID = uint(borrowerID)
	}

	result, err := h.loanService.List(c.Context(), input)
	if err != nil {
		return response.InternalServerError(c, "Failed to list loans")
	}

	return response.Success(c, "Loans retrieved successfully", result)
}

// ListOverdue handles listing all currently overdue loans (Admin only)
// @Summary List overdue loans
// @Description Get all loans past their due date, derived against the current time (Admin only)
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /loans/overdue [get]
func (h *LoanHandler) ListOverdue(c *fiber.Ctx) error {
	loans, err := h.loanService.ListOverdue(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list overdue loans")
	}

	return response.Success(c, "Overdue loans retrieved successfully", fiber.Map{
		"loans": loans,
	})
}

// GetLoan handles getting a loan by ID
// @Summary Get loan by ID
// @Description Get a loan with book and borrower details
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id} [get]
func (h *LoanHandler) GetLoan(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, err := h.loanService.GetByID(c.Context(), uint(id))
	if err != nil {
		return response.DomainError(c, err)
	}

	// Borrowers may only see their own loans
	if role, _ := c.Locals("role").(string); role != "ADMIN" {
		userID, _ := c.Locals("userID").(uint)
		if loan.BorrowerID != userID {
			return response.Forbidden(c, "You don't have permission to access this loan")
		}
	}

	return response.Success(c, "Loan retrieved successfully", fiber.Map{
		"loan": loan,
	})
}

// ReturnLoan handles returning a borrowed copy
// @Summary Return a loan
// @Description Close a loan, compute the fine when late, and release the copy
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /loans/{id}/return [post]
func (h *LoanHandler) ReturnLoan(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, err := h.loanService.Return(c.Context(), uint(id))
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "Book returned successfully", fiber.Map{
		"loan": loan,
	})
}

// RenewRequest represents renew request body
type RenewRequest struct {
	AdditionalDays int `json:"additional_days"`
}

// RenewLoan handles renewing a loan
// @Summary Renew a loan
// @Description Extend an active, in-good-standing loan; omitting additional_days uses the default period
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param body body RenewRequest false "Renewal data"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /loans/{id}/renew [post]
func (h *LoanHandler) RenewLoan(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	var req RenewRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	loan, err := h.loanService.Renew(c.Context(), uint(id), &services.RenewInput{
		AdditionalDays: req.AdditionalDays,
	})
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "Loan renewed successfully", fiber.Map{
		"loan": loan,
	})
}

// MarkLost handles reporting a loan as lost (Admin only)
// @Summary Mark loan as lost
// @Description Terminally close a loan whose copy will not come back; the copy is not returned to inventory (Admin only)
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /loans/{id}/lost [post]
func (h *LoanHandler) MarkLost(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, err := h.loanService.MarkLost(c.Context(), uint(id))
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "Loan marked as lost", fiber.Map{
		"loan": loan,
	})
}

// PayFine handles settling a loan's fine (Admin only)
// @Summary Pay fine
// @Description Settle the fine on a returned loan (Admin only)
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /loans/{id}/fine/pay [post]
func (h *LoanHandler) PayFine(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, err := h.loanService.PayFine(c.Context(), uint(id))
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "Fine paid successfully", fiber.Map{
		"loan": loan,
	})
}
