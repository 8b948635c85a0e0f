package handlers

import (
	"strconv"

	"librohub/internal/core/services"
	"librohub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// BookHandler handles catalog endpoints
type BookHandler struct {
	bookService *services.BookService
	loanService *services.LoanService
}

// NewBookHandler creates a new book handler
func NewBookHandler(bookService *services.BookService, loanService *services.LoanService) *BookHandler {
	return &BookHandler{
		bookService: bookService,
		loanService: loanService,
	}
}

// CreateBookRequest represents create book request body
type CreateBookRequest struct {
	ISBN        string `json:"isbn"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Publisher   string `json:"publisher"`
	Genre       string `json:"genre"`
	Year        int    `json:"year"`
	Description string `json:"description"`
	Location    string `json:"location"`
	TotalCopies int    `json:"total_copies"`
}

// CreateBook handles adding a title to the catalog (Admin only)
// @Summary Create book
// @Description Add a new title to the catalog (Admin only)
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateBookRequest true "Book data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /books [post]
func (h *BookHandler) CreateBook(c *fiber.Ctx) error {
	var req CreateBookRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.ISBN == "" {
		return response.BadRequest(c, "ISBN is required")
	}
	if req.Title == "" {
		return response.BadRequest(c, "Title is required")
	}
	if req.Author == "" {
		return response.BadRequest(c, "Author is required")
	}
	if req.TotalCopies < 1 {
		return response.BadRequest(c, "Total copies must be at least 1")
	}

	input := &services.CreateBookInput{
		ISBN:        req.ISBN,
		Title:       req.Title,
		Author:      req.Author,
		Publisher:   req.Publisher,
		Genre:       req.Genre,
		Year:        req.Year,
		Description: req.Description,
		Location:    req.Location,
		TotalCopies: req.TotalCopies,
	}

	book, err := h.bookService.Create(c.Context(), input)
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Created(c, "Book created successfully", fiber.Map{
		"book": book,
	})
}

// ListBooks handles listing the catalog
// @Summary List books
// @Description Get a paginated catalog listing with optional filters
// @Tags Books
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(10)
// @Param genre query string false "Filter by genre"
// @Param author query string false "Filter by author"
// @Param available query bool false "Only books with available copies"
// @Success 200 {object} response.Response
// @Router /books [get]
func (h *BookHandler) ListBooks(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	input := &services.ListBooksInput{
		Page:          page,
		Limit:         limit,
		Genre:         c.Query("genre"),
		Author:        c.Query("author"),
		AvailableOnly: c.QueryBool("available", false),
	}

	result, err := h.bookService.List(c.Context(), input)
	if err != nil {
		return response.InternalServerError(c, "Failed to list books")
	}

	return response.Success(c, "Books retrieved successfully", result)
}

// GetBook handles getting a book by ID
// @Summary Get book by ID
// @Description Get a catalog entry with its derived status
// @Tags Books
// @Accept json
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id} [get]
func (h *BookHandler) GetBook(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	book, err := h.bookService.GetByID(c.Context(), uint(id))
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "Book retrieved successfully", fiber.Map{
		"book": book,
	})
}

// GetAvailability handles the availability view
// @Summary Get book availability
// @Description Get the live copy counters and status for a book
// @Tags Books
// @Accept json
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id}/availability [get]
func (h *BookHandler) GetAvailability(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	availability, err := h.loanService.GetAvailability(c.Context(), uint(id))
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "Availability retrieved successfully", availability)
}

// UpdateBookRequest represents update book request body
type UpdateBookRequest struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Publisher   *string `json:"publisher"`
	Genre       *string `json:"genre"`
	Year        *int    `json:"year"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
}

// UpdateBook handles updating catalog metadata (Admin only)
// @Summary Update book
// @Description Update catalog metadata; copy counters are managed separately (Admin only)
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param body body UpdateBookRequest true "Update data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id} [put]
func (h *BookHandler) UpdateBook(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	var req UpdateBookRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	input := &services.UpdateBookInput{
		Title:       req.Title,
		Author:      req.Author,
		Publisher:   req.Publisher,
		Genre:       req.Genre,
		Year:        req.Year,
		Description: req.Description,
		Location:    req.Location,
	}

	book, err := h.bookService.Update(c.Context(), uint(id), input)
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "Book updated successfully", fiber.Map{
		"book": book,
	})
}

// AdjustCopiesRequest represents adjust copies request body
type AdjustCopiesRequest struct {
	Delta int `json:"delta"`
}

// AdjustCopies handles changing a book's copy count (Admin only)
// @Summary Adjust book copies
// @Description Change the total copy count by delta, e.g. after acquiring copies or writing off a lost one (Admin only)
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param body body AdjustCopiesRequest true "Adjustment"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /books/{id}/copies [patch]
func (h *BookHandler) AdjustCopies(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	var req AdjustCopiesRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Delta == 0 {
		return response.BadRequest(c, "Delta must be non-zero")
	}

	availability, err := h.bookService.AdjustCopies(c.Context(), uint(id), req.Delta)
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "Copies adjusted successfully", availability)
}

// WithdrawBook handles pulling a title from circulation (Admin only)
// @Summary Withdraw book
// @Description Pull a title from circulation; blocked while loans are active (Admin only)
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /books/{id}/withdraw [post]
func (h *BookHandler) WithdrawBook(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	book, err := h.bookService.Withdraw(c.Context(), uint(id))
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "Book withdrawn successfully", fiber.Map{
		"book": book,
	})
}

// ReinstateBook handles putting a withdrawn title back (Admin only)
// @Summary Reinstate book
// @Description Put a withdrawn title back into circulation (Admin only)
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id}/reinstate [post]
func (h *BookHandler) ReinstateBook(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	book, err := h.bookService.Reinstate(c.Context(), uint(id))
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "Book reinstated successfully", fiber.Map{
		"book": book,
	})
}

// DeleteBook handles removing a catalog entry (Admin only)
// @Summary Delete book
// @Description Soft delete a catalog entry; blocked while loans are active (Admin only)
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /books/{id} [delete]
func (h *BookHandler) DeleteBook(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	if err := h.bookService.Delete(c.Context(), uint(id)); err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "Book deleted successfully", nil)
}
