package handlers

import (
	"librohub/internal/core/services"
	"librohub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ReportHandler handles reporting endpoints
type ReportHandler struct {
	reportService *services.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
	}
}

// GetLoanReport handles loan statistics (Admin only)
// @Summary Loan report
// @Description Get loan statistics: counts by state, overdue, fines (Admin only)
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /reports/loans [get]
func (h *ReportHandler) GetLoanReport(c *fiber.Ctx) error {
	report, err := h.reportService.GetLoanReport(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to build loan report")
	}

	return response.Success(c, "Loan report retrieved successfully", report)
}

// GetCatalogReport handles catalog statistics (Admin only)
// @Summary Catalog report
// @Description Get catalog statistics: titles, copies, genres (Admin only)
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /reports/catalog [get]
func (h *ReportHandler) GetCatalogReport(c *fiber.Ctx) error {
	report, err := h.reportService.GetCatalogReport(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to build catalog report")
	}

	return response.Success(c, "Catalog report retrieved successfully", report)
}
