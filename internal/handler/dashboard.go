package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jainya01/CRM-sub000/internal/repository"
)

// DashboardHandler serves the aggregate numbers shown on the admin
// console's landing page.
type DashboardHandler struct {
	Stock *repository.StockRepo
}

func NewDashboardHandler(stock *repository.StockRepo) *DashboardHandler {
	if stock == nil {
		panic("nil repository passed to NewDashboardHandler")
	}
	return &DashboardHandler{Stock: stock}
}

// Summary handles GET /v1/dashboard/summary.
func (h *DashboardHandler) Summary(c echo.Context) error {
	s, err := h.Stock.Summarize(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "summary failed"})
	}
	return c.JSON(http.StatusOK, s)
}
