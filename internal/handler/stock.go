package handler

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jainya01/CRM-sub000/internal/model"
	"github.com/jainya01/CRM-sub000/internal/repository"
	"github.com/jainya01/CRM-sub000/internal/utils"
)

// StockHandler serves the inventory screens of the admin console:
// CRUD on stock lots, the paginated list and the spreadsheet import.
// Seat consumption is not reachable from here; only the allocator
// (sale handler) mutates sold.
type StockHandler struct {
	Stock *repository.StockRepo
	Sales *repository.SaleRepo
}

// NewStockHandler constructs a StockHandler and panics if a
// repository is missing.
func NewStockHandler(stock *repository.StockRepo, sales *repository.SaleRepo) *StockHandler {
	if stock == nil || sales == nil {
		panic("nil repository passed to NewStockHandler")
	}
	return &StockHandler{Stock: stock, Sales: sales}
}

type stockReq struct {
	Sector  string `json:"sector"`
	Pax     int    `json:"pax"`
	DOT     string `json:"dot"`
	Fare    string `json:"fare"`
	Airline string `json:"airline"`
	PNR     string `json:"pnr"`
}

// Create handles POST /v1/stock.
func (h *StockHandler) Create(c echo.Context) error {
	var req stockReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Pax <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "pax must be a positive seat count"})
	}
	lot := model.StockLot{
		Sector:  req.Sector,
		Pax:     req.Pax,
		DOT:     utils.NormalizeDate(req.DOT),
		Fare:    req.Fare,
		Airline: req.Airline,
		PNR:     req.PNR,
	}
	if err := h.Stock.Create(c.Request().Context(), &lot); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create stock failed"})
	}
	return c.JSON(http.StatusCreated, lot)
}

// List handles GET /v1/stock with page/limit query parameters.
func (h *StockHandler) List(c echo.Context) error {
	page, limit, offset := pageParams(c)
	lots, total, err := h.Stock.List(c.Request().Context(), offset, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list stock failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":  lots,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// Get handles GET /v1/stock/:id, returning the lot together with the
// sales recorded against it.
func (h *StockHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid stock id"})
	}
	ctx := c.Request().Context()
	lot, err := h.Stock.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrStockNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "stock not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	sales, err := h.Sales.ListByStock(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"stock": lot, "sales": sales})
}

// Update handles PUT /v1/stock/:id. Sold is never rewritten here;
// shrinking pax below sold is rejected so the invariant stays intact.
func (h *StockHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid stock id"})
	}
	var req stockReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Pax <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "pax must be a positive seat count"})
	}
	ctx := c.Request().Context()
	current, err := h.Stock.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrStockNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "stock not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	if req.Pax < current.Sold {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "pax cannot be lower than seats already sold",
			"sold":  current.Sold,
		})
	}
	lot := model.StockLot{
		ID:      id,
		Sector:  req.Sector,
		Pax:     req.Pax,
		DOT:     utils.NormalizeDate(req.DOT),
		Fare:    req.Fare,
		Airline: req.Airline,
		PNR:     req.PNR,
	}
	if err := h.Stock.Update(ctx, &lot); err != nil {
		if errors.Is(err, repository.ErrStockNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "stock not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	lot.Sold = current.Sold
	return c.JSON(http.StatusOK, lot)
}

// Delete handles DELETE /v1/stock/:id. Referencing sales keep their
// rows but lose the link (stock_id nulled in the same transaction).
func (h *StockHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid stock id"})
	}
	if err := h.Stock.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrStockNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "stock not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Sectors handles GET /v1/stock/sectors for the sale form's picker.
func (h *StockHandler) Sectors(c echo.Context) error {
	sectors, err := h.Stock.SectorList(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list sectors failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"sectors": sectors})
}

// importColumns is the expected CSV header order for bulk import:
// sector, pax, dot, fare, airline, pnr. A header row is detected and
// skipped when the pax column is not numeric.
const importColumnCount = 6

// Import handles POST /v1/stock/import with a multipart "file" field
// containing CSV rows exported from the agency's spreadsheets. Rows
// are validated first and inserted in a single bulk statement; one
// bad row fails the whole upload so a partial import never happens.
func (h *StockHandler) Import(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file is required"})
	}
	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot open upload"})
	}
	defer func() { _ = src.Close() }()

	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1 // validated per row below

	lots := make([]model.StockLot, 0, 64)
	line := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed csv", "line": line + 1})
		}
		line++
		if len(rec) < importColumnCount {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "row has too few columns", "line": line})
		}
		pax, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			if line == 1 {
				continue // header row
			}
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "pax is not a number", "line": line})
		}
		if pax <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "pax must be positive", "line": line})
		}
		lots = append(lots, model.StockLot{
			Sector:  strings.TrimSpace(rec[0]),
			Pax:     pax,
			DOT:     utils.NormalizeDate(rec[2]),
			Fare:    strings.TrimSpace(rec[3]),
			Airline: strings.TrimSpace(rec[4]),
			PNR:     strings.TrimSpace(rec[5]),
		})
	}
	if len(lots) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no rows to import"})
	}
	if err := h.Stock.CreateBulk(c.Request().Context(), lots); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "import failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"imported": len(lots)})
}
