package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jainya01/CRM-sub000/internal/allocator"
	"github.com/jainya01/CRM-sub000/internal/model"
	"github.com/jainya01/CRM-sub000/internal/queue"
	"github.com/jainya01/CRM-sub000/internal/repository"
	queue_publisher "github.com/jainya01/CRM-sub000/internal/service"
	"github.com/jainya01/CRM-sub000/internal/utils"
)

// SaleHandler serves the sale ledger endpoints. Creation goes through
// the allocator so the seat decrement and the ledger append happen in
// one transaction; list/get/update/delete are plain CRUD that never
// touch a lot's sold counter.
type SaleHandler struct {
	Allocator *allocator.Allocator
	Sales     *repository.SaleRepo

	// PublishEvents toggles best-effort broker notification after a
	// committed sale. Disabled in tests.
	PublishEvents bool
}

// NewSaleHandler constructs a SaleHandler and panics if a dependency
// is missing.
func NewSaleHandler(alloc *allocator.Allocator, sales *repository.SaleRepo, publish bool) *SaleHandler {
	if alloc == nil || sales == nil {
		panic("nil dependency passed to NewSaleHandler")
	}
	return &SaleHandler{Allocator: alloc, Sales: sales, PublishEvents: publish}
}

// stockID carries the optional lot reference of a sale submission.
// The admin console sends whatever the form field held, so a JSON
// number, a numeric string and a blank string must all bind.
type stockID string

func (s *stockID) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = stockID(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("stock_id must be a number or a string")
	}
	*s = stockID(n.String())
	return nil
}

// saleReq mirrors the sale submission body.
type saleReq struct {
	StockID stockID `json:"stock_id"`
	Sector  string  `json:"sector"`
	Pax     string  `json:"pax"` // passenger name
	DOT     string  `json:"dot"`
	DOTB    string  `json:"dotb"`
	Airline string  `json:"airline"`
	Agent   string  `json:"agent"`
	Fare    string  `json:"fare"`
	PNR     string  `json:"pnr"`
}

// parseStockID interprets the optional stock_id field. Absent or
// blank means no explicit lot; anything present must parse to a
// positive integer.
func parseStockID(raw stockID) (*uint64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("stock_id must be a positive integer")
	}
	return &id, nil
}

// Create handles POST /v1/sales. The response shape is the contract
// the admin console expects: {success, message, insertedId} on
// success and {success:false, message} on failure.
func (h *SaleHandler) Create(c echo.Context) error {
	var req saleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request body"})
	}
	stockID, err := parseStockID(req.StockID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	}

	areq := allocator.SaleRequest{
		StockID: stockID,
		Sector:  req.Sector,
		Pax:     req.Pax,
		DOT:     utils.NormalizeDate(req.DOT),
		DOTB:    utils.NormalizeDate(req.DOTB),
		Airline: req.Airline,
		Agent:   req.Agent,
		Fare:    req.Fare,
		PNR:     req.PNR,
	}

	res, err := h.Allocator.Allocate(c.Request().Context(), areq)
	if err != nil {
		var verr *allocator.ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": verr.Error()})
		}
		if errors.Is(err, repository.ErrStockNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "stock not found"})
		}
		var cerr *allocator.CapacityError
		if errors.As(err, &cerr) {
			return c.JSON(http.StatusConflict, echo.Map{
				"success": false,
				"message": fmt.Sprintf("not enough seats in stock (remaining: %d)", cerr.Remaining),
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to record sale"})
	}

	if h.PublishEvents {
		go h.publishRecorded(res, areq)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success":    true,
		"message":    "sale recorded",
		"insertedId": res.SaleID,
	})
}

// publishRecorded sends the sale.recorded event on a detached context
// so a slow broker cannot hold up the HTTP response. Failures are
// logged inside the publisher and dropped here.
func (h *SaleHandler) publishRecorded(res *allocator.Result, req allocator.SaleRequest) {
	ev := queue.SaleRecordedEvent{
		SaleID:     res.SaleID,
		Resolution: res.Resolution.Kind.String(),
		Sector:     req.Sector,
		Passenger:  strings.TrimSpace(req.Pax),
		Airline:    req.Airline,
		Agent:      req.Agent,
		DOT:        req.DOT,
		DOTB:       req.DOTB,
		Fare:       req.Fare,
		PNR:        req.PNR,
		RecordedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if lot := res.Resolution.Lot; lot != nil {
		ev.StockID = lot.ID
		// Mirror the backfill the allocator applied to the ledger row.
		if strings.TrimSpace(ev.Sector) == "" {
			ev.Sector = lot.Sector
		}
		if strings.TrimSpace(ev.Airline) == "" {
			ev.Airline = lot.Airline
		}
		if strings.TrimSpace(ev.DOT) == "" {
			ev.DOT = lot.DOT
		}
		if strings.TrimSpace(ev.Fare) == "" {
			ev.Fare = lot.Fare
		}
		if strings.TrimSpace(ev.PNR) == "" {
			ev.PNR = lot.PNR
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := queue_publisher.PublishSaleRecorded(ctx, ev); err != nil {
		log.Printf("sale %d recorded but event publish failed: %v", res.SaleID, err)
	}
}

// List handles GET /v1/sales with page/limit query parameters.
func (h *SaleHandler) List(c echo.Context) error {
	page, limit, offset := pageParams(c)
	sales, total, err := h.Sales.List(c.Request().Context(), offset, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list sales failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":  sales,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// Get handles GET /v1/sales/:id.
func (h *SaleHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sale id"})
	}
	s, err := h.Sales.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrSaleNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "sale not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, s)
}

// Update handles PUT /v1/sales/:id. The stock link and the seat the
// sale consumed stay as they are; only descriptive fields change.
func (h *SaleHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sale id"})
	}
	var req saleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Pax) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "pax is required"})
	}
	s := model.Sale{
		ID:      id,
		Sector:  req.Sector,
		Pax:     strings.TrimSpace(req.Pax),
		DOT:     utils.NormalizeDate(req.DOT),
		DOTB:    utils.NormalizeDate(req.DOTB),
		Airline: req.Airline,
		Agent:   req.Agent,
		Fare:    req.Fare,
		PNR:     req.PNR,
	}
	if err := h.Sales.Update(c.Request().Context(), &s); err != nil {
		if errors.Is(err, repository.ErrSaleNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "sale not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, s)
}

// Delete handles DELETE /v1/sales/:id. The linked lot's sold counter
// is left as is; seat corrections go through the stock endpoints.
func (h *SaleHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sale id"})
	}
	if err := h.Sales.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrSaleNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "sale not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
