package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jainya01/CRM-sub000/internal/allocator"
	"github.com/jainya01/CRM-sub000/internal/repository"
)

const (
	lockByIDQuery     = `SELECT id, sector, pax, sold, dot, fare, airline, pnr, created_at, updated_at FROM stock WHERE id = ? FOR UPDATE`
	lockBySectorQuery = `SELECT id, sector, pax, sold, dot, fare, airline, pnr, created_at, updated_at FROM stock WHERE sector = ? ORDER BY id LIMIT 1 FOR UPDATE`
	incrementQuery    = `UPDATE stock SET sold = sold + ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND sold + ? <= pax`
	insertSaleQuery   = `INSERT INTO sales (stock_id, sector, pax, dot, dotb, airline, agent, fare, pnr) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
)

func newSaleHandler(t *testing.T) (*SaleHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	stockRepo := repository.NewStockRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	return NewSaleHandler(allocator.New(stockRepo, saleRepo), saleRepo, false), mock
}

func postSale(t *testing.T, h *SaleHandler, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/sales", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h.Create(c))
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func stockRows(id uint64, sector string, pax, sold int) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "sector", "pax", "sold", "dot", "fare", "airline", "pnr", "created_at", "updated_at",
	}).AddRow(id, sector, pax, sold, "01 Sep 2026", "4500", "IndiGo", "ABC123", now, now)
}

func TestCreateSaleSuccess(t *testing.T) {
	h, mock := newSaleHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockByIDQuery)).
		WithArgs(1).
		WillReturnRows(stockRows(1, "DEL-BOM", 10, 2))
	mock.ExpectExec(regexp.QuoteMeta(incrementQuery)).
		WithArgs(1, 1, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertSaleQuery)).
		WillReturnResult(sqlmock.NewResult(77, 1))
	mock.ExpectCommit()

	rec, resp := postSale(t, h, `{
		"stock_id": 1,
		"pax": "A. Verma",
		"dot": "2026-09-01",
		"dotb": "2026-08-29",
		"airline": "IndiGo",
		"agent": "frontdesk"
	}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(77), resp["insertedId"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The admin console historically sent stock_id as a string; the
// handler accepts both forms.
func TestCreateSaleStringStockID(t *testing.T) {
	h, mock := newSaleHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockByIDQuery)).
		WithArgs(3).
		WillReturnRows(stockRows(3, "BOM-GOI", 5, 0))
	mock.ExpectExec(regexp.QuoteMeta(incrementQuery)).
		WithArgs(1, 3, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertSaleQuery)).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectCommit()

	rec, resp := postSale(t, h, `{
		"stock_id": "3",
		"pax": "A. Verma",
		"dot": "01 Sep 2026",
		"dotb": "29 Aug 2026",
		"airline": "IndiGo",
		"agent": "frontdesk"
	}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, resp["success"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A blank stock_id string means no explicit lot; the request binds and
// resolution falls through to sector matching.
func TestCreateSaleBlankStockIDFallsBackToSector(t *testing.T) {
	h, mock := newSaleHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockBySectorQuery)).
		WithArgs("DEL-BOM").
		WillReturnRows(stockRows(4, "DEL-BOM", 10, 2))
	mock.ExpectExec(regexp.QuoteMeta(incrementQuery)).
		WithArgs(1, 4, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertSaleQuery)).
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectCommit()

	rec, resp := postSale(t, h, `{
		"stock_id": "",
		"sector": "DEL-BOM",
		"pax": "A. Verma",
		"dot": "01 Sep 2026",
		"dotb": "29 Aug 2026",
		"airline": "IndiGo",
		"agent": "frontdesk"
	}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(21), resp["insertedId"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSaleCapacityExceeded(t *testing.T) {
	h, mock := newSaleHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockByIDQuery)).
		WithArgs(1).
		WillReturnRows(stockRows(1, "DEL-BOM", 1, 1))
	mock.ExpectRollback()

	rec, resp := postSale(t, h, `{
		"stock_id": 1,
		"pax": "A. Verma",
		"dot": "01 Sep 2026",
		"dotb": "29 Aug 2026",
		"airline": "IndiGo",
		"agent": "frontdesk"
	}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["message"], "remaining: 0")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSaleStockNotFound(t *testing.T) {
	h, mock := newSaleHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockByIDQuery)).
		WithArgs(999).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	rec, resp := postSale(t, h, `{
		"stock_id": 999,
		"pax": "A. Verma",
		"dot": "01 Sep 2026",
		"dotb": "29 Aug 2026",
		"airline": "IndiGo",
		"agent": "frontdesk"
	}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, resp["success"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSaleUnlinked(t *testing.T) {
	h, mock := newSaleHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockBySectorQuery)).
		WithArgs("XXX").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta(insertSaleQuery)).
		WithArgs(nil, "XXX", "A. Verma", "01 Sep 2026", "29 Aug 2026", "IndiGo", "frontdesk", "", "").
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectCommit()

	rec, resp := postSale(t, h, `{
		"sector": "XXX",
		"pax": "A. Verma",
		"dot": "01 Sep 2026",
		"dotb": "29 Aug 2026",
		"airline": "IndiGo",
		"agent": "frontdesk"
	}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(12), resp["insertedId"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSaleValidation(t *testing.T) {
	h, mock := newSaleHandler(t)

	// agent missing: rejected before any storage access.
	rec, resp := postSale(t, h, `{
		"pax": "A. Verma",
		"dot": "01 Sep 2026",
		"dotb": "29 Aug 2026",
		"airline": "IndiGo"
	}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["message"], "agent")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSaleRejectsBadStockID(t *testing.T) {
	h, mock := newSaleHandler(t)

	rec, resp := postSale(t, h, `{
		"stock_id": "0",
		"pax": "A. Verma",
		"dot": "01 Sep 2026",
		"dotb": "29 Aug 2026",
		"airline": "IndiGo",
		"agent": "frontdesk"
	}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, resp["success"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
