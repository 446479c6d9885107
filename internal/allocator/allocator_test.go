package allocator

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jainya01/CRM-sub000/internal/repository"
)

const (
	lockByIDQuery     = `SELECT id, sector, pax, sold, dot, fare, airline, pnr, created_at, updated_at FROM stock WHERE id = ? FOR UPDATE`
	lockBySectorQuery = `SELECT id, sector, pax, sold, dot, fare, airline, pnr, created_at, updated_at FROM stock WHERE sector = ? ORDER BY id LIMIT 1 FOR UPDATE`
	incrementQuery    = `UPDATE stock SET sold = sold + ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND sold + ? <= pax`
	insertSaleQuery   = `INSERT INTO sales (stock_id, sector, pax, dot, dotb, airline, agent, fare, pnr) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
)

func newTestAllocator(t *testing.T) (*Allocator, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(repository.NewStockRepo(db), repository.NewSaleRepo(db)), mock
}

func lotRows(id uint64, sector string, pax, sold int, dot, fare, airline, pnr string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "sector", "pax", "sold", "dot", "fare", "airline", "pnr", "created_at", "updated_at",
	}).AddRow(id, sector, pax, sold, dot, fare, airline, pnr, now, now)
}

func validRequest() SaleRequest {
	return SaleRequest{
		Pax:     "R. Sharma",
		DOT:     "01 Sep 2026",
		DOTB:    "29 Aug 2026",
		Airline: "IndiGo",
		Agent:   "frontdesk",
	}
}

func uptr(v uint64) *uint64 { return &v }

func TestAllocateByID(t *testing.T) {
	a, mock := newTestAllocator(t)

	req := validRequest()
	req.StockID = uptr(7)
	req.Sector = "DEL-BOM"
	req.Fare = "4500"
	req.PNR = "XYZ111"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockByIDQuery)).
		WithArgs(7).
		WillReturnRows(lotRows(7, "DEL-BOM", 10, 3, "01 Sep 2026", "4000", "IndiGo", "ABC999"))
	mock.ExpectExec(regexp.QuoteMeta(incrementQuery)).
		WithArgs(1, 7, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertSaleQuery)).
		WithArgs(7, "DEL-BOM", "R. Sharma", "01 Sep 2026", "29 Aug 2026", "IndiGo", "frontdesk", "4500", "XYZ111").
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectCommit()

	res, err := a.Allocate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, uint64(41), res.SaleID)
	assert.Equal(t, ResolvedByID, res.Resolution.Kind)
	require.NotNil(t, res.Resolution.Lot)
	assert.Equal(t, uint64(7), res.Resolution.Lot.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A request carrying both a stock id and a sector charges the lot the
// id names; the mock proves the sector lookup never runs because only
// the id query is expected.
func TestAllocateIDTakesPrecedenceOverSector(t *testing.T) {
	a, mock := newTestAllocator(t)

	req := validRequest()
	req.StockID = uptr(2)
	req.Sector = "BOM-GOI" // would match a different lot

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockByIDQuery)).
		WithArgs(2).
		WillReturnRows(lotRows(2, "DEL-BOM", 5, 0, "", "", "", ""))
	mock.ExpectExec(regexp.QuoteMeta(incrementQuery)).
		WithArgs(1, 2, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertSaleQuery)).
		WithArgs(2, "BOM-GOI", "R. Sharma", "01 Sep 2026", "29 Aug 2026", "IndiGo", "frontdesk", "", "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	res, err := a.Allocate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, ResolvedByID, res.Resolution.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocateBySectorFallback(t *testing.T) {
	a, mock := newTestAllocator(t)

	req := validRequest()
	req.Sector = "DEL-BOM"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockBySectorQuery)).
		WithArgs("DEL-BOM").
		WillReturnRows(lotRows(3, "DEL-BOM", 4, 1, "02 Sep 2026", "3800", "Vistara", "PNR333"))
	mock.ExpectExec(regexp.QuoteMeta(incrementQuery)).
		WithArgs(1, 3, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertSaleQuery)).
		// fare and pnr were blank on the request and get backfilled
		// from the lot; dot was present and wins over the lot's value.
		WithArgs(3, "DEL-BOM", "R. Sharma", "01 Sep 2026", "29 Aug 2026", "IndiGo", "frontdesk", "3800", "PNR333").
		WillReturnResult(sqlmock.NewResult(55, 1))
	mock.ExpectCommit()

	res, err := a.Allocate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, uint64(55), res.SaleID)
	assert.Equal(t, ResolvedBySector, res.Resolution.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocateUnlinkedWhenSectorMatchesNothing(t *testing.T) {
	a, mock := newTestAllocator(t)

	req := validRequest()
	req.Sector = "XXX"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockBySectorQuery)).
		WithArgs("XXX").
		WillReturnRows(sqlmock.NewRows([]string{"id"})) // no match
	mock.ExpectExec(regexp.QuoteMeta(insertSaleQuery)).
		WithArgs(nil, "XXX", "R. Sharma", "01 Sep 2026", "29 Aug 2026", "IndiGo", "frontdesk", "", "").
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectCommit()

	res, err := a.Allocate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, Unlinked, res.Resolution.Kind)
	assert.Nil(t, res.Resolution.Lot)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Sector labels are matched byte for byte: the request's casing is
// sent to the database unchanged (the sector column carries the binary
// collation, so 'del-bom' equals no 'DEL-BOM' lot) and the sale is
// recorded unlinked under the label exactly as submitted.
func TestAllocateSectorMatchIsCaseSensitive(t *testing.T) {
	a, mock := newTestAllocator(t)

	req := validRequest()
	req.Sector = "del-bom"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockBySectorQuery)).
		WithArgs("del-bom").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta(insertSaleQuery)).
		WithArgs(nil, "del-bom", "R. Sharma", "01 Sep 2026", "29 Aug 2026", "IndiGo", "frontdesk", "", "").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	res, err := a.Allocate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, Unlinked, res.Resolution.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocateUnlinkedWithoutSector(t *testing.T) {
	a, mock := newTestAllocator(t)

	req := validRequest() // no stock id, no sector

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(insertSaleQuery)).
		WithArgs(nil, "", "R. Sharma", "01 Sep 2026", "29 Aug 2026", "IndiGo", "frontdesk", "", "").
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectCommit()

	res, err := a.Allocate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, Unlinked, res.Resolution.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocateExplicitIDNotFound(t *testing.T) {
	a, mock := newTestAllocator(t)

	req := validRequest()
	req.StockID = uptr(999)
	req.Sector = "DEL-BOM" // must NOT fall back to sector matching

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockByIDQuery)).
		WithArgs(999).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := a.Allocate(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrStockNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocateCapacityExceeded(t *testing.T) {
	a, mock := newTestAllocator(t)

	req := validRequest()
	req.StockID = uptr(1)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockByIDQuery)).
		WithArgs(1).
		WillReturnRows(lotRows(1, "DEL-BOM", 1, 1, "", "", "", "")) // full
	mock.ExpectRollback()

	_, err := a.Allocate(context.Background(), req)
	var cerr *CapacityError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 0, cerr.Remaining)
	assert.Equal(t, uint64(1), cerr.StockID)
	// No increment, no insert: the lot is left untouched.
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Two requests against a one-seat lot, run back to back the way the
// row lock serializes them: the second re-reads sold = 1 and must be
// refused with remaining 0.
func TestAllocateSerializedSecondRequestRefused(t *testing.T) {
	a, mock := newTestAllocator(t)

	first := validRequest()
	first.StockID = uptr(1)
	second := validRequest()
	second.StockID = uptr(1)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockByIDQuery)).
		WithArgs(1).
		WillReturnRows(lotRows(1, "DEL-BOM", 1, 0, "", "", "", ""))
	mock.ExpectExec(regexp.QuoteMeta(incrementQuery)).
		WithArgs(1, 1, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertSaleQuery)).
		WithArgs(1, "DEL-BOM", "R. Sharma", "01 Sep 2026", "29 Aug 2026", "IndiGo", "frontdesk", "", "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	// Second transaction observes the committed increment.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockByIDQuery)).
		WithArgs(1).
		WillReturnRows(lotRows(1, "DEL-BOM", 1, 1, "", "", "", ""))
	mock.ExpectRollback()

	res, err := a.Allocate(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.SaleID)

	_, err = a.Allocate(context.Background(), second)
	var cerr *CapacityError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 0, cerr.Remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocateValidation(t *testing.T) {
	a, mock := newTestAllocator(t)

	tests := []struct {
		name  string
		mut   func(*SaleRequest)
		field string
	}{
		{"missing pax", func(r *SaleRequest) { r.Pax = "  " }, "pax"},
		{"missing dot", func(r *SaleRequest) { r.DOT = "" }, "dot"},
		{"missing dotb", func(r *SaleRequest) { r.DOTB = "" }, "dotb"},
		{"missing airline", func(r *SaleRequest) { r.Airline = "" }, "airline"},
		{"missing agent", func(r *SaleRequest) { r.Agent = "" }, "agent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mut(&req)
			_, err := a.Allocate(context.Background(), req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	// No storage access was attempted for any of the cases above.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocateRollsBackWhenInsertFails(t *testing.T) {
	a, mock := newTestAllocator(t)

	req := validRequest()
	req.StockID = uptr(4)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockByIDQuery)).
		WithArgs(4).
		WillReturnRows(lotRows(4, "DEL-BOM", 10, 0, "", "", "", ""))
	mock.ExpectExec(regexp.QuoteMeta(incrementQuery)).
		WithArgs(1, 4, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertSaleQuery)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := a.Allocate(context.Background(), req)
	var serr *StorageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "insert", serr.Op)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocateGuardedIncrementRefusal(t *testing.T) {
	a, mock := newTestAllocator(t)

	req := validRequest()
	req.StockID = uptr(4)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockByIDQuery)).
		WithArgs(4).
		WillReturnRows(lotRows(4, "DEL-BOM", 10, 9, "", "", "", ""))
	mock.ExpectExec(regexp.QuoteMeta(incrementQuery)).
		WithArgs(1, 4, 1).
		WillReturnResult(sqlmock.NewResult(0, 0)) // guard refused
	mock.ExpectRollback()

	_, err := a.Allocate(context.Background(), req)
	var cerr *CapacityError
	require.ErrorAs(t, err, &cerr)
	assert.NoError(t, mock.ExpectationsWereMet())
}
