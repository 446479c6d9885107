package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jainya01/CRM-sub000/internal/model"
)

// stockColumns is the select list shared by every stock query so scans
// stay in one shape.
const stockColumns = `id, sector, pax, sold, dot, fare, airline, pnr, created_at, updated_at`

// StockRepo provides data access to the stock table.  The lot rows it
// manages own the authoritative seat counts, so every mutation of the
// sold column goes through IncrementSoldTx inside a caller supplied
// transaction; plain CRUD never touches sold directly.
type StockRepo struct {
	db *sql.DB
}

// NewStockRepo returns a new StockRepo bound to the given database.
func NewStockRepo(db *sql.DB) *StockRepo { return &StockRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// that span this repository and SaleRepo.
func (r *StockRepo) DB() *sql.DB { return r.db }

func scanLot(row *sql.Row) (*model.StockLot, error) {
	var lot model.StockLot
	err := row.Scan(&lot.ID, &lot.Sector, &lot.Pax, &lot.Sold, &lot.DOT,
		&lot.Fare, &lot.Airline, &lot.PNR, &lot.CreatedAt, &lot.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStockNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

// GetByID returns a single lot without locking.  It is intended for
// read paths (detail views); the allocator must use the ForUpdate
// variants instead.
func (r *StockRepo) GetByID(ctx context.Context, id uint64) (*model.StockLot, error) {
	const q = `SELECT ` + stockColumns + ` FROM stock WHERE id = ?`
	return scanLot(r.db.QueryRowContext(ctx, q, id))
}

// GetByIDForUpdateTx loads the lot with the given id inside tx and
// takes a row lock on it.  Concurrent callers locking the same lot
// serialize here until the owning transaction commits or rolls back,
// at which point the waiter re-reads the updated sold value.  Returns
// ErrStockNotFound when no lot has that id.
func (r *StockRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.StockLot, error) {
	const q = `SELECT ` + stockColumns + ` FROM stock WHERE id = ? FOR UPDATE`
	return scanLot(tx.QueryRowContext(ctx, q, id))
}

// FirstBySectorForUpdateTx returns the first lot whose sector equals
// the given string exactly (case sensitive, no trimming) and locks it.
// The sector column carries the binary collation (see schema.sql), so
// the equality here is byte-wise; 'DEL-BOM' never matches 'del-bom'.
// "First" means lowest id, the table's natural order; when several
// lots share a sector label the pick is a heuristic and callers that
// need a specific lot must address it by id.  Returns ErrStockNotFound
// when no sector matches.
func (r *StockRepo) FirstBySectorForUpdateTx(ctx context.Context, tx *sql.Tx, sector string) (*model.StockLot, error) {
	const q = `SELECT ` + stockColumns + ` FROM stock WHERE sector = ? ORDER BY id LIMIT 1 FOR UPDATE`
	return scanLot(tx.QueryRowContext(ctx, q, sector))
}

// IncrementSoldTx raises the lot's sold counter by amount within tx
// and returns the number of affected rows.  The WHERE clause re-checks
// capacity so that even a caller that skipped validation cannot push
// sold past pax; in that case zero rows are affected.  The caller must
// hold the row lock from one of the ForUpdate lookups.
func (r *StockRepo) IncrementSoldTx(ctx context.Context, tx *sql.Tx, id uint64, amount int) (int64, error) {
	const q = `UPDATE stock SET sold = sold + ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND sold + ? <= pax`
	res, err := tx.ExecContext(ctx, q, amount, id, amount)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Create inserts a new lot and populates its generated id.  Sold
// starts at zero regardless of the passed value; seats are only ever
// consumed through the allocator.
func (r *StockRepo) Create(ctx context.Context, lot *model.StockLot) error {
	const q = `INSERT INTO stock (sector, pax, sold, dot, fare, airline, pnr) VALUES (?, ?, 0, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, lot.Sector, lot.Pax, lot.DOT, lot.Fare, lot.Airline, lot.PNR)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	lot.ID = uint64(id)
	lot.Sold = 0
	return nil
}

// CreateBulk inserts multiple lots in one statement.  It is used by
// the spreadsheet import endpoint.  Timestamps default in the DB and
// the ID fields of the passed lots are not populated.  Passing an
// empty slice has no effect and returns nil.
func (r *StockRepo) CreateBulk(ctx context.Context, lots []model.StockLot) error {
	if len(lots) == 0 {
		return nil
	}
	query := `INSERT INTO stock (sector, pax, sold, dot, fare, airline, pnr) VALUES `
	args := make([]interface{}, 0, len(lots)*6)
	for i, lot := range lots {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, 0, ?, ?, ?, ?)"
		args = append(args, lot.Sector, lot.Pax, lot.DOT, lot.Fare, lot.Airline, lot.PNR)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// List returns one page of lots ordered by id descending (newest
// first) plus the total row count for pagination.  Offset and limit
// are assumed to have been clamped by the handler.
func (r *StockRepo) List(ctx context.Context, offset, limit int) ([]model.StockLot, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stock`).Scan(&total); err != nil {
		return nil, 0, err
	}
	const q = `SELECT ` + stockColumns + ` FROM stock ORDER BY id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	lots := make([]model.StockLot, 0, limit)
	for rows.Next() {
		var lot model.StockLot
		if err := rows.Scan(&lot.ID, &lot.Sector, &lot.Pax, &lot.Sold, &lot.DOT,
			&lot.Fare, &lot.Airline, &lot.PNR, &lot.CreatedAt, &lot.UpdatedAt); err != nil {
			return nil, 0, err
		}
		lots = append(lots, lot)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return lots, total, nil
}

// Update rewrites the descriptive columns of a lot.  Sold is left
// alone: inventory edits never reconcile the consumed count (sales
// already written against the lot keep their seats).  Returns
// ErrStockNotFound when the id matches no row.
func (r *StockRepo) Update(ctx context.Context, lot *model.StockLot) error {
	const q = `UPDATE stock SET sector = ?, pax = ?, dot = ?, fare = ?, airline = ?, pnr = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, lot.Sector, lot.Pax, lot.DOT, lot.Fare, lot.Airline, lot.PNR, lot.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// RowsAffected is also 0 when the update was a no-op, so
		// double check existence before reporting not found.
		var exists int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM stock WHERE id = ?`, lot.ID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrStockNotFound
			}
			return err
		}
	}
	return nil
}

// Delete removes a lot and nulls out the stock_id of every sale that
// referenced it, in one transaction, so the ledger never carries a
// dangling reference.  Sales keep their copied fields and the seats
// they consumed are not returned to any pool.  Returns
// ErrStockNotFound when the id matches no row.
func (r *StockRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `UPDATE sales SET stock_id = NULL WHERE stock_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM stock WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStockNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Summary aggregates inventory and ledger counts for the dashboard.
type Summary struct {
	Lots      int `json:"lots"`
	Seats     int `json:"seats"`
	Sold      int `json:"sold"`
	Remaining int `json:"remaining"`
	Sales     int `json:"sales"`
}

// Summarize computes dashboard totals in a single round trip per
// table.  COALESCE keeps the sums defined on an empty stock table.
func (r *StockRepo) Summarize(ctx context.Context) (*Summary, error) {
	var s Summary
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(pax), 0), COALESCE(SUM(sold), 0) FROM stock`,
	).Scan(&s.Lots, &s.Seats, &s.Sold)
	if err != nil {
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales`).Scan(&s.Sales); err != nil {
		return nil, err
	}
	s.Remaining = s.Seats - s.Sold
	return &s, nil
}

// SectorList returns the distinct sector labels currently in stock,
// trimmed of exact duplicates only.  The admin console uses it to
// populate the sector picker on the sale form; matching remains exact
// so the labels are returned verbatim.
func (r *StockRepo) SectorList(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT sector FROM stock WHERE sector <> '' ORDER BY sector`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sectors := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		if strings.TrimSpace(s) == "" {
			continue
		}
		sectors = append(sectors, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sectors, nil
}
