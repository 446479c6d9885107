package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jainya01/CRM-sub000/internal/model"
)

const saleColumns = `id, stock_id, sector, pax, dot, dotb, airline, agent, fare, pnr, created_at, updated_at`

// SaleRepo provides data access to the sales table, the ledger of
// individual seat consumptions.  Rows are appended by the allocator
// inside its transaction (InsertTx) and read or edited afterwards
// through the plain CRUD methods.  Edits and deletes never touch the
// linked lot's sold counter.
type SaleRepo struct {
	db *sql.DB
}

// NewSaleRepo returns a new SaleRepo bound to the given database.
func NewSaleRepo(db *sql.DB) *SaleRepo { return &SaleRepo{db: db} }

// InsertTx appends a ledger row within the scope of an existing
// transaction and returns the generated id.  StockID may be nil for
// sales recorded without an inventory link.  The caller must commit
// or roll back the transaction; the row only becomes visible together
// with the lot's sold increment.
func (r *SaleRepo) InsertTx(ctx context.Context, tx *sql.Tx, s *model.Sale) (uint64, error) {
	const q = `INSERT INTO sales (stock_id, sector, pax, dot, dotb, airline, agent, fare, pnr) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, s.StockID, s.Sector, s.Pax, s.DOT, s.DOTB, s.Airline, s.Agent, s.Fare, s.PNR)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.ID = uint64(id)
	return s.ID, nil
}

func scanSale(scan func(dest ...interface{}) error) (*model.Sale, error) {
	var s model.Sale
	var stockID sql.NullInt64
	err := scan(&s.ID, &stockID, &s.Sector, &s.Pax, &s.DOT, &s.DOTB,
		&s.Airline, &s.Agent, &s.Fare, &s.PNR, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSaleNotFound
	}
	if err != nil {
		return nil, err
	}
	if stockID.Valid {
		id := uint64(stockID.Int64)
		s.StockID = &id
	}
	return &s, nil
}

// GetByID returns a single sale or ErrSaleNotFound.
func (r *SaleRepo) GetByID(ctx context.Context, id uint64) (*model.Sale, error) {
	const q = `SELECT ` + saleColumns + ` FROM sales WHERE id = ?`
	row := r.db.QueryRowContext(ctx, q, id)
	return scanSale(row.Scan)
}

// List returns one page of sales ordered by id descending plus the
// total row count.  Offset and limit are assumed clamped by the
// handler.
func (r *SaleRepo) List(ctx context.Context, offset, limit int) ([]model.Sale, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales`).Scan(&total); err != nil {
		return nil, 0, err
	}
	const q = `SELECT ` + saleColumns + ` FROM sales ORDER BY id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	sales := make([]model.Sale, 0, limit)
	for rows.Next() {
		s, err := scanSale(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		sales = append(sales, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}

// ListByStock returns every sale linked to the given lot, newest
// first.  Used by the stock detail screen.
func (r *SaleRepo) ListByStock(ctx context.Context, stockID uint64) ([]model.Sale, error) {
	const q = `SELECT ` + saleColumns + ` FROM sales WHERE stock_id = ? ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, q, stockID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sales := make([]model.Sale, 0)
	for rows.Next() {
		s, err := scanSale(rows.Scan)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

// Update rewrites the editable fields of a sale.  The stock link and
// the linked lot's sold counter are deliberately left untouched: an
// edited sale keeps the seat it consumed.  Returns ErrSaleNotFound
// when the id matches no row.
func (r *SaleRepo) Update(ctx context.Context, s *model.Sale) error {
	const q = `UPDATE sales SET sector = ?, pax = ?, dot = ?, dotb = ?, airline = ?, agent = ?, fare = ?, pnr = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, s.Sector, s.Pax, s.DOT, s.DOTB, s.Airline, s.Agent, s.Fare, s.PNR, s.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM sales WHERE id = ?`, s.ID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrSaleNotFound
			}
			return err
		}
	}
	return nil
}

// Delete removes a sale.  The seat it consumed stays consumed; sold
// on the linked lot is not decremented.  Returns ErrSaleNotFound when
// the id matches no row.
func (r *SaleRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sales WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSaleNotFound
	}
	return nil
}
