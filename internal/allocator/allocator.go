// Package allocator implements the stock-sale consistency protocol:
// resolving which stock lot a sale request targets, validating that
// the lot still has a free seat, and performing the seat increment and
// ledger append as one atomic unit. Correctness under concurrent
// submissions is pushed entirely into the database: the target row is
// locked with SELECT ... FOR UPDATE for the duration of the
// transaction, so two requests charging the same lot serialize on
// that row and the second one re-reads the updated sold count before
// validating. No in-process mutex is involved.
package allocator

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jainya01/CRM-sub000/internal/model"
	"github.com/jainya01/CRM-sub000/internal/repository"
)

// seatsPerSale is the fixed amount a sale consumes. The request
// carries no quantity field; one sale is always one seat.
const seatsPerSale = 1

// SaleRequest is the input contract for Allocate. Pax carries the
// passenger name (see model.Sale). StockID, Sector, Fare and PNR are
// optional; the rest are required and must be non-empty after
// trimming.
type SaleRequest struct {
	StockID *uint64
	Sector  string
	Pax     string
	DOT     string
	DOTB    string
	Airline string
	Agent   string
	Fare    string
	PNR     string
}

// ResolutionKind tags the three ways a sale request can attach to
// inventory. The precedence is fixed: an explicit stock id always
// wins, sector matching is the fallback, and a sale that resolves
// neither is recorded unlinked with no inventory mutation.
type ResolutionKind int

const (
	// Unlinked means no lot was resolved; the sale is recorded with
	// a NULL stock_id and no seat is consumed.
	Unlinked ResolutionKind = iota
	// ResolvedByID means the request named a lot explicitly.
	ResolvedByID
	// ResolvedBySector means the first lot whose sector label equals
	// the request's sector exactly was picked.
	ResolvedBySector
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolvedByID:
		return "by_id"
	case ResolvedBySector:
		return "by_sector"
	default:
		return "unlinked"
	}
}

// Resolution is the outcome of target resolution. Lot is nil exactly
// when Kind is Unlinked.
type Resolution struct {
	Kind ResolutionKind
	Lot  *model.StockLot
}

// Result reports a successful allocation.
type Result struct {
	SaleID     uint64
	Resolution Resolution
}

// Allocator coordinates the inventory store and the sale ledger. It
// holds no state of its own beyond the repositories; every Allocate
// call opens its own transaction.
type Allocator struct {
	Stock *repository.StockRepo
	Sales *repository.SaleRepo
}

// New constructs an Allocator and panics if a repository is missing.
func New(stock *repository.StockRepo, sales *repository.SaleRepo) *Allocator {
	if stock == nil || sales == nil {
		panic("nil repository passed to allocator.New")
	}
	return &Allocator{Stock: stock, Sales: sales}
}

// validate checks the required fields before any storage access.
func (req *SaleRequest) validate() error {
	required := []struct{ name, value string }{
		{"pax", req.Pax},
		{"dot", req.DOT},
		{"dotb", req.DOTB},
		{"airline", req.Airline},
		{"agent", req.Agent},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.name}
		}
	}
	return nil
}

// resolve determines the allocation target inside tx, locking the row
// it picks. The explicit-id path does not fall back to sector
// matching: a named lot that does not exist is a hard failure. The
// sector path degrades to Unlinked when nothing matches.
func (a *Allocator) resolve(ctx context.Context, tx *sql.Tx, req SaleRequest) (Resolution, error) {
	if req.StockID != nil {
		lot, err := a.Stock.GetByIDForUpdateTx(ctx, tx, *req.StockID)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Kind: ResolvedByID, Lot: lot}, nil
	}
	if req.Sector != "" {
		lot, err := a.Stock.FirstBySectorForUpdateTx(ctx, tx, req.Sector)
		if errors.Is(err, repository.ErrStockNotFound) {
			return Resolution{Kind: Unlinked}, nil
		}
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Kind: ResolvedBySector, Lot: lot}, nil
	}
	return Resolution{Kind: Unlinked}, nil
}

// backfill copies lot defaults into blank request fields. Fields the
// request filled in always win over the lot's values.
func backfill(s *model.Sale, lot *model.StockLot) {
	if strings.TrimSpace(s.Sector) == "" {
		s.Sector = lot.Sector
	}
	if strings.TrimSpace(s.DOT) == "" {
		s.DOT = lot.DOT
	}
	if strings.TrimSpace(s.Airline) == "" {
		s.Airline = lot.Airline
	}
	if strings.TrimSpace(s.Fare) == "" {
		s.Fare = lot.Fare
	}
	if strings.TrimSpace(s.PNR) == "" {
		s.PNR = lot.PNR
	}
}

// Allocate fulfils one sale request. On success the ledger row id and
// the resolution that was charged are returned; on failure one of the
// taxonomy errors is returned and no partial effect remains.
func (a *Allocator) Allocate(ctx context.Context, req SaleRequest) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	tx, err := a.Stock.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, &StorageError{Op: "begin", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := a.resolve(ctx, tx, req)
	if err != nil {
		if errors.Is(err, repository.ErrStockNotFound) {
			return nil, err
		}
		return nil, &StorageError{Op: "resolve", Err: err}
	}

	sale := &model.Sale{
		Sector:  req.Sector,
		Pax:     strings.TrimSpace(req.Pax),
		DOT:     req.DOT,
		DOTB:    req.DOTB,
		Airline: req.Airline,
		Agent:   req.Agent,
		Fare:    req.Fare,
		PNR:     req.PNR,
	}

	if res.Kind != Unlinked {
		lot := res.Lot
		if lot.Sold+seatsPerSale > lot.Pax {
			return nil, &CapacityError{StockID: lot.ID, Remaining: lot.Remaining()}
		}
		backfill(sale, lot)
		n, err := a.Stock.IncrementSoldTx(ctx, tx, lot.ID, seatsPerSale)
		if err != nil {
			return nil, &StorageError{Op: "increment", Err: err}
		}
		if n == 0 {
			// The guarded UPDATE refused the increment even though we
			// hold the row lock and just validated; only a concurrent
			// edit shrinking pax inside our lock window can cause it.
			return nil, &CapacityError{StockID: lot.ID, Remaining: lot.Remaining()}
		}
		id := lot.ID
		sale.StockID = &id
	}

	saleID, err := a.Sales.InsertTx(ctx, tx, sale)
	if err != nil {
		return nil, &StorageError{Op: "insert", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return nil, &StorageError{Op: "commit", Err: err}
	}
	committed = true
	return &Result{SaleID: saleID, Resolution: res}, nil
}
