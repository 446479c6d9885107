package model

import "time"

// Sale records one passenger's seat consumption as stored in the
// `sales` table.  A sale may be linked to a StockLot through StockID,
// in which case the allocator incremented that lot's sold counter when
// the sale was created.  The link is a weak reference: the lot may be
// edited or deleted later without touching the sale.
//
// Note the Pax field: on a sale it carries the passenger name, not a
// seat count (back office convention inherited from the spreadsheets
// this system replaced).  A sale always consumes exactly one seat.
//
// Fields:
//  ID        - primary key identifier.
//  StockID   - nullable reference to stock.id.
//  Sector    - route label, copied from the request or the lot.
//  Pax       - passenger name.
//  DOT       - date of travel, display form.
//  DOTB      - date of booking, display form.
//  Airline   - airline, copied from the request or the lot.
//  Agent     - agent who recorded the sale.
//  Fare      - fare, copied from the request or the lot.
//  PNR       - record locator, copied from the request or the lot.
//  CreatedAt - timestamp of creation.
//  UpdatedAt - timestamp of last update.
type Sale struct {
	ID        uint64    `json:"id"`                 // sales.id
	StockID   *uint64   `json:"stock_id,omitempty"` // sales.stock_id (nullable)
	Sector    string    `json:"sector"`             // sales.sector
	Pax       string    `json:"pax"`                // sales.pax (passenger name)
	DOT       string    `json:"dot"`                // sales.dot
	DOTB      string    `json:"dotb"`               // sales.dotb
	Airline   string    `json:"airline"`            // sales.airline
	Agent     string    `json:"agent"`              // sales.agent
	Fare      string    `json:"fare"`               // sales.fare
	PNR       string    `json:"pnr"`                // sales.pnr
	CreatedAt time.Time `json:"created_at"`         // sales.created_at
	UpdatedAt time.Time `json:"updated_at"`         // sales.updated_at
}
