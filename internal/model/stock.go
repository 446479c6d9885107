package model

import "time"

// StockLot represents a batch of purchasable seats bought from an
// airline for a given sector/date combination, as stored in the
// `stock` table.  The authoritative seat count lives here: Pax is the
// total capacity of the lot and Sold is how many seats have been
// consumed by sales.  The allocator guarantees Sold never exceeds Pax
// even under concurrent sale submissions.
//
// Fields:
//  ID        - primary key identifier, immutable.
//  Sector    - free text route label (e.g. "DEL-BOM"); not normalized,
//              matched exactly by the sector fallback path.
//  Pax       - total seat capacity of the lot.
//  Sold      - seats already allocated; 0 <= Sold <= Pax.
//  DOT       - date of travel in display form; informational only.
//  Fare      - default fare copied onto sales that omit one.
//  Airline   - default airline copied onto sales that omit one.
//  PNR       - default PNR copied onto sales that omit one.
//  CreatedAt - timestamp of creation.
//  UpdatedAt - timestamp of last update; changes whenever Sold changes.
type StockLot struct {
	ID        uint64    `json:"id"`         // stock.id
	Sector    string    `json:"sector"`     // stock.sector
	Pax       int       `json:"pax"`        // stock.pax
	Sold      int       `json:"sold"`       // stock.sold
	DOT       string    `json:"dot"`        // stock.dot
	Fare      string    `json:"fare"`       // stock.fare
	Airline   string    `json:"airline"`    // stock.airline
	PNR       string    `json:"pnr"`        // stock.pnr
	CreatedAt time.Time `json:"created_at"` // stock.created_at
	UpdatedAt time.Time `json:"updated_at"` // stock.updated_at
}

// Remaining returns the number of unallocated seats in the lot.
func (s StockLot) Remaining() int { return s.Pax - s.Sold }
