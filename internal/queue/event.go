// Package queue defines message payloads exchanged over the message broker.
package queue

// SaleRecordedEvent is published after a sale has been committed to
// the ledger. It carries enough for downstream consumers (audit log,
// notifications, analytics) without querying the primary database.
// StockID is zero and Resolution is "unlinked" for sales recorded
// without an inventory link.
type SaleRecordedEvent struct {
	SaleID     uint64 `json:"sale_id"`
	StockID    uint64 `json:"stock_id,omitempty"`
	Resolution string `json:"resolution"`
	Sector     string `json:"sector"`
	Passenger  string `json:"passenger"`
	Airline    string `json:"airline"`
	Agent      string `json:"agent"`
	DOT        string `json:"dot"`
	DOTB       string `json:"dotb"`
	Fare       string `json:"fare"`
	PNR        string `json:"pnr"`
	RecordedAt string `json:"recorded_at"`
}
