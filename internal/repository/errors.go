// Package repository defines error values shared across the data
// access layer. These sentinel values let handlers and the allocator
// distinguish failure scenarios without inspecting driver errors. For
// example, ErrStockNotFound indicates a lookup by id or sector found
// no lot, while ErrEmailExists signals a duplicate registration.
package repository

import "errors"

// ErrStockNotFound is returned when a stock lot lookup matches no row.
// The allocator translates this into its NotFound failure when the
// caller supplied an explicit stock id.
var ErrStockNotFound = errors.New("stock lot not found")

// ErrSaleNotFound is returned when a sale lookup matches no row.
// Handlers should translate this into an HTTP 404 response.
var ErrSaleNotFound = errors.New("sale not found")

// ErrEmailExists is returned when registering a user whose email is
// already taken. Handlers should translate this into an HTTP 409
// response.
var ErrEmailExists = errors.New("email already exists")
