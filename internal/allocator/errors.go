package allocator

import "fmt"

// The allocator reports failures through a small closed taxonomy so
// the sale handler can map each kind to an HTTP status without string
// matching: repository.ErrStockNotFound (explicit id matched no lot),
// *ValidationError, *CapacityError and *StorageError. Whatever the
// kind, the transaction has been fully rolled back by the time the
// error reaches the caller.

// ValidationError reports a required request field that was missing
// or blank. No storage access has been attempted when it is returned.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// CapacityError reports that the resolved lot cannot cover one more
// seat. Remaining carries the unallocated seat count at the time the
// row lock was held, for the user facing message.
type CapacityError struct {
	StockID   uint64
	Remaining int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("stock %d has no capacity left (remaining: %d)", e.StockID, e.Remaining)
}

// StorageError wraps an unexpected persistence failure: transaction
// begin/commit, lock acquisition timeout, or a query error. The
// allocator never retries; retry policy belongs to the caller.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
