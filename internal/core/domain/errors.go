package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrDuplicateRequest  = errors.New("duplicate request")
	ErrTransactionFailed = errors.New("transaction failed")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// InsufficientStockError is returned when a reservation asks for more units
// than the ledger holds. State is left untouched.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func AsInsufficientStock(err error) (*InsufficientStockError, bool) {
	var s *InsufficientStockError
	if errors.As(err, &s) {
		return s, true
	}
	return nil, false
}

func lineField(i int, name string) string {
	return fmt.Sprintf("lines[%d].%s", i, name)
}
