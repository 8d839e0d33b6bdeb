package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrEmptyBatch indicates a batch without line items.
	ErrEmptyBatch = errors.New("ledger: batch has no line items")
	// ErrInvalidLineItem indicates a line item that does not fit its kind.
	ErrInvalidLineItem = errors.New("ledger: invalid line item")
	// ErrDuplicateUnitID indicates the same unit twice in one batch.
	ErrDuplicateUnitID = errors.New("ledger: duplicate unit ids")
	// ErrUnitNotFound indicates a referenced unit does not exist.
	ErrUnitNotFound = errors.New("ledger: units not found")
	// ErrUnitBelongsToAnotherStore indicates a unit outside the batch store.
	ErrUnitBelongsToAnotherStore = errors.New("ledger: units belong to another store")
	// ErrInsufficientStock indicates a decrement below zero.
	ErrInsufficientStock = errors.New("ledger: insufficient stock")
	// ErrActionAccessForbidden indicates the actor may not submit this kind.
	ErrActionAccessForbidden = errors.New("ledger: action access forbidden")
	// ErrUnknownActionKind indicates a kind outside the six known ones.
	ErrUnknownActionKind = errors.New("ledger: unknown action kind")
	// ErrActionNotFound indicates the action does not exist.
	ErrActionNotFound = errors.New("ledger: action not found")
	// ErrStoreAccessForbidden indicates the actor cannot read the store.
	ErrStoreAccessForbidden = errors.New("ledger: store access forbidden")
	// ErrAllStoresForbidden indicates a non-admin listing without a store.
	ErrAllStoresForbidden = errors.New("ledger: listing all stores requires admin")
	// ErrDuplicateSubmission indicates a replayed idempotency key.
	ErrDuplicateSubmission = errors.New("ledger: batch already submitted")
)

// UnitIDsError names the units that caused Kind.
type UnitIDsError struct {
	Kind error
	IDs  []int64
}

func newUnitIDsError(kind error, ids []int64) *UnitIDsError {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return &UnitIDsError{Kind: kind, IDs: sorted}
}

func (e *UnitIDsError) Error() string {
	parts := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("%s: [%s]", e.Kind, strings.Join(parts, ", "))
}

func (e *UnitIDsError) Unwrap() error {
	return e.Kind
}

// LineItemError points at the offending line and field.
type LineItemError struct {
	Line   int
	Field  string
	Reason string
}

func (e *LineItemError) Error() string {
	return fmt.Sprintf("%s: line %d: %s %s", ErrInvalidLineItem, e.Line, e.Field, e.Reason)
}

func (e *LineItemError) Unwrap() error {
	return ErrInvalidLineItem
}
