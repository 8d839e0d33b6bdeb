package stores

import (
	"errors"
	"time"
)

var (
	// ErrStoreNotFound indicates the store does not exist.
	ErrStoreNotFound = errors.New("stores: store not found")
	// ErrDuplicateTitle indicates another store already uses the title.
	ErrDuplicateTitle = errors.New("stores: title already taken")
)

// Store is a tenant owning units and ledger actions.
type Store struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateStoreInput is the payload for creating a store.
type CreateStoreInput struct {
	Title string `json:"title" validate:"required,max=255"`
}

// ListFilter narrows the store listing. A nil StoreIDs means every store.
type ListFilter struct {
	StoreIDs []int64
	Offset   int
	Limit    int
}
