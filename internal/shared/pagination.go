package shared

import (
	"fmt"
	"net/http"
	"strconv"
)

const (
	// DefaultLimit applies when a request omits limit.
	DefaultLimit = 20
	// MaxLimit caps a single page.
	MaxLimit = 100
)

// PageRequest is an offset/limit window over a listing.
type PageRequest struct {
	Offset int
	Limit  int
}

// NewPageRequest clamps offset and limit into a valid window.
func NewPageRequest(offset, limit int) PageRequest {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return PageRequest{Offset: offset, Limit: limit}
}

// ParsePageRequest reads offset and limit query parameters.
func ParsePageRequest(r *http.Request) (PageRequest, error) {
	q := r.URL.Query()
	offset, err := queryInt(q.Get("offset"))
	if err != nil {
		return PageRequest{}, fmt.Errorf("offset: %w", err)
	}
	limit, err := queryInt(q.Get("limit"))
	if err != nil {
		return PageRequest{}, fmt.Errorf("limit: %w", err)
	}
	return NewPageRequest(offset, limit), nil
}

func queryInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

// NewPagination computes pagination metadata.
func NewPagination(req PageRequest, total int) Pagination {
	return Pagination{
		Offset:  req.Offset,
		Limit:   req.Limit,
		Total:   total,
		HasMore: req.Offset+req.Limit < total,
	}
}
