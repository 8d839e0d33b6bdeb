package shared

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPageRequestClamps(t *testing.T) {
	assert.Equal(t, PageRequest{Offset: 0, Limit: DefaultLimit}, NewPageRequest(-5, 0))
	assert.Equal(t, PageRequest{Offset: 10, Limit: MaxLimit}, NewPageRequest(10, 1000))
	assert.Equal(t, PageRequest{Offset: 3, Limit: 7}, NewPageRequest(3, 7))
}

func TestParsePageRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/actions?offset=40&limit=20", nil)
	page, err := ParsePageRequest(req)
	require.NoError(t, err)
	assert.Equal(t, PageRequest{Offset: 40, Limit: 20}, page)

	req = httptest.NewRequest("GET", "/actions?limit=abc", nil)
	_, err = ParsePageRequest(req)
	require.Error(t, err)
}

func TestNewPaginationHasMore(t *testing.T) {
	assert.True(t, NewPagination(PageRequest{Offset: 0, Limit: 20}, 21).HasMore)
	assert.False(t, NewPagination(PageRequest{Offset: 20, Limit: 20}, 40).HasMore)
	assert.False(t, NewPagination(PageRequest{Offset: 100, Limit: 20}, 3).HasMore)
}
