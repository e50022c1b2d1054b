package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginationDefaults(t *testing.T) {
	var p PaginationRequest
	assert.Equal(t, 20, p.GetPageSize())
	assert.Equal(t, 0, p.GetOffset())

	p = PaginationRequest{Page: 3, PageSize: 500}
	assert.Equal(t, 100, p.GetPageSize())
	assert.Equal(t, 200, p.GetOffset())
}

func TestNewPaginationMeta(t *testing.T) {
	meta := NewPaginationMeta(PaginationRequest{Page: 2, PageSize: 10}, 25)
	assert.Equal(t, 3, meta.TotalPages)
	assert.Equal(t, 2, meta.Page)

	meta = NewPaginationMeta(PaginationRequest{}, 0)
	assert.Equal(t, 0, meta.TotalPages)
	assert.Equal(t, 1, meta.Page)
}
