package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Normalize(t *testing.T) {
	tests := []struct {
		name     string
		in       Filter
		page     int
		pageSize int
		dir      string
	}{
		{"zero values get defaults", Filter{}, 1, 20, "desc"},
		{"oversized page is clamped", Filter{Page: 3, PageSize: 1000, OrderDir: "asc"}, 3, 200, "asc"},
		{"unknown direction falls back to desc", Filter{Page: 2, PageSize: 10, OrderDir: "sideways"}, 2, 10, "desc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.in.Normalize()
			assert.Equal(t, tt.page, f.Page)
			assert.Equal(t, tt.pageSize, f.PageSize)
			assert.Equal(t, tt.dir, f.OrderDir)
		})
	}
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2, 3}, 41, 1, 20)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, int64(41), p.Total)

	empty := NewPaginated[int](nil, 0, 1, 0)
	assert.Equal(t, 0, empty.TotalPages)
}
