package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestSlice_ThirteenBySix(t *testing.T) {
	items := seq(13)

	page, total := Slice(items, 1, 6)
	assert.Equal(t, 3, total)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, page)

	page, _ = Slice(items, 3, 6)
	assert.Equal(t, []int{12}, page)
}

func TestSlice_Clamps(t *testing.T) {
	items := seq(13)

	page, _ := Slice(items, 0, 6)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, page)

	page, _ = Slice(items, 99, 6)
	assert.Equal(t, []int{12}, page)

	page, _ = Slice(items, -4, 6)
	assert.Equal(t, 0, page[0])
}

func TestSlice_Empty(t *testing.T) {
	page, total := Slice([]int{}, 1, 6)
	assert.Equal(t, 1, total)
	assert.Empty(t, page)
	assert.NotNil(t, page)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 1, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 2, TotalPages(11, 10))
	assert.Equal(t, 2, TotalPages(11, 0), "zero size falls back to the default")
}

func TestPaginate(t *testing.T) {
	p := Paginate(seq(25), 5, 10)
	assert.Equal(t, 3, p.CurrentPage)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 25, p.TotalCount)
	assert.Equal(t, 10, p.PageSize)
	assert.False(t, p.Empty)
	assert.Len(t, p.Items, 5)

	empty := Paginate([]int{}, 2, 10)
	assert.True(t, empty.Empty)
	assert.Equal(t, 1, empty.CurrentPage)
	assert.Equal(t, 1, empty.TotalPages)
}
