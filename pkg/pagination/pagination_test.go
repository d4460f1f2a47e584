package pagination

import (
	"net/http"
	"net/http/httptest"
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

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 12, p.PerPage)
	assert.Equal(t, 0, p.Offset)
}

func TestFromRequest_Defaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	p := FromRequest(req)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, GridPageSize, p.PerPage)
}

func TestFromRequest_CustomPage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products?page=3&per_page=50", nil)
	p := FromRequest(req)

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, GridPageSize, p.PerPage) // page size is fixed
	assert.Equal(t, 24, p.Offset)
}

func TestFromRequest_InvalidPage(t *testing.T) {
	for _, raw := range []string{"-1", "0", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/products?page="+raw, nil)
		assert.Equal(t, 1, FromRequest(req).Page, raw)
	}
}

func TestFromRequest_HugePageIsClamped(t *testing.T) {
	for _, raw := range []string{"768614336404564651", "9223372036854775807", "99999999999999999999999"} {
		req := httptest.NewRequest(http.MethodGet, "/products?page="+raw, nil)
		p := FromRequest(req)
		assert.Equal(t, MaxPage, p.Page, raw)
		assert.Equal(t, (MaxPage-1)*GridPageSize, p.Offset, raw)
	}
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 12))
	assert.Equal(t, 1, TotalPages(12, 12))
	assert.Equal(t, 2, TotalPages(13, 12))
	assert.Equal(t, 3, TotalPages(25, 12))
	assert.Equal(t, 0, TotalPages(5, 0))
}

func TestPaginate_TwentyFiveItems(t *testing.T) {
	items := seq(25)

	first := Paginate(items, Params{Page: 1, PerPage: 12})
	assert.Equal(t, seq(12), first.Data)
	assert.Equal(t, 3, first.TotalPages)
	assert.Equal(t, 25, first.TotalCount)
	assert.True(t, first.HasNext)
	assert.False(t, first.HasPrev)

	last := Paginate(items, Params{Page: 3, PerPage: 12})
	assert.Equal(t, []int{24}, last.Data)
	assert.False(t, last.HasNext)
	assert.True(t, last.HasPrev)
}

func TestPaginate_PastTheEnd(t *testing.T) {
	res := Paginate(seq(5), Params{Page: 4, PerPage: 12})
	assert.Empty(t, res.Data)
	assert.Equal(t, 1, res.TotalPages)
	assert.False(t, res.HasNext)
}

func TestPaginate_HugePageIsEmpty(t *testing.T) {
	res := Paginate(seq(25), Params{Page: 768614336404564651, PerPage: 12})
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Data)
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, 25, res.TotalCount)
	assert.False(t, res.HasNext)
	assert.True(t, res.HasPrev)
}

func TestPaginate_Empty_DisablesControl(t *testing.T) {
	res := Paginate([]int{}, DefaultParams())

	assert.Empty(t, res.Data)
	assert.NotNil(t, res.Data)
	assert.Equal(t, 0, res.TotalPages)
	assert.Equal(t, 0, res.Page)
	assert.False(t, res.HasNext)
	assert.False(t, res.HasPrev)
}

func TestPaginate_DoesNotAliasInput(t *testing.T) {
	items := seq(3)
	res := Paginate(items, DefaultParams())
	res.Data[0] = 99
	assert.Equal(t, 0, items[0])
}

func TestPaginate_ZeroParamsUseDefaults(t *testing.T) {
	res := Paginate(seq(13), Params{})
	assert.Len(t, res.Data, 12)
	assert.Equal(t, 1, res.Page)
}
