package pagination

import (
	"errors"
	"net/http"
	"strconv"
)

// GridPageSize is the number of products shown per page on listing grids.
const GridPageSize = 12

// MaxPage bounds the requested page so offsets stay far from int overflow.
const MaxPage = 1_000_000

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// DefaultParams returns the first grid page.
func DefaultParams() Params {
	return Params{
		Page:    1,
		PerPage: GridPageSize,
		Offset:  0,
	}
}

// FromRequest extracts the 1-based page number from an HTTP request. The page
// size is fixed to GridPageSize. Pages above MaxPage are clamped to it.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()

	if page := r.URL.Query().Get("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 0 {
			p.Page = min(v, MaxPage)
		} else if err != nil && isPositiveOverflow(page) {
			p.Page = MaxPage
		}
	}

	p.Offset = (p.Page - 1) * p.PerPage
	return p
}

func isPositiveOverflow(s string) bool {
	_, err := strconv.ParseUint(s, 10, 64)
	if err == nil {
		return true
	}
	var numErr *strconv.NumError
	return errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange)
}

// Result wraps a paginated response.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// TotalPages returns ceil(count/perPage), or 0 when there is nothing to show.
func TotalPages(count, perPage int) int {
	if count <= 0 || perPage <= 0 {
		return 0
	}
	pages := count / perPage
	if count%perPage > 0 {
		pages++
	}
	return pages
}

// Paginate slices an already-loaded collection. Pages past the end yield an
// empty page. An empty collection reports page 0 of 0 with no navigation so
// the page control renders disabled.
func Paginate[T any](items []T, params Params) Result[T] {
	if params.PerPage <= 0 {
		params.PerPage = GridPageSize
	}
	if params.Page <= 0 {
		params.Page = 1
	}

	total := len(items)
	totalPages := TotalPages(total, params.PerPage)
	if totalPages == 0 {
		return Result[T]{
			Data:    []T{},
			PerPage: params.PerPage,
		}
	}

	if params.Page > totalPages {
		return Result[T]{
			Data:       []T{},
			TotalCount: total,
			Page:       params.Page,
			PerPage:    params.PerPage,
			TotalPages: totalPages,
			HasPrev:    true,
		}
	}

	start := (params.Page - 1) * params.PerPage
	end := min(start+params.PerPage, total)

	page := make([]T, end-start)
	copy(page, items[start:end])

	return Result[T]{
		Data:       page,
		TotalCount: total,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}
