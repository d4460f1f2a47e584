package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
)

func TestListProducts_PaginatesAndMarksWishlist(t *testing.T) {
	env := newTestEnv(t)
	env.api.On("ListProducts", mock.Anything, domain.CollectionOur).Return(sampleProducts(13), nil)

	rec := env.do(t, http.MethodPost, "/api/v1/wishlist/toggle", productBody("m", "Product m"), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/products?collection=our&page=2", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page httputil.PaginatedResponse[service.ListedProduct]
	decodeJSON(t, rec, &page)
	assert.Equal(t, 13, page.TotalCount)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	assert.True(t, page.HasPrev)
	assert.False(t, page.HasNext)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "m", page.Data[0].ID)
	assert.True(t, page.Data[0].InWishlist)
	assert.Equal(t, "10.00", page.Data[0].DisplayPrice)
}

func TestListProducts_HugePageIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	env.api.On("ListProducts", mock.Anything, domain.CollectionAll).Return(sampleProducts(25), nil)

	rec := env.do(t, http.MethodGet, "/api/v1/products?page=768614336404564651", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page httputil.PaginatedResponse[service.ListedProduct]
	decodeJSON(t, rec, &page)
	assert.Empty(t, page.Data)
	assert.Equal(t, 25, page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	assert.False(t, page.HasNext)
}

func TestListProducts_DefaultsToAll(t *testing.T) {
	env := newTestEnv(t)
	env.api.On("ListProducts", mock.Anything, domain.CollectionAll).Return([]domain.Product{}, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/products", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page httputil.PaginatedResponse[service.ListedProduct]
	decodeJSON(t, rec, &page)
	assert.Empty(t, page.Data)
	assert.Equal(t, 0, page.TotalPages)
	assert.Equal(t, 0, page.Page)
	assert.False(t, page.HasNext)
	assert.False(t, page.HasPrev)
}

func TestListProducts_UnknownCollection(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/products?collection=phones", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env.api.AssertNotCalled(t, "ListProducts", mock.Anything, mock.Anything)
}

func TestListProducts_UpstreamDown(t *testing.T) {
	env := newTestEnv(t)
	env.api.On("ListProducts", mock.Anything, domain.CollectionPC).
		Return(nil, apperrors.Unavailable("storefront-api unavailable", nil))

	rec := env.do(t, http.MethodGet, "/api/v1/products?collection=pc", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, apperrors.CodeUnavailable, decodeResponse(t, rec).Error.Code)
}

func TestSelectedProduct_RoundTrip(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/products/selected", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/products/selected", productBody("p1", "Laptop"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sel SelectResponse
	decodeData(t, rec, &sel)
	assert.Equal(t, "p1", sel.Product.ID)
	assert.True(t, sel.Persisted)

	rec = env.do(t, http.MethodGet, "/api/v1/products/selected", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p domain.Product
	decodeData(t, rec, &p)
	assert.Equal(t, "Laptop", p.Name)
}

func TestSelectProduct_MissingID(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPut, "/api/v1/products/selected", map[string]any{"product": map[string]any{"name": "x"}}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
