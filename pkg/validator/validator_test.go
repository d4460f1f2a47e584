package validator

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type preferencesInput struct {
	DarkMode *bool  `json:"darkMode"`
	Role     string `json:"role" validate:"omitempty,oneof=customer admin"`
}

type selectInput struct {
	ID   string `json:"id" validate:"required,notblank,max=128"`
	Mode string `json:"mode" validate:"omitempty,oneof=add add_then_increase"`
}

func TestValidate_Success(t *testing.T) {
	err := Validate(selectInput{ID: "p-1", Mode: "add"})
	assert.NoError(t, err)
}

func TestValidate_MissingRequired(t *testing.T) {
	err := Validate(selectInput{})
	require.Error(t, err)

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "is required", valErr.Fields()["id"])
}

func TestValidate_Blank(t *testing.T) {
	err := Validate(selectInput{ID: "   "})

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "must not be blank", valErr.Fields()["id"])
}

func TestValidate_Max(t *testing.T) {
	err := Validate(selectInput{ID: strings.Repeat("x", 129)})

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "must be at most 128", valErr.Fields()["id"])
}

func TestValidate_OneOf(t *testing.T) {
	err := Validate(preferencesInput{Role: "root"})

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "must be one of: customer admin", valErr.Fields()["role"])
}

func TestValidate_OmitEmptyRole(t *testing.T) {
	assert.NoError(t, Validate(preferencesInput{}))
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(selectInput{Mode: "bulk"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'id' is required")
	assert.Contains(t, err.Error(), "field 'mode' must be one of")
}

func TestDecodeAndValidate_Success(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"role":"admin","darkMode":true}`))

	var in preferencesInput
	require.NoError(t, DecodeAndValidate(req, &in))
	assert.Equal(t, "admin", in.Role)
	require.NotNil(t, in.DarkMode)
	assert.True(t, *in.DarkMode)
}

func TestDecodeAndValidate_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", http.NoBody)

	var in preferencesInput
	err := DecodeAndValidate(req, &in)
	assert.ErrorIs(t, err, ErrEmptyBody)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{not json`))

	var in preferencesInput
	err := DecodeAndValidate(req, &in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"role":"owner"}`))

	var in preferencesInput
	err := DecodeAndValidate(req, &in)

	var valErr *ValidationError
	assert.True(t, errors.As(err, &valErr))
}
