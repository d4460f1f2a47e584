package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Display fallbacks for incomplete product records.
const (
	UnnamedProduct      = "Unnamed product"
	PlaceholderImageURL = "https://via.placeholder.com/300x200?text=No+Image"
	PriceNotAvailable   = "N/A"
)

// ErrMissingProductID is returned when a product carries neither id nor productId.
var ErrMissingProductID = apperrors.InvalidInput("product has neither id nor productId")

// Product is the canonical product record used inside the service. It is
// produced once at the boundary by Normalize.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       *float64 `json:"price"`
	ImageURL    string   `json:"imageUrl"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
}

// DisplayPrice renders the price with two decimals, or "N/A" when unknown.
func (p Product) DisplayPrice() string {
	if p.Price == nil {
		return PriceNotAvailable
	}
	return strconv.FormatFloat(*p.Price, 'f', 2, 64)
}

// FlexID decodes an identifier sent either as a JSON string or a JSON number.
type FlexID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier must be a string or number: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}

// FlexPrice decodes a price sent as a JSON number or a numeric string. A
// missing, null or unparsable value decodes to nil.
type FlexPrice struct {
	Value *float64
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexPrice) UnmarshalJSON(data []byte) error {
	f.Value = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil
	}
	f.Value = &v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f FlexPrice) MarshalJSON() ([]byte, error) {
	if f.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*f.Value)
}

// RawProduct is a product record as the remote API or the browser sends it,
// with aliased and loosely typed fields.
type RawProduct struct {
	ID          FlexID    `json:"id"`
	ProductID   FlexID    `json:"productId"`
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	Price       FlexPrice `json:"price"`
	ImageURL    string    `json:"imageUrl"`
	Image       string    `json:"image"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
}

// Normalize resolves aliases and applies display fallbacks. The identifier is
// id, falling back to productId. When both are missing the returned product is
// still usable for display but ErrMissingProductID is returned alongside it.
func Normalize(raw RawProduct) (Product, error) {
	p := Product{
		ID:          string(raw.ID),
		Name:        strings.TrimSpace(raw.Name),
		Price:       raw.Price.Value,
		ImageURL:    strings.TrimSpace(raw.ImageURL),
		Category:    raw.Category,
		Description: raw.Description,
	}
	if p.ID == "" {
		p.ID = string(raw.ProductID)
	}
	if p.Name == "" {
		p.Name = strings.TrimSpace(raw.Title)
	}
	if p.Name == "" {
		p.Name = UnnamedProduct
	}
	if p.ImageURL == "" {
		p.ImageURL = strings.TrimSpace(raw.Image)
	}
	if p.ImageURL == "" {
		p.ImageURL = PlaceholderImageURL
	}

	if p.ID == "" {
		return p, ErrMissingProductID
	}
	return p, nil
}

// NormalizeAll normalizes a listing. Records without an identifier are kept
// for display; their count is returned so callers can log it.
func NormalizeAll(raws []RawProduct) (products []Product, missingIDs int) {
	products = make([]Product, 0, len(raws))
	for _, raw := range raws {
		p, err := Normalize(raw)
		if err != nil {
			missingIDs++
		}
		products = append(products, p)
	}
	return products, missingIDs
}
