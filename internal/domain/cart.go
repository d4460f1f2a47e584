package domain

import (
	"encoding/json"
	"fmt"
	"maps"
)

// CartImageCache maps product identifiers to image URLs for the cart page.
// Entries are only ever added.
type CartImageCache map[string]string

// ParseCartImages decodes a stored image cache.
func ParseCartImages(data string) (CartImageCache, error) {
	var c CartImageCache
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("decode cart images: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("decode cart images: value is not an object")
	}
	return c, nil
}

// With returns a copy of the cache with id mapped to imageURL.
func (c CartImageCache) With(id, imageURL string) CartImageCache {
	out := make(CartImageCache, len(c)+1)
	maps.Copy(out, c)
	out[id] = imageURL
	return out
}

// Encode serializes the cache for storage.
func (c CartImageCache) Encode() (string, error) {
	if c == nil {
		c = CartImageCache{}
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode cart images: %w", err)
	}
	return string(b), nil
}

// AddMode selects the remote call sequence used to add a product to the cart.
type AddMode string

const (
	// ModeAdd creates the cart then adds the item. Used by product listings.
	ModeAdd AddMode = "add"
	// ModeAddThenIncrease additionally increases the quantity whatever the
	// add call returned. Used by category listings.
	ModeAddThenIncrease AddMode = "add_then_increase"
)

// Valid reports whether m is a known mode.
func (m AddMode) Valid() bool {
	return m == ModeAdd || m == ModeAddThenIncrease
}
