package domain

import (
	"encoding/json"
	"fmt"
)

// WishlistEntry is the stored form of a favorited product. ID and ProductID
// always hold the same value so readers may use either field.
type WishlistEntry struct {
	ID          string   `json:"id"`
	ProductID   string   `json:"productId"`
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Price       *float64 `json:"price"`
	ImageURL    string   `json:"imageUrl"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
}

// NewWishlistEntry builds the stored form of p.
func NewWishlistEntry(p Product) WishlistEntry {
	return WishlistEntry{
		ID:          p.ID,
		ProductID:   p.ID,
		Name:        p.Name,
		Title:       p.Name,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		Category:    p.Category,
		Description: p.Description,
	}
}

// UnmarshalJSON accepts entries written by older clients, where identifiers
// may be numbers and only one alias may be present.
func (e *WishlistEntry) UnmarshalJSON(data []byte) error {
	var raw RawProduct
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = WishlistEntry{
		ID:          string(raw.ID),
		ProductID:   string(raw.ProductID),
		Name:        raw.Name,
		Title:       raw.Title,
		Price:       raw.Price.Value,
		ImageURL:    raw.ImageURL,
		Category:    raw.Category,
		Description: raw.Description,
	}
	if e.ImageURL == "" {
		e.ImageURL = raw.Image
	}
	return nil
}

// Key returns the entry's identifier, id falling back to productId.
func (e WishlistEntry) Key() string {
	if e.ID != "" {
		return e.ID
	}
	return e.ProductID
}

// Wishlist is the ordered list of favorited products, oldest first.
type Wishlist []WishlistEntry

// ParseWishlist decodes a stored wishlist. Anything other than a JSON array
// of entries is an error.
func ParseWishlist(data string) (Wishlist, error) {
	var w Wishlist
	if err := json.Unmarshal([]byte(data), &w); err != nil {
		return nil, fmt.Errorf("decode wishlist: %w", err)
	}
	if w == nil {
		return nil, fmt.Errorf("decode wishlist: value is not an array")
	}
	return w, nil
}

// Encode serializes the wishlist for storage. An empty wishlist encodes as [].
func (w Wishlist) Encode() (string, error) {
	if w == nil {
		w = Wishlist{}
	}
	b, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("encode wishlist: %w", err)
	}
	return string(b), nil
}

// Contains reports whether an entry with the given identifier exists.
func (w Wishlist) Contains(id string) bool {
	return w.index(id) >= 0
}

func (w Wishlist) index(id string) int {
	if id == "" {
		return -1
	}
	for i, e := range w {
		if e.ID == id || e.ProductID == id {
			return i
		}
	}
	return -1
}

// Toggle removes p if present, otherwise appends a new entry for it. The
// receiver is never modified; a fresh slice is returned along with whether p
// was added.
func (w Wishlist) Toggle(p Product) (Wishlist, bool) {
	if i := w.index(p.ID); i >= 0 {
		out := make(Wishlist, 0, len(w)-1)
		out = append(out, w[:i]...)
		out = append(out, w[i+1:]...)
		return out, false
	}
	out := make(Wishlist, 0, len(w)+1)
	out = append(out, w...)
	out = append(out, NewWishlistEntry(p))
	return out, true
}

// IDs returns the set of identifiers in the wishlist.
func (w Wishlist) IDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(w))
	for _, e := range w {
		if k := e.Key(); k != "" {
			ids[k] = struct{}{}
		}
	}
	return ids
}
