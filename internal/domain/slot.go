package domain

// Slot names a persisted per-session value.
type Slot string

const (
	SlotWishlist        Slot = "wishlist"
	SlotCartItemsImages Slot = "cartItemsImages"
	SlotSelectedProduct Slot = "selectedProduct"
	SlotDarkMode        Slot = "darkMode"
	SlotRole            Slot = "role"
)

// Watched reports whether changes to the slot are broadcast to other tabs.
func (s Slot) Watched() bool {
	return s == SlotDarkMode || s == SlotRole
}
