package domain

// Signal names a notification channel on the tab bus.
type Signal string

const (
	SignalWishlistChanged Signal = "wishlist.changed"
	SignalCartChanged     Signal = "cart.changed"
)

// Notification is delivered to bus subscribers. Wishlist is set only for
// SignalWishlistChanged.
type Notification struct {
	Signal   Signal   `json:"signal"`
	Wishlist Wishlist `json:"wishlist,omitempty"`
}

// WishlistChanged builds a wishlist notification carrying w.
func WishlistChanged(w Wishlist) Notification {
	return Notification{Signal: SignalWishlistChanged, Wishlist: w}
}

// CartChanged builds a cart notification.
func CartChanged() Notification {
	return Notification{Signal: SignalCartChanged}
}
