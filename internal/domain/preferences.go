package domain

import "strconv"

// Roles accepted for the role preference.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Preferences are the cross-tab scalar settings of a session.
type Preferences struct {
	DarkMode bool   `json:"darkMode"`
	Role     string `json:"role"`
}

// DefaultPreferences returns the values used when nothing is stored.
func DefaultPreferences() Preferences {
	return Preferences{DarkMode: false, Role: RoleCustomer}
}

// ParseDarkMode interprets a stored darkMode slot value.
func ParseDarkMode(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// FormatDarkMode renders darkMode for storage.
func FormatDarkMode(on bool) string {
	return strconv.FormatBool(on)
}

// ValidRole reports whether r is an accepted role.
func ValidRole(r string) bool {
	return r == RoleCustomer || r == RoleAdmin
}

// PreferenceChange describes a single watched slot write. SourceTab names the
// tab that made it; that tab is not notified of its own write.
type PreferenceChange struct {
	Slot      Slot   `json:"slot"`
	Value     string `json:"value"`
	SourceTab string `json:"sourceTab,omitempty"`
}
