package enums

// CartMode describes where a device's cart currently lives.
type CartMode string

const (
	// CartModeAnonymous keeps the cart in the device's local slot.
	CartModeAnonymous CartMode = "anonymous"
	// CartModeSynced mirrors the signed-in user's remote cart document.
	CartModeSynced CartMode = "synced"
	// CartModeDegraded serves a signed-in user from the local slot after a remote failure.
	CartModeDegraded CartMode = "degraded"
)

// String implements fmt.Stringer.
func (m CartMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known CartMode.
func (m CartMode) IsValid() bool {
	switch m {
	case CartModeAnonymous, CartModeSynced, CartModeDegraded:
		return true
	}
	return false
}
