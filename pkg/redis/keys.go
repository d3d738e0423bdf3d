package redis

import "strings"

// Every key lives under "sf:". Empty segments are dropped.
const keyNamespace = "sf"

const (
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
	devicePrefix      = "device"
	sessionPrefix     = "session"
	cartChangesPrefix = "cart_changes"

	deviceCartSlot          = "cart"
	deviceSearchHistorySlot = "search_history"
)

func (c *Client) IdempotencyKey(scope, id string) string {
	return key(idempotencyPrefix, scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return key(rateLimitPrefix, scope)
}

// DeviceCartKey is the device-local slot holding anonymous cart lines.
func (c *Client) DeviceCartKey(deviceID string) string {
	return key(devicePrefix, deviceID, deviceCartSlot)
}

// DeviceSearchHistoryKey is the device-local slot holding recent searches.
func (c *Client) DeviceSearchHistoryKey(deviceID string) string {
	return key(devicePrefix, deviceID, deviceSearchHistorySlot)
}

// DeviceSessionKey holds the signed-in identity for a device.
func (c *Client) DeviceSessionKey(deviceID string) string {
	return key(sessionPrefix, devicePrefix, deviceID)
}

// CartChangesChannel announces writes to a user's remote cart.
func (c *Client) CartChangesChannel(userID string) string {
	return key(cartChangesPrefix, userID)
}

func key(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteByte(':')
			b.WriteString(p)
		}
	}
	return b.String()
}
