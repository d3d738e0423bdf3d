// Package env reads the few process settings needed before config.Load runs.
package env

import (
	"os"
	"slices"
	"strings"
)

// Choice returns the lowercased value of key when it is one of allowed, and
// fallback otherwise.
func Choice(key, fallback string, allowed ...string) string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if slices.Contains(allowed, v) {
		return v
	}
	return fallback
}
