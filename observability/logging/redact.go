package logging

import (
	"log/slog"
	"sort"
	"strings"
)

// RedactedValue is the placeholder emitted in place of sensitive log fields.
const RedactedValue = "[REDACTED]"

// Keys that may appear in admin audit lines verbatim. Everything else that
// flows through MaskField is assumed sensitive (bearer tokens, raw payloads).
var redactionAllowlist = map[string]struct{}{
	"service":   {},
	"env":       {},
	"message":   {},
	"severity":  {},
	"timestamp": {},
	"error":     {},
	"reason":    {},
	"component": {},
	"method":    {},
	"operation": {},
	"outcome":   {},
	"caller":    {},
	"token":     {},
	"remote":    {},
	"owner":     {},
	"address":   {},
	"to":        {},
	"recipient": {},
	"role":      {},
	"module":    {},
	"paused":    {},
	"assets":    {},
	"shares":    {},
	"amount":    {},
	"ratebps":   {},
	"capacity":  {},
}

// IsAllowlisted reports whether the key is exempt from automatic redaction.
func IsAllowlisted(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	_, ok := redactionAllowlist[normalized]
	return ok
}

// RedactionAllowlist returns a sorted copy of the keys allowed through without
// masking. Tests use it to pin the audit surface.
func RedactionAllowlist() []string {
	keys := make([]string, 0, len(redactionAllowlist))
	for key := range redactionAllowlist {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MaskValue redacts non-empty values. Empty values pass through unchanged so
// absent fields stay visibly absent.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}

// MaskField builds a slog.Attr whose value is redacted unless the key is
// allowlisted. Original key casing is preserved.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}
