// Package slug normalizes display names into comparison keys.
package slug

import "strings"

const maxLen = 64

// Key lowercases s, maps every run of characters outside [a-z0-9] to a
// single '_' and trims separators, so "Accounts  Payable" and
// "accounts-payable" collide. Keys are cut at 64 bytes.
func Key(s string) string {
	var b strings.Builder
	sep := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			sep = false
			b.WriteRune(r)
		} else {
			sep = true
		}
		if b.Len() >= maxLen {
			break
		}
	}
	out := b.String()
	if len(out) > maxLen {
		out = out[:maxLen]
	}
	return strings.TrimRight(out, "_")
}
