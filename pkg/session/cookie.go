package session

import (
	"net/url"
	"strings"
)

// ReadCookie scans a Cookie header style string ("a=1; b=2") for name and
// returns its URL-decoded value. An absent or empty cookie yields "".
func ReadCookie(header, name string) string {
	if name == "" {
		return ""
	}
	for _, part := range strings.Split(header, ";") {
		key, value, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(key) != name {
			continue
		}
		value = strings.TrimLeft(value, " \t")
		if value == "" {
			continue
		}
		if decoded, err := url.PathUnescape(value); err == nil {
			return decoded
		}
		return value
	}
	return ""
}
