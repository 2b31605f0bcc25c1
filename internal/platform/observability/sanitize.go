package observability

import (
	"strings"
	"unicode"
)

// clean drops control characters and truncates to limit runes so request
// data cannot forge extra log lines.
func clean(value string, limit int) string {
	value = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
	if runes := []rune(value); len(runes) > limit {
		value = string(runes[:limit])
	}
	return value
}

// SanitizeRoute bounds a request path or route pattern for logging.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return clean(route, 180)
}

// SanitizeMethod bounds an HTTP method for logging.
func SanitizeMethod(method string) string {
	return clean(strings.ToUpper(method), 10)
}

// SanitizeUserID bounds a staff identifier for logging.
func SanitizeUserID(uid string) string {
	return clean(strings.TrimSpace(uid), 64)
}
