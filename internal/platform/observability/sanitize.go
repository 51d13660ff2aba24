package observability

import "unicode"

const defaultStringLimit = 256

// sanitizeString drops control characters and caps the length so request data cannot forge log lines.
func sanitizeString(value string, limit int) string {
	if limit <= 0 {
		limit = defaultStringLimit
	}
	cleaned := make([]rune, 0, len(value))
	for _, r := range value {
		if unicode.IsControl(r) {
			continue
		}
		cleaned = append(cleaned, r)
		if len(cleaned) == limit {
			break
		}
	}
	return string(cleaned)
}

// SanitizeRoute cleans a route pattern for logging.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return sanitizeString(route, 180)
}

// SanitizeSessionID truncates session identifiers before they reach logs.
func SanitizeSessionID(id string) string {
	if id == "" {
		return ""
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return sanitizeString(id, 12)
}
