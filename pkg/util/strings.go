package util

// Truncate shortens a string to max runes (not bytes) to preserve UTF-8.
// If the string is longer than max, "..." is appended to signal truncation.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// TruncateExact shortens a string to exactly max runes without ellipsis.
// Used for vector store varchar field limits.
func TruncateExact(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
