package common

// FirstNonEmpty returns the first non-empty candidate.
func FirstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

// TruncateEllipsis shortens s to at most max runes, replacing the tail
// with "..." when it has to cut.
func TruncateEllipsis(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max < 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
