package chatparse

import "strings"

// directionalMarks is the fixed denylist of Unicode directional control
// runes stripped from message content before filtering and embedding.
// Kept as an explicit table so the set can grow without touching parsing.
var directionalMarks = map[rune]struct{}{
	'\u061c': {}, // arabic letter mark
	'\u200e': {}, // left-to-right mark
	'\u200f': {}, // right-to-left mark
	'\u202a': {}, // left-to-right embedding
	'\u202b': {}, // right-to-left embedding
	'\u202c': {}, // pop directional formatting
	'\u202d': {}, // left-to-right override
	'\u202e': {}, // right-to-left override
	'\u2066': {}, // left-to-right isolate
	'\u2067': {}, // right-to-left isolate
	'\u2068': {}, // first strong isolate
	'\u2069': {}, // pop directional isolate
}

// StripDirectionalMarks removes bidi control characters from s.
func StripDirectionalMarks(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if _, drop := directionalMarks[r]; drop {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
