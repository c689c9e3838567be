package chatparse

import "strings"

// Placeholder contents that mark a line as a system message rather than
// something the participant actually typed. Exact matches are checked
// first, then case-insensitive substring markers.
var systemExact = map[string]struct{}{
	"<Media omitted>":               {},
	"<media omitted>":               {},
	"This message was deleted":      {},
	"This message was deleted.":     {},
	"You deleted this message":      {},
	"You deleted this message.":     {},
	"null":                          {},
	"Waiting for this message":      {},
	"Waiting for this message. This may take a while.": {},
}

var systemSubstrings = []string{
	"image omitted",
	"video omitted",
	"audio omitted",
	"sticker omitted",
	"gif omitted",
	"document omitted",
	"contact card omitted",
	"media omitted",
	"missed voice call",
	"missed video call",
	"voice call,",
	"video call,",
	"end-to-end encrypted",
	"message was deleted",
	"changed the group description",
	"changed this group's icon",
	"security code changed",
}

// isSystemContent reports whether content matches the placeholder catalog.
func isSystemContent(content string) bool {
	trimmed := strings.TrimSpace(content)
	if _, ok := systemExact[trimmed]; ok {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, marker := range systemSubstrings {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
