package chatparse

import (
	"strings"
	"unicode/utf8"
)

// Stats describes the filtered message corpus. Purely derived; feeds the
// analysis report and nothing else.
type Stats struct {
	MessageCount  int     `json:"message_count"`
	AvgChars      float64 `json:"avg_chars"`
	AvgWords      float64 `json:"avg_words"`
	ShortPct      float64 `json:"short_pct"`
	NoTerminalPct float64 `json:"no_terminal_pct"`
	EmojiPct      float64 `json:"emoji_pct"`
	SingleWordPct float64 `json:"single_word_pct"`
}

// ComputeStats computes descriptive statistics over the filtered messages.
func ComputeStats(messages []Message) Stats {
	stats := Stats{MessageCount: len(messages)}
	if len(messages) == 0 {
		return stats
	}

	var (
		totalChars int
		totalWords int
		short      int
		noTerminal int
		withEmoji  int
		singleWord int
	)

	for _, msg := range messages {
		chars := utf8.RuneCountInString(msg.Content)
		words := len(strings.Fields(msg.Content))

		totalChars += chars
		totalWords += words
		if chars <= 10 {
			short++
		}
		if !hasTerminalPunctuation(msg.Content) {
			noTerminal++
		}
		if containsEmoji(msg.Content) {
			withEmoji++
		}
		if words == 1 {
			singleWord++
		}
	}

	n := float64(len(messages))
	stats.AvgChars = float64(totalChars) / n
	stats.AvgWords = float64(totalWords) / n
	stats.ShortPct = 100 * float64(short) / n
	stats.NoTerminalPct = 100 * float64(noTerminal) / n
	stats.EmojiPct = 100 * float64(withEmoji) / n
	stats.SingleWordPct = 100 * float64(singleWord) / n
	return stats
}

func hasTerminalPunctuation(s string) bool {
	trimmed := strings.TrimRight(s, " ")
	if trimmed == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(trimmed)
	switch r {
	case '.', '!', '?', '…', ';':
		return true
	}
	return false
}

// containsEmoji reports whether s contains a code point in the common emoji
// blocks (misc symbols, dingbats, and the supplementary emoji planes).
func containsEmoji(s string) bool {
	for _, r := range s {
		switch {
		case r >= 0x1F300 && r <= 0x1FAFF:
			return true
		case r >= 0x2600 && r <= 0x27BF:
			return true
		case r == 0x2764: // heavy black heart
			return true
		}
	}
	return false
}
