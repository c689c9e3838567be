// Package chatparse recovers structured messages from a semi-structured
// chat export. It implements:
// 1. Ordered grammar dispatch: several header grammars tried per line, first match wins
// 2. Continuation folding: headerless lines are appended to the previous message
// 3. System-message classification against a fixed placeholder catalog
// 4. Participant filtering with directional-mark stripping
// 5. Corpus statistics for the analysis report
package chatparse

import "time"

// Message is a single parsed message from the export.
// Content is mutated only when a following continuation line is folded in.
type Message struct {
	Sender    string
	Content   string
	Timestamp string
	ParsedAt  *time.Time
	IsSystem  bool
}

// Corpus is the result of parsing one export.
type Corpus struct {
	// Messages holds retained (non-system) messages, stably sorted by
	// ParsedAt where both entries have one.
	Messages     []Message
	Participants map[string]struct{}
	// SuccessRate is round(100 * successfully parsed lines / non-blank lines).
	SuccessRate float64
	SystemCount int
	ErrorCount  int
	TotalLines  int
}

// ValidationResult is the outcome of the cheap pre-parse check.
type ValidationResult struct {
	IsValid     bool     `json:"is_valid"`
	Errors      []string `json:"errors,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}
