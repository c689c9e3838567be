package chatparse

import (
	"fmt"
	"unicode/utf8"
)

// minContentRunes is the degenerate-message cutoff: messages at or below
// this length carry no semantic content worth embedding.
const minContentRunes = 3

// NoMessagesError indicates the export contains no usable messages from the
// requested participant.
type NoMessagesError struct {
	Participant string
}

func (e *NoMessagesError) Error() string {
	return fmt.Sprintf("no messages found for participant %q", e.Participant)
}

// InsufficientMessagesError indicates the participant has messages, but too
// few to build a meaningful index.
type InsufficientMessagesError struct {
	Count int
	Min   int
}

func (e *InsufficientMessagesError) Error() string {
	return fmt.Sprintf("only %d usable messages found, need at least %d", e.Count, e.Min)
}

// FilterBySender projects the corpus down to the selected sender's non-system
// messages with content longer than minContentRunes runes, directional marks
// stripped. Pure and idempotent: filtering an already-filtered sequence for
// the same sender returns the same sequence.
func FilterBySender(corpus *Corpus, sender string, minMessages int) ([]Message, error) {
	var filtered []Message
	for _, msg := range corpus.Messages {
		if msg.Sender != sender || msg.IsSystem {
			continue
		}
		content := StripDirectionalMarks(msg.Content)
		if utf8.RuneCountInString(content) <= minContentRunes {
			continue
		}
		msg.Content = content
		filtered = append(filtered, msg)
	}

	if len(filtered) == 0 {
		return nil, &NoMessagesError{Participant: sender}
	}
	if minMessages > 0 && len(filtered) < minMessages {
		return nil, &InsufficientMessagesError{Count: len(filtered), Min: minMessages}
	}

	return filtered, nil
}
