package chatparse

import (
	"errors"
	"math"
	"sort"
	"strings"
)

// ErrNoMessages is returned when an export yields zero retained messages.
// Partial failures (some unparsable lines) are tolerated and reported via
// Corpus.SuccessRate instead.
var ErrNoMessages = errors.New("no messages could be parsed from the export")

// Parse turns raw export text into a Corpus.
//
// Per line, the header grammars are tried in priority order; a line matching
// none of them is folded into the previous message's content as a
// continuation. An orphan continuation (no previous message) counts as an
// error. Blank lines are skipped entirely.
func Parse(raw string) (*Corpus, error) {
	var (
		all        []Message
		totalLines int
		parsedOK   int
		errorCount int
	)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		totalLines++

		m := matchHeader(line)
		if m == nil {
			// Continuation of the previous message, if there is one
			if len(all) == 0 {
				errorCount++
				continue
			}
			last := &all[len(all)-1]
			last.Content = last.Content + " " + strings.TrimSpace(line)
			parsedOK++
			continue
		}

		content := strings.TrimSpace(m.Content)
		all = append(all, Message{
			Sender:    m.Sender,
			Content:   content,
			Timestamp: m.Timestamp,
			ParsedAt:  parseTimestamp(m.Timestamp),
			IsSystem:  isSystemContent(content),
		})
		parsedOK++
	}

	corpus := &Corpus{
		Participants: make(map[string]struct{}),
		ErrorCount:   errorCount,
		TotalLines:   totalLines,
	}
	for _, msg := range all {
		corpus.Participants[msg.Sender] = struct{}{}
		if msg.IsSystem {
			corpus.SystemCount++
			continue
		}
		corpus.Messages = append(corpus.Messages, msg)
	}

	if totalLines > 0 {
		corpus.SuccessRate = math.Round(100 * float64(parsedOK) / float64(totalLines))
	}

	if len(corpus.Messages) == 0 {
		return nil, ErrNoMessages
	}

	// Stable by parse order where either side has no usable date
	sort.SliceStable(corpus.Messages, func(i, j int) bool {
		a, b := corpus.Messages[i].ParsedAt, corpus.Messages[j].ParsedAt
		if a == nil || b == nil {
			return false
		}
		return a.Before(*b)
	})

	return corpus, nil
}
