package chatparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// headerMatch is a structured match of one header grammar against one line.
type headerMatch struct {
	Timestamp string
	Sender    string
	Content   string
}

type grammar struct {
	name string
	re   *regexp.Regexp
}

// Grammars are tried in fixed priority order; the first match wins for a line.
// All of them capture (ts, sender, content). Date separators may be any of
// "/", "." or "-"; the meridiem may use ASCII or narrow no-break spaces.
var grammars = []grammar{
	{
		name: "bracketed",
		re:   regexp.MustCompile(`^\[(?P<ts>\d{1,2}[./-]\d{1,2}[./-]\d{2,4},?[ \x{202F}\x{00A0}]\d{1,2}:\d{2}(?::\d{2})?(?:[ \x{202F}\x{00A0}]?[APap]\.?[Mm]\.?)?)\][ \x{202F}\x{00A0}]?(?P<sender>[^:]+?):[ ](?P<content>.*)$`),
	},
	{
		name: "dash",
		re:   regexp.MustCompile(`^(?P<ts>\d{1,2}[./-]\d{1,2}[./-]\d{2,4},?[ \x{202F}\x{00A0}]\d{1,2}:\d{2}(?::\d{2})?)[ ]-[ ](?P<sender>[^:]+?):[ ](?P<content>.*)$`),
	},
	{
		name: "dash12h",
		re:   regexp.MustCompile(`^(?P<ts>\d{1,2}[./-]\d{1,2}[./-]\d{2,4},?[ \x{202F}\x{00A0}]\d{1,2}:\d{2}(?::\d{2})?[ \x{202F}\x{00A0}]?[APap]\.?[Mm]\.?)[ ]-[ ](?P<sender>[^:]+?):[ ](?P<content>.*)$`),
	},
}

// matchHeader tries every grammar in priority order against a line.
// Returns nil when no grammar matches (the line is a continuation).
func matchHeader(line string) *headerMatch {
	for _, g := range grammars {
		m := g.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		return &headerMatch{
			Timestamp: strings.TrimSpace(m[1]),
			Sender:    strings.TrimSpace(m[2]),
			Content:   m[3],
		}
	}
	return nil
}

var (
	meridiemRe = regexp.MustCompile(`(?i)([ap])\.?\s*m\.?$`)
	shortYear  = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/)(\d{2})([^0-9])`)
)

// timestampLayouts are tried in order once the raw timestamp is normalized
// to "/"-separated dates with a 4-digit year. Day-first layouts come first;
// month-first variants cover US-style exports where the day field exceeds 12.
var timestampLayouts = []string{
	"2/1/2006, 15:04:05",
	"2/1/2006, 15:04",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006, 3:04:05 PM",
	"2/1/2006, 3:04 PM",
	"2/1/2006 3:04:05 PM",
	"2/1/2006 3:04 PM",
	"1/2/2006, 3:04:05 PM",
	"1/2/2006, 3:04 PM",
	"1/2/2006, 15:04:05",
	"1/2/2006, 15:04",
}

// parseTimestamp normalizes and parses a header timestamp. Returns nil when
// no layout matches; the line itself still parses successfully in that case.
func parseTimestamp(ts string) *time.Time {
	norm := normalizeTimestamp(ts)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, norm); err == nil {
			return &t
		}
	}
	return nil
}

func normalizeTimestamp(ts string) string {
	// Unify exotic spaces before touching anything else
	ts = strings.Map(func(r rune) rune {
		if r == '\u202f' || r == '\u00a0' {
			return ' '
		}
		return r
	}, ts)
	ts = strings.TrimSpace(ts)

	// Canonicalize "a.m.", "pm" etc. to " PM" so one layout form covers all
	if loc := meridiemRe.FindStringSubmatchIndex(ts); loc != nil {
		letter := strings.ToUpper(ts[loc[2]:loc[3]])
		head := strings.TrimRight(ts[:loc[0]], " ")
		ts = head + " " + letter + "M"
	}

	// Unify date separators; the meridiem periods are gone by now
	ts = strings.ReplaceAll(ts, ".", "/")
	ts = strings.ReplaceAll(ts, "-", "/")

	// Expand 2-digit years with a pivot at 50: <50 -> 2000s, >=50 -> 1900s
	ts = shortYear.ReplaceAllStringFunc(ts, func(s string) string {
		m := shortYear.FindStringSubmatch(s)
		yy, _ := strconv.Atoi(m[2])
		if yy < 50 {
			yy += 2000
		} else {
			yy += 1900
		}
		return m[1] + strconv.Itoa(yy) + m[3]
	})

	return ts
}
