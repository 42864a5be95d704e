// Package transcript turns raw recognizer output into the canonical text
// that gets delivered.
package transcript

import (
	"regexp"
	"strings"
)

// Dialect identifies the output conventions of a transcription backend.
type Dialect int

const (
	// DialectPlain output is already clean apart from surrounding whitespace.
	DialectPlain Dialect = iota
	// DialectTimestamped output prefixes each line with a
	// [HH:MM:SS.mmm --> HH:MM:SS.mmm] segment range.
	DialectTimestamped
)

func (d Dialect) String() string {
	switch d {
	case DialectPlain:
		return "plain"
	case DialectTimestamped:
		return "timestamped"
	default:
		return "unknown"
	}
}

// segmentRange matches leading range markers using either '.' or ':' before
// the milliseconds.
var segmentRange = regexp.MustCompile(`^\s*(?:\[\d{2}:\d{2}:\d{2}[.:]\d{3}\s*-->\s*\d{2}:\d{2}:\d{2}[.:]\d{3}\]\s*)+`)

// Normalize maps raw backend output to canonical text for dialect d.
func Normalize(d Dialect, raw string) string {
	if d != DialectTimestamped {
		return strings.TrimSpace(raw)
	}

	lines := strings.Split(raw, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(segmentRange.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}
