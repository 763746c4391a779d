// Package dialog parses plain-text dialog transcripts into attributed turns.
//
// A transcript is line-oriented. A line that starts with a speaker marker
// ("USER" or "ASSISTANT", case-insensitive, optionally wrapped in brackets and
// optionally followed by a colon) opens a new turn. Every other line continues
// the open turn. Lines before the first marker are not attributable and are
// dropped.
package dialog

import (
	"regexp"
	"strings"

	"github.com/pithecene-io/plandesk/types"
)

var markerPattern = regexp.MustCompile(`(?i)^\[?(USER|ASSISTANT)\]?:?`)

// Parse splits raw transcript text into turns in order of appearance.
// Parse never fails; malformed input degrades to fewer turns.
func Parse(raw string) []types.Turn {
	if raw == "" {
		return nil
	}

	var (
		turns   []types.Turn
		open    bool
		speaker types.Speaker
		body    []string
	)

	flush := func() {
		if !open {
			return
		}
		text := strings.TrimSpace(strings.Join(body, "\n"))
		if text != "" {
			turns = append(turns, types.Turn{Speaker: speaker, Text: text})
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSuffix(line, "\r")

		loc := markerPattern.FindStringSubmatchIndex(line)
		if loc == nil {
			if open {
				body = append(body, line)
			}
			continue
		}

		flush()
		open = true
		speaker = speakerFor(line[loc[2]:loc[3]])
		body = []string{strings.TrimSpace(line[loc[1]:])}
	}
	flush()

	return turns
}

// Format renders turns back into marker form, one "[USER]: " or
// "[ASSISTANT]: " marker per turn. Parse(Format(turns)) reproduces turns
// whose bodies are already trimmed.
func Format(turns []types.Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(Marker(t.Speaker))
		b.WriteByte(' ')
		b.WriteString(t.Text)
	}
	return b.String()
}

// Marker returns the canonical marker for a speaker.
func Marker(s types.Speaker) string {
	if s == types.SpeakerUser {
		return "[USER]:"
	}
	return "[ASSISTANT]:"
}

func speakerFor(token string) types.Speaker {
	if strings.EqualFold(token, "USER") {
		return types.SpeakerUser
	}
	return types.SpeakerAgent
}
