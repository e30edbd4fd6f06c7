package assemble

import (
	"strings"

	"github.com/Aikinexis/flint/internal/types"
)

// Segment splits a document into candidate sections on blank-line boundaries
// and heading markers. A heading line starts a new section and is included in
// it; every section carries the nearest preceding heading text. Blank lines
// and heading markers inside fenced code blocks do not split.
func Segment(document string) []types.Section {
	var (
		sections   []types.Section
		heading    string
		inFence    bool
		curStart   = -1 // -1: no open section
		curEnd     int
		curHeading string
	)

	flush := func() {
		if curStart < 0 {
			return
		}
		text := strings.TrimRight(document[curStart:curEnd], " \t\n")
		if text != "" {
			sections = append(sections, types.Section{
				Text:        text,
				StartOffset: curStart,
				EndOffset:   curStart + len(text),
				Heading:     curHeading,
			})
		}
		curStart = -1
	}

	offset := 0
	for _, line := range strings.Split(document, "\n") {
		lineEnd := offset + len(line)
		trimmed := strings.TrimSpace(line)

		switch {
		case !inFence && trimmed == "":
			flush()
		case !inFence && strings.HasPrefix(trimmed, "#"):
			flush()
			heading = headingText(trimmed)
			curStart = offset
			curEnd = lineEnd
			curHeading = heading
		default:
			if strings.HasPrefix(trimmed, "```") {
				inFence = !inFence
			}
			if curStart < 0 {
				curStart = offset
				curHeading = heading
			}
			curEnd = lineEnd
		}

		offset = lineEnd + 1 // past the newline
	}
	flush()

	return sections
}

// NearestHeading returns the text of the heading closest before the given
// offset, or "" when no heading precedes it. Headings inside fenced code
// blocks are ignored.
func NearestHeading(document string, offset int) string {
	if offset > len(document) {
		offset = len(document)
	}

	var (
		heading string
		inFence bool
		pos     int
	)
	for _, line := range strings.Split(document, "\n") {
		if pos > offset {
			break
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "```"):
			inFence = !inFence
		case !inFence && strings.HasPrefix(trimmed, "#"):
			heading = headingText(trimmed)
		}
		pos += len(line) + 1
	}
	return heading
}

func headingText(line string) string {
	return strings.TrimSpace(strings.TrimLeft(line, "#"))
}
