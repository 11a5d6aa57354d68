package linemap

import (
	"regexp"
	"strings"
)

// NoMatch is returned when a mapper has no confident answer.
const NoMatch = -1

// hoistedVar matches the declaration keyword the compiler moves to the top
// of the program: "var a = 10" is emitted as "a = 10".
var hoistedVar = regexp.MustCompile(`^var\s+`)

// FindLine returns the 1-based number of the source line that shares the
// longest prefix with line, or NoMatch if no line shares a single character.
//
// Error context lines carry the wrapper indentation plus one extra space,
// so a prefix of indentWidth+1 spaces is stripped from line first. Ties keep
// the earliest source line.
func FindLine(sourceLines []string, line string, indentWidth int) int {
	if indentWidth < 0 {
		indentWidth = 0
	}
	line = strings.TrimPrefix(line, strings.Repeat(" ", indentWidth+1))

	best, bestLen := NoMatch, 0
	for n, candidate := range sourceLines {
		candidate = hoistedVar.ReplaceAllString(candidate, "")
		if l := commonPrefixLen(line, candidate); l > bestLen {
			best, bestLen = n, l
		}
	}
	if best == NoMatch {
		return NoMatch
	}
	return best + 1
}

func commonPrefixLen(a, b string) int {
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}
	return i
}
