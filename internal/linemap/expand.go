package linemap

import (
	"strings"
	"unicode"
)

const (
	// HeaderLines is the number of leading source lines (version header and
	// blank separator) that never produce generated code.
	HeaderLines = 2

	// StatementExpansion is the number of generated lines each significant
	// CoffeeScript statement expands to in the compiled output.
	StatementExpansion = 3

	// errorLineSlack is subtracted from the reported line before comparing
	// against the running generated-line count.
	errorLineSlack = 2

	blockCommentMarker = "###"
)

// InsertLineNumbers maps a line number in compiled output back to the
// 0-based index of the original source line, assuming every significant
// statement expands to StatementExpansion generated lines.
//
// Header lines and the trailing line are not scanned. Lines inside ###
// block comments, blank lines and # comments do not count. Returns NoMatch
// when the source runs out before errorLine is reached.
func InsertLineNumbers(sourceLines []string, errorLine int) int {
	inComment := false
	generated := 0
	for n := HeaderLines; n < len(sourceLines)-1; n++ {
		line := strings.TrimLeftFunc(sourceLines[n], unicode.IsSpace)
		if strings.HasPrefix(line, blockCommentMarker) {
			inComment = !inComment
			continue
		}
		if inComment || line == "" || line[0] == '#' {
			continue
		}
		generated += StatementExpansion
		if generated >= errorLine-errorLineSlack {
			return n
		}
	}
	return NoMatch
}
