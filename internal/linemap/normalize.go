package linemap

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// WrapperHeaderLines is the number of lines the JavaScript wrapper emits
// before the first line of the user's program. Positions reported against
// the wrapped program are this many lines past the original.
const WrapperHeaderLines = 5

var (
	syntaxErrorPattern = regexp.MustCompile(`SyntaxError[^\d]*\d*`)
	positionPattern    = regexp.MustCompile(`:(\d+):\d*:.*:(.*)`)
)

// Normalized is an error rewritten against original source lines.
type Normalized struct {
	Error     string
	Traceback string
	Line      int
}

// NormalizeJavaScriptError rewrites the first line of a wrapped-program
// error of the form "<prefix>:<line>:<col>:<rest>:<tail>" into
// "Error in line <line-WrapperHeaderLines>:<tail>", and rebuilds the
// traceback from the second and third lines of errText.
//
// Syntax errors keep their own positions and are left alone, as is text
// that carries no position. ok is false whenever errText was not rewritten.
func NormalizeJavaScriptError(errText string) (n Normalized, ok bool) {
	if syntaxErrorPattern.MatchString(errText) {
		return Normalized{}, false
	}

	lines := strings.Split(errText, "\n")
	m := positionPattern.FindStringSubmatch(lines[0])
	if m == nil {
		return Normalized{}, false
	}
	wrapped, err := strconv.Atoi(m[1])
	if err != nil {
		return Normalized{}, false
	}

	line := wrapped - WrapperHeaderLines
	n = Normalized{
		Error: fmt.Sprintf("Error in line %d:%s", line, strings.TrimSpace(m[2])),
		Line:  line,
	}
	if len(lines) > 1 {
		end := 3
		if len(lines) < end {
			end = len(lines)
		}
		n.Traceback = strings.Join(lines[1:end], "\n")
	}
	return n, true
}
