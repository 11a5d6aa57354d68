package program

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/GriffinCanCode/framehost/internal/channel"
	"github.com/GriffinCanCode/framehost/internal/linemap"
)

var (
	compiledLinePattern  = regexp.MustCompile(`(?i)\bline\s+(\d+)`)
	compiledColonPattern = regexp.MustCompile(`:(\d+):\d+`)

	strict = bluemonday.StrictPolicy()
)

// Reporter rewrites frame error reports for one program and tells onBuilt
// whether a line was recovered.
type Reporter struct {
	program *Program
	onBuilt func(language Language, mapped bool)
}

// NewReporter creates a reporter for p. onBuilt may be nil.
func NewReporter(p *Program, onBuilt func(language Language, mapped bool)) *Reporter {
	return &Reporter{program: p, onBuilt: onBuilt}
}

// Normalize is a channel.ErrorNormalizer.
func (r *Reporter) Normalize(report channel.ErrorReport) channel.ErrorReport {
	out := r.program.BuildReport(report)
	if r.onBuilt != nil {
		r.onBuilt(r.program.Language, out.Line > 0)
	}
	return out
}

// BuildReport maps report onto the original source. The error text is
// always kept; Line is set only when a mapper found a line inside the
// program.
func (p *Program) BuildReport(report channel.ErrorReport) channel.ErrorReport {
	report.Line = 0

	switch p.Language {
	case JavaScript:
		if n, ok := linemap.NormalizeJavaScriptError(report.Error); ok {
			report.Error = n.Error
			if n.Traceback != "" {
				report.Traceback = n.Traceback
			}
			report.Line = p.clamp(n.Line)
		}
	case CoffeeScript:
		if compiled, ok := compiledLine(report.Error); ok {
			if idx := linemap.InsertLineNumbers(p.Lines, compiled); idx != linemap.NoMatch {
				report.Line = p.clamp(idx + 1)
			}
		}
	case GlowScript, VPython:
		if ctx, ok := firstContextLine(report.Traceback); ok {
			if n := linemap.FindLine(p.Lines, ctx, p.IndentWidth); n != linemap.NoMatch {
				report.Line = p.clamp(n)
			}
		}
	}
	return report
}

func (p *Program) clamp(line int) int {
	if line < 1 || line > len(p.Lines) {
		return 0
	}
	return line
}

func compiledLine(errText string) (int, bool) {
	m := compiledLinePattern.FindStringSubmatch(errText)
	if m == nil {
		m = compiledColonPattern.FindStringSubmatch(errText)
	}
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func firstContextLine(traceback string) (string, bool) {
	for _, line := range strings.Split(traceback, "\n") {
		if strings.TrimSpace(line) != "" {
			return line, true
		}
	}
	return "", false
}

// Sanitize strips markup from a report so it can be shown by the host UI
// as plain text. Frame data is untrusted; entities escaped by the policy
// are decoded again so quotes and operators survive.
func Sanitize(report channel.ErrorReport) channel.ErrorReport {
	report.Error = plainText(report.Error)
	report.Traceback = plainText(report.Traceback)
	return report
}

func plainText(s string) string {
	return html.UnescapeString(strict.Sanitize(s))
}
