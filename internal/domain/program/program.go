package program

import (
	"fmt"
	"strings"
)

// Language is the source language declared by a program's header.
type Language string

const (
	JavaScript   Language = "javascript"
	CoffeeScript Language = "coffeescript"
	GlowScript   Language = "glowscript"
	VPython      Language = "vpython"
)

// ParseLanguage validates a language name. Matching is case-insensitive.
func ParseLanguage(s string) (Language, error) {
	switch l := Language(strings.ToLower(strings.TrimSpace(s))); l {
	case JavaScript, CoffeeScript, GlowScript, VPython:
		return l, nil
	default:
		return "", fmt.Errorf("unsupported language %q", s)
	}
}

// Program is the original text of a program run inside a frame.
type Program struct {
	Lines       []string
	Language    Language
	IndentWidth int
}

// New splits source into lines and validates its settings.
func New(source string, language string, indentWidth int) (*Program, error) {
	lang, err := ParseLanguage(language)
	if err != nil {
		return nil, err
	}
	if indentWidth < 0 {
		return nil, fmt.Errorf("indent width must not be negative, got %d", indentWidth)
	}
	source = strings.ReplaceAll(source, "\r\n", "\n")
	return &Program{
		Lines:       strings.Split(source, "\n"),
		Language:    lang,
		IndentWidth: indentWidth,
	}, nil
}

// Source joins the program lines back together.
func (p *Program) Source() string {
	return strings.Join(p.Lines, "\n")
}

// Indent returns the indentation the wrapper places before each line.
func (p *Program) Indent() string {
	return strings.Repeat(" ", p.IndentWidth)
}
