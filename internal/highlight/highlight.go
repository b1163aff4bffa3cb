// Package highlight implements the cosmetic code colouring applied to
// revealed lines. It is a stateless text to markup transform.
package highlight

import (
	"html"
	"regexp"
	"strings"
)

// FenceMarker is the substring that enables highlighting of a line
const FenceMarker = "```"

// Class is the token class of a highlighted span
type Class string

const (
	Keyword Class = "keyword"
	String  Class = "string"
	Comment Class = "comment"
	Number  Class = "number"
)

// Renderer turns a classified token into its rendered form
type Renderer func(class Class, token string) string

// Escaper renders text that is not part of any token
type Escaper func(text string) string

// Earlier alternatives win when several match at the same position
var tokenPattern = regexp.MustCompile(
	`(?m)(//.*$)` +
		`|("(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*')` +
		`|\b(function|const|let|var|if|else|for|while|return)\b` +
		`|\b(\d+)\b`,
)

var groupClasses = []Class{Comment, String, Keyword, Number}

// Applies reports whether text carries a fence marker
func Applies(text string) bool {
	return strings.Contains(text, FenceMarker)
}

// Highlight tokenizes text in a single pass and renders each token with
// render; the remaining text goes through escape.
func Highlight(text string, render Renderer, escape Escaper) string {
	if escape == nil {
		escape = func(s string) string { return s }
	}

	var b strings.Builder
	last := 0

	for _, m := range tokenPattern.FindAllStringSubmatchIndex(text, -1) {
		class, ok := classOf(m)
		if !ok {
			continue
		}
		b.WriteString(escape(text[last:m[0]]))
		b.WriteString(render(class, text[m[0]:m[1]]))
		last = m[1]
	}
	b.WriteString(escape(text[last:]))

	return b.String()
}

func classOf(match []int) (Class, bool) {
	for i, class := range groupClasses {
		if match[2*(i+1)] >= 0 {
			return class, true
		}
	}
	return "", false
}

// Markup renders tokens as HTML spans carrying their class
func Markup(class Class, token string) string {
	return `<span class="` + string(class) + `">` + html.EscapeString(token) + `</span>`
}

// HTML highlights text into escaped HTML markup
func HTML(text string) string {
	return Highlight(text, Markup, html.EscapeString)
}
