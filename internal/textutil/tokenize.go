package textutil

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentRe  = regexp.MustCompile(`//[^\n]*`)
	htmlCommentRe  = regexp.MustCompile(`(?s)<!--.*?-->`)
	identifierRe   = regexp.MustCompile(`[A-Za-z_$][A-Za-z0-9_$]*`)
)

// stopWords covers control-flow and declaration keywords shared across the
// mainstream languages the companion observes. Tokens of length <= 2 are
// dropped before this filter applies.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {},
	"all": {}, "can": {}, "was": {}, "var": {}, "let": {}, "const": {},
	"function": {}, "func": {}, "return": {}, "returns": {}, "else": {},
	"elif": {}, "while": {}, "class": {}, "struct": {}, "interface": {},
	"import": {}, "export": {}, "from": {}, "async": {}, "await": {},
	"new": {}, "this": {}, "self": {}, "typeof": {}, "instanceof": {},
	"switch": {}, "case": {}, "break": {}, "continue": {}, "default": {},
	"try": {}, "catch": {}, "finally": {}, "throw": {}, "throws": {},
	"delete": {}, "void": {}, "yield": {}, "static": {}, "public": {},
	"private": {}, "protected": {}, "null": {}, "none": {}, "nil": {},
	"true": {}, "false": {}, "undefined": {}, "def": {}, "end": {},
	"then": {}, "when": {}, "with": {}, "pass": {}, "lambda": {},
	"package": {}, "type": {}, "range": {}, "chan": {}, "defer": {},
	"extends": {}, "implements": {}, "super": {}, "abstract": {},
}

// Tokenize strips comments and extracts lowercased identifier tokens,
// dropping stop words and tokens of length <= 2. Deterministic; no I/O.
func Tokenize(text string) []string {
	if text == "" || !utf8.ValidString(text) {
		return nil
	}
	text = blockCommentRe.ReplaceAllString(text, " ")
	text = lineCommentRe.ReplaceAllString(text, " ")
	text = htmlCommentRe.ReplaceAllString(text, " ")

	matches := identifierRe.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(m) <= 2 {
			continue
		}
		token := strings.ToLower(m)
		if _, stop := stopWords[token]; stop {
			continue
		}
		out = append(out, token)
	}
	return out
}
