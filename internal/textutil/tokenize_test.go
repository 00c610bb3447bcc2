package textutil

import (
	"reflect"
	"testing"
)

func TestTokenize_StripsCommentsAndStopWords(t *testing.T) {
	src := `// line comment with secretWord
/* block
   comment hiddenToken */
<!-- html hiddenMarkup -->
func handleRequest(ctx) { return parseBody(ctx) }`

	got := Tokenize(src)
	want := []string{"handlerequest", "ctx", "parsebody", "ctx"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected tokens: %v", got)
	}
}

func TestTokenize_Deterministic(t *testing.T) {
	src := "buildGraph computeLayout buildGraph"
	first := Tokenize(src)
	second := Tokenize(src)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("tokenize not deterministic: %v vs %v", first, second)
	}
}

func TestTokenize_DropsShortTokens(t *testing.T) {
	got := Tokenize("ab abc x yz foo")
	want := []string{"abc", "foo"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected tokens: %v", got)
	}
}

func TestTokenize_InvalidUTF8(t *testing.T) {
	if got := Tokenize(string([]byte{0xff, 0xfe, 'a'})); got != nil {
		t.Fatalf("invalid utf-8 should yield nil, got %v", got)
	}
}

func TestTokenize_Empty(t *testing.T) {
	if got := Tokenize(""); got != nil {
		t.Fatalf("empty input should yield nil, got %v", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello world", 5); got != "hello…" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("short strings must pass through, got %q", got)
	}
}

func TestFormatTimeSpan(t *testing.T) {
	if got := FormatTimeSpan(90 * 60 * 1000); got != "1h 30m" {
		t.Fatalf("unexpected span: %q", got)
	}
	if got := FormatTimeSpan(0); got != "0h 0m" {
		t.Fatalf("unexpected zero span: %q", got)
	}
}
