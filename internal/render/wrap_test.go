package render

import (
	"reflect"
	"strings"
	"testing"
)

func TestWrapCaption_RespectsExplicitNewlines(t *testing.T) {
	got := WrapCaption("first line\nsecond line", MemeLineChars)
	want := []string{"first line", "second line"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("WrapCaption() = %v, want %v", got, want)
	}
}

func TestWrapCaption_WrapsAtWordBoundaries(t *testing.T) {
	got := WrapCaption("one two three four five six seven eight", 12)
	for i, line := range got {
		if len(line) > 12 {
			t.Fatalf("line %d = %q exceeds budget of 12", i, line)
		}
	}
	if joined := strings.Join(got, " "); joined != "one two three four five six seven eight" {
		t.Fatalf("wrapped text lost words: %q", joined)
	}
}

func TestWrapCaption_OverlongWordStaysWhole(t *testing.T) {
	got := WrapCaption("supercalifragilistic", 8)
	want := []string{"supercalifragilistic"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("WrapCaption() = %v, want %v", got, want)
	}
}

func TestFontSizeFor_ClampsToRange(t *testing.T) {
	if got := FontSizeFor([]string{"hi"}); got != maxFontSize {
		t.Fatalf("short line font size = %d, want %d", got, maxFontSize)
	}
	long := strings.Repeat("x", 80)
	if got := FontSizeFor([]string{long}); got != minFontSize {
		t.Fatalf("long line font size = %d, want %d", got, minFontSize)
	}
}

func TestFontSizeFor_LongestLineWins(t *testing.T) {
	short := FontSizeFor([]string{"aaaa"})
	mixed := FontSizeFor([]string{"aaaa", strings.Repeat("a", 40)})
	if mixed >= short {
		t.Fatalf("mixed = %d, want smaller than short-only %d", mixed, short)
	}
}

func TestEscapeDrawtext(t *testing.T) {
	got := escapeDrawtext(`it's 5:00, really`)
	want := `it’s 5\:00\, really`
	if got != want {
		t.Fatalf("escapeDrawtext() = %q, want %q", got, want)
	}
}

func TestEscapeDrawtext_Backslash(t *testing.T) {
	if got := escapeDrawtext(`a\b`); got != `a\\b` {
		t.Fatalf("escapeDrawtext() = %q, want %q", got, `a\\b`)
	}
}
