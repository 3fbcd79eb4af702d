package translate

import (
	"strings"
	"testing"
)

func TestPromptNamesLanguage(t *testing.T) {
	p := Prompt("hello", "hi")
	if !strings.Contains(p, "Hindi (hi)") || !strings.HasSuffix(p, "hello") {
		t.Fatalf("unexpected prompt %q", p)
	}
	if !strings.Contains(Prompt("x", "xx"), "Target language: xx") {
		t.Fatalf("unknown codes should pass through")
	}
}

func TestCleanOutput(t *testing.T) {
	cases := map[string]string{
		` "bonjour" `: "bonjour",
		"'hola'":      "hola",
		"ciao\n":      "ciao",
		`"`:           `"`,
	}
	for in, want := range cases {
		if got := CleanOutput(in); got != want {
			t.Fatalf("CleanOutput(%q) = %q, want %q", in, got, want)
		}
	}
}
