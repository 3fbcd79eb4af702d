package translate

import (
	"fmt"
	"strings"

	"github.com/harunnryd/voxlate/pkg/languages"
)

// SystemPrompt instructs an LLM backend to act as a plain translator.
const SystemPrompt = "You are a translation engine. Translate the user's text into the requested language. " +
	"Reply with the translation only, without quotes, notes or transliteration."

// Prompt builds the user message for LLM backed translators.
func Prompt(text, target string) string {
	name := target
	if tag, ok := languages.Lookup(target); ok {
		name = tag.DisplayName + " (" + tag.Code + ")"
	}
	return fmt.Sprintf("Target language: %s\nText:\n%s", name, text)
}

// CleanOutput trims whitespace and wrapping quotes models sometimes add.
func CleanOutput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}
