package languages

import (
	"strings"

	"golang.org/x/text/language"
)

// Primary returns the lower-case primary language subtag of a locale tag,
// e.g. "hi" for "hi-IN". Unparsable tags fall back to the text before the
// first '-' or '_'.
func Primary(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	if t, err := language.Parse(tag); err == nil {
		if base, conf := t.Base(); conf != language.No {
			return strings.ToLower(base.String())
		}
	}
	lower := strings.ToLower(tag)
	if idx := strings.IndexAny(lower, "-_"); idx >= 0 {
		lower = lower[:idx]
	}
	return lower
}

// SamePrimary reports whether two locale tags share a primary subtag.
func SamePrimary(a, b string) bool {
	pa := Primary(a)
	return pa != "" && pa == Primary(b)
}
