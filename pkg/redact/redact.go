// Package redact masks personal data in transcripts and translations before
// they reach logs or timeline files. History entries are never redacted.
package redact

import (
	"regexp"
	"strings"
	"sync/atomic"
	"unicode/utf8"
)

const (
	emailMask = "[REDACTED_EMAIL]"
	cardMask  = "[REDACTED_CARD]"
	phoneMask = "[REDACTED_PHONE]"
)

var enabled atomic.Bool

var (
	emailRe = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	// 13 to 19 digits, optionally grouped by spaces or dashes.
	cardRe  = regexp.MustCompile(`\b\d(?:[ \-]?\d){12,18}\b`)
	phoneRe = regexp.MustCompile(`\+?\d[\d\s\-]{7,}\d\b`)
)

func SetEnabled(v bool) {
	enabled.Store(v)
}

func Enabled() bool {
	return enabled.Load()
}

// Text masks emails, card numbers (Luhn valid) and phone numbers when
// redaction is enabled.
func Text(in string) string {
	if !enabled.Load() || strings.TrimSpace(in) == "" {
		return in
	}
	out := emailRe.ReplaceAllString(in, emailMask)
	out = cardRe.ReplaceAllStringFunc(out, func(m string) string {
		if luhn(m) {
			return cardMask
		}
		return m
	})
	return phoneRe.ReplaceAllString(out, phoneMask)
}

// Preview is Text cut to at most max runes.
func Preview(in string, max int) string {
	out := Text(in)
	if max <= 0 || utf8.RuneCountInString(out) <= max {
		return out
	}
	return string([]rune(out)[:max]) + "…"
}

func luhn(s string) bool {
	var sum, n int
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		if c < '0' || c > '9' {
			continue
		}
		d := int(c - '0')
		if n%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		n++
	}
	return n >= 13 && sum%10 == 0
}
