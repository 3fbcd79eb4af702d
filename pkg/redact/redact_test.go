package redact

import (
	"strings"
	"testing"
)

func TestRedactDisabled(t *testing.T) {
	SetEnabled(false)
	in := "email a@b.com and phone +62 812 3456 7890"
	if got := Text(in); got != in {
		t.Fatalf("expected no redaction, got %q", got)
	}
}

func TestRedactEnabled(t *testing.T) {
	SetEnabled(true)
	in := "email a@b.com and phone +62 812 3456 7890"
	got := Text(in)
	if got == in {
		t.Fatalf("expected redaction")
	}
	if want := "[REDACTED_EMAIL]"; !strings.Contains(got, want) {
		t.Fatalf("expected %q in output", want)
	}
	if want := "[REDACTED_PHONE]"; !strings.Contains(got, want) {
		t.Fatalf("expected %q in output", want)
	}
}

func TestPreviewTruncatesRunes(t *testing.T) {
	SetEnabled(false)
	got := Preview("नमस्ते दुनिया", 3)
	if got != "नमस…" {
		t.Fatalf("unexpected preview %q", got)
	}
	if got := Preview("short", 10); got != "short" {
		t.Fatalf("expected untouched text, got %q", got)
	}
}

func TestRedactCardNumbers(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)
	got := Text("my card is 4111 1111 1111 1111 ok")
	if got != "my card is [REDACTED_CARD] ok" {
		t.Fatalf("unexpected redaction %q", got)
	}
	// Not Luhn valid, so treated as a phone number.
	if got := Text("call 4111-1111-1111-1112"); strings.Contains(got, cardMask) || !strings.Contains(got, phoneMask) {
		t.Fatalf("unexpected redaction %q", got)
	}
}
