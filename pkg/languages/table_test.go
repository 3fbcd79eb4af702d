package languages

import "testing"

func TestLookupIsCaseInsensitive(t *testing.T) {
	tag, ok := Lookup("ZH-cn")
	if !ok {
		t.Fatalf("expected zh-CN to be found")
	}
	if tag.SynthesisLocale != "zh-CN" {
		t.Fatalf("unexpected locale %q", tag.SynthesisLocale)
	}
}

func TestResolveUnknownFallsBackToCode(t *testing.T) {
	tag := Resolve("xx")
	if tag.SynthesisLocale != "xx" || tag.Code != "xx" {
		t.Fatalf("unexpected fallback tag: %+v", tag)
	}
	if LocaleFor("xx", "en-US") != "en-US" {
		t.Fatalf("expected fallback locale")
	}
	if LocaleFor("hi", "en-US") != "hi-IN" {
		t.Fatalf("expected hi-IN")
	}
}

func TestDefaultsArePresent(t *testing.T) {
	for _, code := range []string{DefaultTarget, DefaultInput} {
		if _, ok := Lookup(code); !ok {
			t.Fatalf("default %q missing from table", code)
		}
	}
	tags := All()
	tags[0].Code = "mutated"
	if All()[0].Code == "mutated" {
		t.Fatalf("All must return a copy")
	}
}

func TestPrimary(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"hi-IN", "hi"},
		{"zh-TW", "zh"},
		{"en_US", "en"},
		{"FR", "fr"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Primary(tc.in); got != tc.want {
			t.Fatalf("Primary(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if !SamePrimary("hi-IN", "hi") {
		t.Fatalf("expected hi-IN and hi to share a primary subtag")
	}
	if SamePrimary("", "") {
		t.Fatalf("empty tags must not match")
	}
}
