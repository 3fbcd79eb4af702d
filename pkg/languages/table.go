// Package languages holds the static table of translation targets and the
// locale helpers used to pick recognition hints and synthesis voices.
package languages

import (
	"strings"
)

// Tag is one selectable language. Code keys translation requests and history
// entries; SynthesisLocale is the BCP-47 tag used for voices and recognition.
type Tag struct {
	Code            string `json:"code"`
	DisplayName     string `json:"name"`
	SynthesisLocale string `json:"tts"`
}

const (
	DefaultTarget = "hi"
	DefaultInput  = "en"
)

var all = []Tag{
	{Code: "en", DisplayName: "English", SynthesisLocale: "en-US"},
	{Code: "hi", DisplayName: "Hindi", SynthesisLocale: "hi-IN"},
	{Code: "te", DisplayName: "Telugu", SynthesisLocale: "te-IN"},
	{Code: "ta", DisplayName: "Tamil", SynthesisLocale: "ta-IN"},
	{Code: "ml", DisplayName: "Malayalam", SynthesisLocale: "ml-IN"},
	{Code: "kn", DisplayName: "Kannada", SynthesisLocale: "kn-IN"},
	{Code: "bn", DisplayName: "Bengali", SynthesisLocale: "bn-IN"},
	{Code: "gu", DisplayName: "Gujarati", SynthesisLocale: "gu-IN"},
	{Code: "mr", DisplayName: "Marathi", SynthesisLocale: "mr-IN"},
	{Code: "pa", DisplayName: "Punjabi", SynthesisLocale: "pa-IN"},
	{Code: "ur", DisplayName: "Urdu", SynthesisLocale: "ur-IN"},

	{Code: "zh-CN", DisplayName: "Chinese (Simplified)", SynthesisLocale: "zh-CN"},
	{Code: "zh-TW", DisplayName: "Chinese (Traditional)", SynthesisLocale: "zh-TW"},
	{Code: "ja", DisplayName: "Japanese", SynthesisLocale: "ja-JP"},
	{Code: "ko", DisplayName: "Korean", SynthesisLocale: "ko-KR"},
	{Code: "th", DisplayName: "Thai", SynthesisLocale: "th-TH"},
	{Code: "vi", DisplayName: "Vietnamese", SynthesisLocale: "vi-VN"},

	{Code: "ar", DisplayName: "Arabic", SynthesisLocale: "ar-SA"},
	{Code: "fa", DisplayName: "Persian (Farsi)", SynthesisLocale: "fa-IR"},
	{Code: "tr", DisplayName: "Turkish", SynthesisLocale: "tr-TR"},

	{Code: "fr", DisplayName: "French", SynthesisLocale: "fr-FR"},
	{Code: "es", DisplayName: "Spanish", SynthesisLocale: "es-ES"},
	{Code: "de", DisplayName: "German", SynthesisLocale: "de-DE"},
	{Code: "it", DisplayName: "Italian", SynthesisLocale: "it-IT"},
	{Code: "pt", DisplayName: "Portuguese", SynthesisLocale: "pt-PT"},
	{Code: "nl", DisplayName: "Dutch", SynthesisLocale: "nl-NL"},
	{Code: "pl", DisplayName: "Polish", SynthesisLocale: "pl-PL"},
	{Code: "sv", DisplayName: "Swedish", SynthesisLocale: "sv-SE"},
	{Code: "no", DisplayName: "Norwegian", SynthesisLocale: "no-NO"},
	{Code: "da", DisplayName: "Danish", SynthesisLocale: "da-DK"},
	{Code: "fi", DisplayName: "Finnish", SynthesisLocale: "fi-FI"},
	{Code: "ro", DisplayName: "Romanian", SynthesisLocale: "ro-RO"},
	{Code: "cs", DisplayName: "Czech", SynthesisLocale: "cs-CZ"},

	{Code: "sw", DisplayName: "Swahili", SynthesisLocale: "sw-KE"},
	{Code: "am", DisplayName: "Amharic", SynthesisLocale: "am-ET"},

	{Code: "id", DisplayName: "Indonesian", SynthesisLocale: "id-ID"},
	{Code: "ms", DisplayName: "Malay", SynthesisLocale: "ms-MY"},
	{Code: "uk", DisplayName: "Ukrainian", SynthesisLocale: "uk-UA"},
	{Code: "ru", DisplayName: "Russian", SynthesisLocale: "ru-RU"},
}

var byCode = func() map[string]Tag {
	out := make(map[string]Tag, len(all))
	for _, t := range all {
		out[strings.ToLower(t.Code)] = t
	}
	return out
}()

// All returns a copy of the language table in display order.
func All() []Tag {
	out := make([]Tag, len(all))
	copy(out, all)
	return out
}

// Lookup finds a tag by code, case-insensitively.
func Lookup(code string) (Tag, bool) {
	t, ok := byCode[strings.ToLower(strings.TrimSpace(code))]
	return t, ok
}

// Resolve returns the tag for code. Unknown codes resolve to a tag whose
// synthesis locale is the code itself.
func Resolve(code string) Tag {
	if t, ok := Lookup(code); ok {
		return t
	}
	code = strings.TrimSpace(code)
	return Tag{Code: code, DisplayName: code, SynthesisLocale: code}
}

// LocaleFor returns the synthesis locale for code, falling back to fallback
// when the code is not in the table.
func LocaleFor(code, fallback string) string {
	if t, ok := Lookup(code); ok {
		return t.SynthesisLocale
	}
	return fallback
}
