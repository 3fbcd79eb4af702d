package configutil

import (
	"sort"
	"strings"
)

// Schema lists the keys a vendor settings map may carry.
type Schema struct {
	Required     []string
	Optional     []string
	AllowUnknown bool
}

// SettingsError reports every problem of one settings map at once so a
// config can be fixed in a single pass.
type SettingsError struct {
	Missing []string
	// Unknown maps an unrecognized key to the closest allowed key, or "".
	Unknown map[string]string
}

func (e *SettingsError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unknown) > 0 {
		keys := make([]string, 0, len(e.Unknown))
		for k := range e.Unknown {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if hint := e.Unknown[k]; hint != "" {
				keys[i] = k + " (did you mean " + hint + "?)"
			}
		}
		parts = append(parts, "unknown: "+strings.Join(keys, ", "))
	}
	return strings.Join(parts, "; ")
}

// ValidateSettings checks input against schema. Keys match regardless of
// case, underscores and hyphens. Blank strings count as missing.
func ValidateSettings(input map[string]any, schema Schema) error {
	allowed := make(map[string]string, len(schema.Required)+len(schema.Optional))
	for _, k := range schema.Optional {
		allowed[normalizeKey(k)] = k
	}
	present := make(map[string]bool, len(input))
	serr := &SettingsError{}
	for k, v := range input {
		nk := normalizeKey(k)
		present[nk] = !isEmptyValue(v)
		if _, ok := allowed[nk]; ok || schema.AllowUnknown || contains(schema.Required, nk) {
			continue
		}
		if serr.Unknown == nil {
			serr.Unknown = make(map[string]string)
		}
		serr.Unknown[k] = closestKey(nk, schema)
	}
	for _, k := range schema.Required {
		if !present[normalizeKey(k)] {
			serr.Missing = append(serr.Missing, k)
		}
	}
	if len(serr.Missing) == 0 && len(serr.Unknown) == 0 {
		return nil
	}
	sort.Strings(serr.Missing)
	return serr
}

func contains(keys []string, normalized string) bool {
	for _, k := range keys {
		if normalizeKey(k) == normalized {
			return true
		}
	}
	return false
}

// closestKey suggests an allowed key within two edits of key.
func closestKey(key string, schema Schema) string {
	best, bestDist := "", 3
	for _, group := range [][]string{schema.Required, schema.Optional} {
		for _, k := range group {
			if d := editDistance(key, normalizeKey(k)); d < bestDist {
				best, bestDist = k, d
			}
		}
	}
	return best
}

func editDistance(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}
