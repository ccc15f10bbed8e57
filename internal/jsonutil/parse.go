// Package jsonutil recovers a JSON object from free-form LLM responses that
// may wrap it in markdown code fences, surround it with prose, or trail off
// after it.
package jsonutil

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Tier identifies which extraction strategy produced the object.
type Tier int

const (
	// TierNone means no strategy produced a JSON object.
	TierNone Tier = iota
	// TierWhole is the entire (trimmed) response.
	TierWhole
	// TierFenced is the interior of a ```json fenced block.
	TierFenced
	// TierPattern is an object-shaped substring with at most one level of nesting.
	TierPattern
	// TierScan is the brace-balanced substring found by the string-aware scanner.
	TierScan
)

// String returns a short label used in logs and metrics.
func (t Tier) String() string {
	switch t {
	case TierWhole:
		return "whole"
	case TierFenced:
		return "fenced"
	case TierPattern:
		return "pattern"
	case TierScan:
		return "scan"
	default:
		return "none"
	}
}

var (
	fencedJSON   = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	nestedObject = regexp.MustCompile(`\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)
)

// ExtractObject runs the extraction tiers in order and returns the first
// candidate that decodes as a JSON object. ok is false when every tier fails;
// it never panics on arbitrary input.
func ExtractObject(text string) (obj map[string]json.RawMessage, tier Tier, ok bool) {
	text = strings.TrimSpace(text)

	if obj, ok := decodeObject(text); ok {
		return obj, TierWhole, true
	}

	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		if obj, ok := decodeObject(m[1]); ok {
			return obj, TierFenced, true
		}
	}

	if m := nestedObject.FindString(text); m != "" {
		if obj, ok := decodeObject(m); ok {
			return obj, TierPattern, true
		}
	}

	if candidate, found := ScanObject(text); found {
		if obj, ok := decodeObject(candidate); ok {
			return obj, TierScan, true
		}
	}

	return nil, TierNone, false
}

// decodeObject reports whether s is a JSON object. A literal null decodes
// into a nil map and is rejected.
func decodeObject(s string) (map[string]json.RawMessage, bool) {
	if s == "" {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}
