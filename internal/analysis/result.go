package analysis

import (
	"encoding/json"
	"strings"

	"github.com/fpang/ai-gallery/internal/jsonutil"
)

// Result is what the vision model said about one media item.
type Result struct {
	Description       string   `json:"description"`
	Tags              []string `json:"tags"`
	SuggestedFilename string   `json:"suggested_filename"`
}

// ResultFromText builds a Result from a raw model answer. It never fails: when
// no JSON object can be recovered the whole trimmed answer becomes the
// description, with no tags and no suggested filename. The returned tier is
// jsonutil.TierNone in that case.
func ResultFromText(raw string) (Result, jsonutil.Tier) {
	obj, tier, ok := jsonutil.ExtractObject(raw)
	if !ok {
		return Result{Description: strings.TrimSpace(raw), Tags: []string{}}, jsonutil.TierNone
	}

	return Result{
		Description:       stringField(obj["description"]),
		Tags:              tagsField(obj["tags"]),
		SuggestedFilename: stringField(obj["suggested_filename"]),
	}, tier
}

// stringField decodes a JSON string. Other scalars and structures keep their
// JSON text; absent and null values are "".
func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return ""
	}
	return text
}

// tagsField decodes the tags value. Array elements that are not strings are
// stringified. A bare string is split on commas.
func tagsField(raw json.RawMessage) []string {
	tags := []string{}
	if len(raw) == 0 {
		return tags
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err == nil {
		for _, e := range elems {
			if s := stringField(e); s != "" {
				tags = append(tags, s)
			}
		}
		return tags
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		for _, part := range strings.Split(s, ",") {
			tags = append(tags, part)
		}
	}
	return tags
}

// CleanTags trims every tag, drops empty ones and removes case-insensitive
// duplicates, keeping the first spelling seen.
func CleanTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		cleaned = append(cleaned, tag)
	}
	return cleaned
}
