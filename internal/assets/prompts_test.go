package assets

import (
	"strings"
	"testing"
)

func TestStylePrompt_AllBuiltins(t *testing.T) {
	for _, key := range []string{"classic", "artistic", "spicy", "social", "tags"} {
		t.Run(key, func(t *testing.T) {
			p, err := StylePrompt(key)
			if err != nil {
				t.Fatalf("StylePrompt(%q) error = %v", key, err)
			}
			if strings.TrimSpace(p) == "" {
				t.Errorf("StylePrompt(%q) is empty", key)
			}
			if strings.Contains(p, "{{") {
				t.Errorf("StylePrompt(%q) has unrendered template actions", key)
			}
		})
	}
}

func TestStylePrompt_Unknown(t *testing.T) {
	if _, err := StylePrompt("nope"); err == nil {
		t.Error("StylePrompt(nope) expected error, got nil")
	}
}

func TestOutputContract(t *testing.T) {
	c := OutputContract()
	for _, key := range []string{`"description"`, `"tags"`, `"suggested_filename"`, "ONLY a valid JSON object", "50 characters"} {
		if !strings.Contains(c, key) {
			t.Errorf("OutputContract() missing %q", key)
		}
	}
}
