// Package styles is the catalog of description styles. Each style resolves
// to a complete prompt ending with the shared JSON output contract.
package styles

import (
	"errors"
	"strings"

	"github.com/fpang/ai-gallery/internal/assets"
	"github.com/rs/zerolog/log"
)

// Style keys.
const (
	KeyClassic  = "classic"
	KeyArtistic = "artistic"
	KeySpicy    = "spicy"
	KeySocial   = "social"
	KeyTags     = "tags"
	KeyCustom   = "custom"
)

// DefaultKey is used when no style, or an unknown one, is requested.
const DefaultKey = KeyClassic

// ErrEmptyCustomPrompt is returned when the custom style is requested
// without any prompt text.
var ErrEmptyCustomPrompt = errors.New("custom style requires prompt text")

// Style is either a built-in Preset or a caller-supplied Custom prompt.
type Style interface {
	// Key returns the style identifier.
	Key() string
	// Prompt returns the full prompt, output contract included.
	Prompt() string

	isStyle()
}

// Info is the display view of a style. It never carries prompt text.
type Info struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Preset is a built-in style with an embedded prompt body.
type Preset struct {
	info Info
	body string
}

// Key returns the preset key.
func (p Preset) Key() string { return p.info.Key }

// Info returns the display view.
func (p Preset) Info() Info { return p.info }

// Prompt returns the preset body followed by the output contract.
func (p Preset) Prompt() string { return withContract(p.body) }

func (Preset) isStyle() {}

// Custom is a style whose prompt text is supplied by the caller.
type Custom struct {
	Text string
}

// Key returns KeyCustom.
func (Custom) Key() string { return KeyCustom }

// Prompt returns the caller's text followed by the output contract.
func (c Custom) Prompt() string { return withContract(c.Text) }

func (Custom) isStyle() {}

var customInfo = Info{Key: KeyCustom, Name: "Custom", Description: "Use your own custom prompt"}

// presets in display order. Bodies come from the embedded prompt files.
var presets = []Preset{
	newPreset(Info{Key: KeyClassic, Name: "Classic", Description: "Concise and factual (1-3 sentences)"}),
	newPreset(Info{Key: KeyArtistic, Name: "Artistic", Description: "Detailed, poetic, and creative description"}),
	newPreset(Info{Key: KeySpicy, Name: "Spicy", Description: "Provocative and attention-grabbing style"}),
	newPreset(Info{Key: KeySocial, Name: "Social Media", Description: "Optimized for Instagram, Facebook, Twitter"}),
	newPreset(Info{Key: KeyTags, Name: "Tags Only", Description: "Generate only tags/keywords without description"}),
}

func newPreset(info Info) Preset {
	body, err := assets.StylePrompt(info.Key)
	if err != nil {
		panic(err)
	}
	return Preset{info: info, body: body}
}

func withContract(body string) string {
	return strings.TrimSpace(body) + "\n\n" + assets.OutputContract()
}

// List returns every style in display order, including custom.
func List() []Info {
	out := make([]Info, 0, len(presets)+1)
	for _, p := range presets {
		out = append(out, p.info)
	}
	return append(out, customInfo)
}

// Lookup returns the preset with the given key.
func Lookup(key string) (Preset, bool) {
	for _, p := range presets {
		if p.info.Key == key {
			return p, true
		}
	}
	return Preset{}, false
}

// Default returns the classic preset.
func Default() Preset {
	p, _ := Lookup(DefaultKey)
	return p
}

// Resolve maps a requested style key and optional custom text to a Style.
// The custom key needs non-blank text. Empty and unknown keys fall back to
// the default preset.
func Resolve(key, customText string) (Style, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == KeyCustom {
		if strings.TrimSpace(customText) == "" {
			return nil, ErrEmptyCustomPrompt
		}
		return Custom{Text: strings.TrimSpace(customText)}, nil
	}
	if key == "" {
		return Default(), nil
	}
	if p, ok := Lookup(key); ok {
		return p, nil
	}
	log.Warn().Str("style", key).Str("fallback", DefaultKey).Msg("Unknown style, using default")
	return Default(), nil
}
