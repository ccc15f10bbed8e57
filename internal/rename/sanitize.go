package rename

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxBaseLength caps a sanitized base name in bytes so that base, suffix,
// and extension stay well inside common filesystem name limits.
const MaxBaseLength = 100

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

var asciiFold = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
)

// SanitizeBaseName turns a model-suggested name into a safe file base name.
// Accents are folded to ASCII and other non-ASCII runes dropped. Path
// separators and whitespace runs become a single underscore, anything outside
// [A-Za-z0-9_.-] is removed, and leading/trailing dots and underscores are
// trimmed. Case is preserved. The result may be empty.
func SanitizeBaseName(name string) string {
	folded, _, err := transform.String(asciiFold, name)
	if err != nil {
		folded = name
	}

	folded = strings.NewReplacer("/", " ", "\\", " ").Replace(folded)
	folded = strings.Join(strings.Fields(folded), "_")
	folded = unsafeChars.ReplaceAllString(folded, "")
	folded = strings.Trim(folded, "._")

	if len(folded) > MaxBaseLength {
		folded = strings.Trim(folded[:MaxBaseLength], "._")
	}
	return folded
}
