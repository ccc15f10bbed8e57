package jsonutil

import "strings"

type scanState int

const (
	stateDefault scanState = iota
	stateInString
	stateJustEscaped
)

// ScanObject returns the substring starting at the first '{' and ending
// where brace depth returns to zero. Braces inside JSON strings are ignored;
// a backslash inside a string escapes exactly the next character. found is
// false when there is no '{' or the text ends before the object closes.
func ScanObject(text string) (candidate string, found bool) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return "", false
	}

	state := stateDefault
	depth := 0
	for i := start; i < len(text); i++ {
		c := text[i]
		switch state {
		case stateDefault:
			switch c {
			case '"':
				state = stateInString
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		case stateInString:
			switch c {
			case '\\':
				state = stateJustEscaped
			case '"':
				state = stateDefault
			}
		case stateJustEscaped:
			state = stateInString
		}
	}
	return "", false
}
