// Package assets provides embedded static assets for the application.
//
// Prompt texts are stored as text files under prompts/ and embedded at compile time.
// Every style prompt is a template rendered with PromptData.

package assets

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

// MaxFilenameLength is the filename length the prompts ask the model to stay under.
const MaxFilenameLength = 50

//go:embed prompts/*.txt
var promptFS embed.FS

// PromptData holds the dynamic data injected into prompt templates.
type PromptData struct {
	MaxFilenameLength int
}

// Pre-parsed templates. template.Must panics on malformed templates,
// catching errors at program startup rather than at call time.
var promptTmpls = template.Must(template.ParseFS(promptFS, "prompts/*.txt"))

// OutputContract returns the JSON output contract appended to every prompt.
func OutputContract() string {
	return render("output-contract.txt")
}

// StylePrompt returns the rendered prompt body for the named built-in style
// (the file prompts/<key>.txt), without the output contract.
func StylePrompt(key string) (string, error) {
	name := key + ".txt"
	if promptTmpls.Lookup(name) == nil {
		return "", fmt.Errorf("no prompt template for style %q", key)
	}
	return render(name), nil
}

// render executes a pre-parsed template with the default prompt data.
func render(name string) string {
	var buf bytes.Buffer
	// Template execution errors are not expected with our simple templates,
	// but we handle them gracefully by returning whatever was rendered.
	_ = promptTmpls.ExecuteTemplate(&buf, name, PromptData{MaxFilenameLength: MaxFilenameLength})
	return buf.String()
}
