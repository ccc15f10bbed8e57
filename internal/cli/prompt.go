package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

// PromptForDirectory asks for a directory path on in, showing defaultDir as
// the default. Returns defaultDir if the user enters nothing.
func PromptForDirectory(in io.Reader, out io.Writer, defaultDir string) string {
	fmt.Fprintf(out, "Photos directory [%s]: ", defaultDir)

	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		if err != io.EOF {
			log.Warn().Err(err).Msg("Failed to read input, using default directory")
		}
		return defaultDir
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return defaultDir
	}

	return input
}
