package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/comix-generator/internal/comix"
)

// Prompter reads answers line by line.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask prints label and returns the trimmed answer. A read failure or EOF
// yields whatever was typed so far.
func (p *Prompter) Ask(label string) string {
	fmt.Fprintf(p.out, "%s: ", label)

	input, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		log.Warn().Err(err).Str("prompt", label).Msg("Failed to read input")
	}
	return strings.TrimSpace(input)
}

// FillInputs asks for the title and every caption that is still empty.
// Captions left empty after prompting are reported by the controller.
func FillInputs(ask func(label string) string, title string, captions [comix.CaptionCount]string, titleSet bool) (string, [comix.CaptionCount]string) {
	if !titleSet && title == "" {
		title = ask("Title (optional)")
	}
	for i := range captions {
		if strings.TrimSpace(captions[i]) == "" {
			captions[i] = ask(fmt.Sprintf("Caption %d", i+1))
		}
	}
	return title, captions
}
