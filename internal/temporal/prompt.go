package temporal

import (
	"fmt"
	"io"
	"time"

	"github.com/chzyer/readline"
)

const (
	StartPrompt = "Please enter search start date (i.e. 2017,07,01): "
	EndPrompt   = "Please enter search end date (i.e. 2017,08,20): "
)

// LineReader reads one line of user input after showing a prompt.
// *readline.Instance satisfies it.
type LineReader interface {
	SetPrompt(prompt string)
	Readline() (string, error)
}

// NewTerminalReader returns a readline instance bound to the given streams.
// The caller must Close it.
func NewTerminalReader(in io.ReadCloser, out io.Writer) (*readline.Instance, error) {
	rl, err := readline.NewEx(&readline.Config{
		Stdin:           in,
		Stdout:          out,
		InterruptPrompt: "^C",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prompt: %w", err)
	}
	return rl, nil
}

// PromptDate shows prompt and parses the reply. A malformed reply is returned
// as an error; there is no second attempt.
func PromptDate(r LineReader, prompt string) (time.Time, error) {
	r.SetPrompt(prompt)
	line, err := r.Readline()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read date: %w", err)
	}
	return ParseDate(line)
}

// PromptRange asks for a start and then an end date.
func PromptRange(r LineReader) (Range, error) {
	start, err := PromptDate(r, StartPrompt)
	if err != nil {
		return Range{}, err
	}
	end, err := PromptDate(r, EndPrompt)
	if err != nil {
		return Range{}, err
	}
	return Range{Start: start, End: end}, nil
}
