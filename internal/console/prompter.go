package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/htbah/campaign-manager/internal/game/combat"
	"github.com/htbah/campaign-manager/internal/game/command"
	"github.com/htbah/campaign-manager/internal/game/dice"
)

// cancelWords abort the current action when typed at any prompt.
var cancelWords = map[string]bool{"cancel": true, "abbrechen": true, "abort": true}

// lineReader hands out operator input one line at a time. The command loop
// and the prompter share one reader so answers and commands never interleave.
type lineReader struct {
	scanner *bufio.Scanner
	echo    io.Writer // nil unless input is echoed
}

func newLineReader(in io.Reader, echo io.Writer) *lineReader {
	return &lineReader{scanner: bufio.NewScanner(in), echo: echo}
}

// ReadLine returns the next line without its terminator. It returns io.EOF
// once input is exhausted and ctx.Err() when ctx is done.
func (r *lineReader) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	line := r.scanner.Text()
	if r.echo != nil {
		fmt.Fprintln(r.echo, line)
	}
	return line, nil
}

// LinePrompter asks the operator for action inputs on a line-oriented
// terminal. An empty answer to a required question, or one of the cancel
// words, aborts with combat.ErrCancelled. Unusable answers are asked again.
type LinePrompter struct {
	in  *lineReader
	out io.Writer
}

// NewLinePrompter creates a LinePrompter reading from in and writing questions to out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: newLineReader(in, nil), out: out}
}

// ask prints question and returns the trimmed answer. Cancel words and
// end of input map to combat.ErrCancelled.
func (p *LinePrompter) ask(ctx context.Context, question string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", question)
	line, err := p.in.ReadLine(ctx)
	if errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: input closed", combat.ErrCancelled)
	}
	if err != nil {
		return "", err
	}
	answer := strings.TrimSpace(line)
	if cancelWords[strings.ToLower(answer)] {
		return "", combat.ErrCancelled
	}
	return answer, nil
}

// Choose lists options numbered from 1 and accepts a number or a name.
func (p *LinePrompter) Choose(ctx context.Context, question string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, combat.ErrCancelled
	}
	fmt.Fprintln(p.out, question)
	trimmed := make([]string, len(options))
	for i, o := range options {
		trimmed[i] = strings.TrimSpace(o)
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, trimmed[i])
	}
	for {
		answer, err := p.ask(ctx, "choice")
		if err != nil {
			return -1, err
		}
		if answer == "" {
			return -1, combat.ErrCancelled
		}
		if n, err := strconv.Atoi(answer); err == nil {
			if n >= 1 && n <= len(options) {
				return n - 1, nil
			}
			fmt.Fprintf(p.out, "pick a number between 1 and %d\n", len(options))
			continue
		}
		value, suggestions, ok := command.Match(answer, trimmed)
		if ok {
			for i, o := range trimmed {
				if o == value {
					return i, nil
				}
			}
		}
		fmt.Fprintf(p.out, "%q is not an option%s\n", answer, didYouMean(suggestions))
	}
}

// Confirm accepts yes/no in English or German.
func (p *LinePrompter) Confirm(ctx context.Context, question string) (bool, error) {
	for {
		answer, err := p.ask(ctx, question+" [y/n]")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return false, combat.ErrCancelled
		case "y", "yes", "j", "ja":
			return true, nil
		case "n", "no", "nein":
			return false, nil
		}
		fmt.Fprintln(p.out, "answer y or n")
	}
}

// Number reads a signed integer such as "42" or "+5".
func (p *LinePrompter) Number(ctx context.Context, question string, optional bool) (int, error) {
	label := question
	if optional {
		label += " (empty = 0)"
	}
	for {
		answer, err := p.ask(ctx, label)
		if err != nil {
			return 0, err
		}
		if answer == "" {
			if optional {
				return 0, nil
			}
			return 0, combat.ErrCancelled
		}
		n, err := dice.ParseModifier(answer)
		if err == nil {
			return n, nil
		}
		fmt.Fprintf(p.out, "%q is not a whole number\n", answer)
	}
}

func didYouMean(suggestions []string) string {
	if len(suggestions) == 0 {
		return ""
	}
	return fmt.Sprintf(" (did you mean %s?)", strings.Join(quoteAll(suggestions), ", "))
}

func quoteAll(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[i] = strconv.Quote(v)
	}
	return out
}
