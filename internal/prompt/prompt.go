// Package prompt implements the line-oriented question and answer surface
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prompter asks the operator for input
type Prompter interface {
	Ask(question string) (string, error)
}

// Line reads one answer per line from in and writes questions to out
type Line struct {
	in  *bufio.Reader
	out io.Writer
}

// New creates a line prompter
func New(in io.Reader, out io.Writer) *Line {
	return &Line{in: bufio.NewReader(in), out: out}
}

// Ask prints question and returns the trimmed answer. io.EOF is returned
// once input is exhausted and nothing was typed.
func (l *Line) Ask(question string) (string, error) {
	fmt.Fprint(l.out, question)

	answer, err := l.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && answer != "" {
			return strings.TrimSpace(answer), nil
		}
		return "", err
	}

	return strings.TrimSpace(answer), nil
}

// AskDefault asks and falls back to def on an empty answer
func AskDefault(p Prompter, question, def string) (string, error) {
	q := question
	if def != "" {
		q = fmt.Sprintf("%s [%s]", strings.TrimSuffix(question, ": "), def) + ": "
	}

	answer, err := p.Ask(q)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// Confirm asks a yes/no question until it gets a usable answer.
// German answers (j/ja/nein) are accepted as well.
func Confirm(p Prompter, question string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}

	for {
		answer, err := p.Ask(fmt.Sprintf("%s %s: ", question, hint))
		if err != nil {
			return false, err
		}

		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes", "j", "ja":
			return true, nil
		case "n", "no", "nein":
			return false, nil
		}
	}
}
