package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"nymctl/internal/ports"
)

const progressWidth = 20

var (
	promptStyle    = color.New(color.FgYellow, color.Bold)
	successStyle   = color.New(color.FgHiGreen, color.Bold)
	infoStyle      = color.New(color.FgGreen)
	warnStyle      = color.New(color.FgYellow, color.Bold)
	errorStyle     = color.New(color.FgRed, color.Bold)
	sectionStyle   = color.New(color.FgHiGreen, color.Bold)
	highlightStyle = color.New(color.BgGreen, color.FgBlack, color.Bold)
	valueStyle     = color.New(color.FgYellow)
)

// ErrNoInput is returned when the operator input is closed before an answer was given
var ErrNoInput = errors.New("no more operator input")

// Terminal talks to the operator over a line based reader and a writer
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

var _ ports.Console = (*Terminal)(nil)

// Ask prints prompt and returns the trimmed answer
func (t *Terminal) Ask(prompt string) (string, error) {
	promptStyle.Fprint(t.out, prompt)
	fmt.Fprint(t.out, " ")
	line, err := t.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm accepts y and yes in any case, everything else is a no
func (t *Terminal) Confirm(prompt string) (bool, error) {
	answer, err := t.Ask(prompt)
	if err != nil {
		return false, err
	}
	return IsAffirmative(answer), nil
}

// IsAffirmative is the single definition of a yes
func IsAffirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func (t *Terminal) Section(title string) {
	border := strings.Repeat("═", len(title)+4)
	sectionStyle.Fprintf(t.out, "\n%s\n  %s\n%s\n\n", border, title, border)
}

func (t *Terminal) Step(current, total int, msg string) {
	filled := 0
	if total > 0 {
		filled = current * progressWidth / total
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressWidth-filled)
	fmt.Fprintf(t.out, "\n%s %s %s\n", sectionStyle.Sprintf("[%d/%d]", current, total), infoStyle.Sprintf("[%s]", bar), msg)
}

func (t *Terminal) Success(msg string) {
	fmt.Fprintf(t.out, "%s %s\n", successStyle.Sprint("✓"), infoStyle.Sprint(msg))
}

func (t *Terminal) Info(msg string) {
	infoStyle.Fprintf(t.out, "ℹ %s\n", msg)
}

func (t *Terminal) Warn(msg string) {
	fmt.Fprintf(t.out, "%s %s\n", warnStyle.Sprint("⚠ WARNING:"), msg)
}

func (t *Terminal) Error(msg string) {
	fmt.Fprintf(t.out, "%s %s\n", errorStyle.Sprint("✗ ERROR:"), msg)
}

// Highlight prints a label and, when given, the value the operator has to copy
func (t *Terminal) Highlight(label, value string) {
	highlightStyle.Fprintf(t.out, " %s ", label)
	fmt.Fprintln(t.out)
	if value != "" {
		fmt.Fprintf(t.out, "%s\n", valueStyle.Sprint(value))
	}
}

func (t *Terminal) Print(text string) {
	fmt.Fprintln(t.out, text)
}
