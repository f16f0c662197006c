package invoice

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/recibos/taxbot/internal/domain/shared"
	"github.com/recibos/taxbot/internal/domain/shared/valueobject"
)

// Prompter asks the operator for missing invoice fields
type Prompter interface {
	// Prompt shows label and returns the answer without the line terminator
	Prompt(label string) (string, error)
	// Choose shows a numbered menu and returns the chosen option
	Choose(label string, options []string) (string, error)
}

// FromInput builds an Invoice from preset, prompting for every empty field.
// The currency is never prompted; it defaults to USD.
// A blank description answer is replaced by a canned description picked from a menu.
func FromInput(p Prompter, preset Input) (Invoice, error) {
	in := preset

	var err error
	if in.ClientName == "" {
		if in.ClientName, err = p.Prompt("Enter the full name of the client: "); err != nil {
			return Invoice{}, err
		}
	}
	if in.Amount == "" {
		currency := valueobject.DefaultCurrency.String()
		if strings.TrimSpace(in.Currency) != "" {
			currency = strings.ToUpper(strings.TrimSpace(in.Currency))
		}
		label := fmt.Sprintf("Enter the invoice amount in %s: ", currency)
		if currency == valueobject.USD.String() {
			label += "$"
		}
		if in.Amount, err = p.Prompt(label); err != nil {
			return Invoice{}, err
		}
	}
	if in.Date == "" {
		if in.Date, err = p.Prompt("Enter the date (format: YYYY-MM-DD): "); err != nil {
			return Invoice{}, err
		}
	}
	if in.Description == "" {
		if in.Description, err = p.Prompt("Enter the description: "); err != nil {
			return Invoice{}, err
		}
		if strings.TrimSpace(in.Description) == "" {
			key, err := p.Choose("Choose a description", DescriptionKeys())
			if err != nil {
				return Invoice{}, err
			}
			text, ok := CannedDescription(key)
			if !ok {
				return Invoice{}, shared.NewValidationError(FieldDescription, fmt.Sprintf("unknown canned description %q", key))
			}
			in.Description = text
		}
	}

	return Parse(in)
}

// TerminalPrompter reads answers line by line from an io.Reader
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalPrompter creates a prompter over in/out (usually os.Stdin/os.Stdout)
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Prompt implements Prompter
func (t *TerminalPrompter) Prompt(label string) (string, error) {
	if _, err := fmt.Fprint(t.out, label); err != nil {
		return "", err
	}
	return t.readLine()
}

// Choose implements Prompter. It accepts either the option number or the option itself
// and asks again until the answer matches.
func (t *TerminalPrompter) Choose(label string, options []string) (string, error) {
	if len(options) == 0 {
		return "", errors.New("no options to choose from")
	}
	for {
		fmt.Fprintln(t.out, label+":")
		for i, opt := range options {
			fmt.Fprintf(t.out, "  %d) %s\n", i+1, opt)
		}
		fmt.Fprint(t.out, "> ")

		answer, err := t.readLine()
		if err != nil {
			return "", err
		}
		answer = strings.TrimSpace(answer)
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
			return options[n-1], nil
		}
		for _, opt := range options {
			if strings.EqualFold(opt, answer) {
				return opt, nil
			}
		}
		fmt.Fprintf(t.out, "%q is not one of the options\n", answer)
	}
}

func (t *TerminalPrompter) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
