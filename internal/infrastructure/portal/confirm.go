package portal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
)

// Confirmer pauses the run until the operator agrees to continue
type Confirmer interface {
	Confirm(ctx context.Context, message string) error
}

// NoopConfirmer never pauses
type NoopConfirmer struct{}

// Confirm implements Confirmer
func (NoopConfirmer) Confirm(context.Context, string) error {
	return nil
}

// StdinConfirmer prints the message and waits for ENTER on its reader
type StdinConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

// NewStdinConfirmer creates a StdinConfirmer (usually over os.Stdin/os.Stdout)
func NewStdinConfirmer(in io.Reader, out io.Writer) *StdinConfirmer {
	return &StdinConfirmer{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Confirm implements Confirmer. End of input counts as a refusal.
func (c *StdinConfirmer) Confirm(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.out, "%s Press ENTER to continue...", message); err != nil {
		return err
	}
	if _, err := c.in.ReadString('\n'); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("confirmation aborted: end of input")
		}
		return err
	}
	return nil
}

// ConfirmerFunc adapts a function to the Confirmer interface
type ConfirmerFunc func(ctx context.Context, message string) error

// Confirm implements Confirmer
func (f ConfirmerFunc) Confirm(ctx context.Context, message string) error {
	return f(ctx, message)
}
