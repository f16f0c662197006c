package portal

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStdinConfirmer(t *testing.T) {
	t.Run("ENTER continues", func(t *testing.T) {
		var out bytes.Buffer
		c := NewStdinConfirmer(strings.NewReader("\n\n"), &out)

		assert.NoError(t, c.Confirm(context.Background(), "Review the invoice form."))
		assert.NoError(t, c.Confirm(context.Background(), "Invoice issued."))
		assert.Equal(t, "Review the invoice form. Press ENTER to continue...Invoice issued. Press ENTER to continue...", out.String())
	})

	t.Run("end of input refuses", func(t *testing.T) {
		c := NewStdinConfirmer(strings.NewReader(""), &bytes.Buffer{})

		assert.Error(t, c.Confirm(context.Background(), "go?"))
	})

	t.Run("cancelled context refuses", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c := NewStdinConfirmer(strings.NewReader("\n"), &bytes.Buffer{})

		assert.ErrorIs(t, c.Confirm(ctx, "go?"), context.Canceled)
	})
}

func TestNoopConfirmer(t *testing.T) {
	assert.NoError(t, NoopConfirmer{}.Confirm(context.Background(), "anything"))
}

func TestConfirmerFunc(t *testing.T) {
	var got string
	c := ConfirmerFunc(func(_ context.Context, message string) error {
		got = message
		return nil
	})

	assert.NoError(t, c.Confirm(context.Background(), "hello"))
	assert.Equal(t, "hello", got)
}
