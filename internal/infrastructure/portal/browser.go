// Package portal drives the tax authority web portal: it logs in and fills
// and issues one invoice ("fatura-recibo") through a Browser.
package portal

import (
	"context"
	"time"
)

// Element is a snapshot of a matched DOM element
type Element struct {
	// Text is the rendered text with surrounding whitespace removed
	Text    string `json:"text"`
	Visible bool   `json:"visible"`
}

// Browser is the page-level capability the portal driver needs.
// Selectors are CSS selectors. Methods without a timeout block until the
// step completes or ctx ends.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	// Elements returns every element matching selector in DOM order. No match is not an error.
	Elements(ctx context.Context, selector string) ([]Element, error)
	// ClickElement clicks the index-th element matching selector
	ClickElement(ctx context.Context, selector string, index int) error
	Click(ctx context.Context, selector string) error
	SendKeys(ctx context.Context, selector, value string) error
	// SelectOption picks the option of a <select> whose visible text equals text
	SelectOption(ctx context.Context, selector, text string) error
	WaitURLContains(ctx context.Context, substr string, timeout time.Duration) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	URL(ctx context.Context) (string, error)
	// Screenshot captures the current viewport as PNG
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// findByText returns the index of the first element whose text equals text.
// With visibleOnly, hidden elements are skipped. Returns -1 when none match.
func findByText(elements []Element, text string, visibleOnly bool) int {
	for i, el := range elements {
		if visibleOnly && !el.Visible {
			continue
		}
		if el.Text == text {
			return i
		}
	}
	return -1
}
