package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// fakeBrowser records every call as one line and answers from canned state
type fakeBrowser struct {
	calls    []string
	elements map[string][]Element
	url      string
	// failOn makes the first call whose log line starts with the key fail
	failOn map[string]error
	// urlAfter maps a WaitURLContains substring to the URL the page moves to
	urlAfter map[string]string
	closed   bool
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		elements: map[string][]Element{
			selTabLabel: {
				{Text: "Autenticação via Cartão", Visible: true},
				{Text: "NIF", Visible: true},
			},
			selButton: {
				{Text: "Cancelar", Visible: true},
				{Text: "EMITIR", Visible: true},
			},
			selSuccessButton: {
				{Text: "EMITIR", Visible: false},
				{Text: "EMITIR", Visible: true},
			},
		},
		failOn:   map[string]error{},
		urlAfter: map[string]string{},
	}
}

func (f *fakeBrowser) record(format string, args ...interface{}) error {
	line := fmt.Sprintf(format, args...)
	f.calls = append(f.calls, line)
	for prefix, err := range f.failOn {
		if strings.HasPrefix(line, prefix) {
			delete(f.failOn, prefix)
			return err
		}
	}
	return nil
}

func (f *fakeBrowser) Navigate(_ context.Context, url string) error {
	if err := f.record("navigate %s", url); err != nil {
		return err
	}
	f.url = url
	return nil
}

func (f *fakeBrowser) Elements(_ context.Context, selector string) ([]Element, error) {
	if err := f.record("elements %s", selector); err != nil {
		return nil, err
	}
	return f.elements[selector], nil
}

func (f *fakeBrowser) ClickElement(_ context.Context, selector string, index int) error {
	return f.record("click %s[%d]", selector, index)
}

func (f *fakeBrowser) Click(_ context.Context, selector string) error {
	return f.record("click %s", selector)
}

func (f *fakeBrowser) SendKeys(_ context.Context, selector, value string) error {
	return f.record("keys %s=%s", selector, value)
}

func (f *fakeBrowser) SelectOption(_ context.Context, selector, text string) error {
	return f.record("select %s=%s", selector, text)
}

func (f *fakeBrowser) WaitURLContains(_ context.Context, substr string, timeout time.Duration) error {
	if err := f.record("wait-url %s %v", substr, timeout); err != nil {
		return err
	}
	if next, ok := f.urlAfter[substr]; ok {
		f.url = next
	}
	if !strings.Contains(f.url, substr) {
		return fmt.Errorf("timed out after %v: %w", timeout, context.DeadlineExceeded)
	}
	return nil
}

func (f *fakeBrowser) WaitVisible(_ context.Context, selector string, timeout time.Duration) error {
	return f.record("wait-visible %s %v", selector, timeout)
}

func (f *fakeBrowser) URL(context.Context) (string, error) {
	return f.url, nil
}

func (f *fakeBrowser) Screenshot(context.Context) ([]byte, error) {
	if err := f.record("screenshot"); err != nil {
		return nil, err
	}
	return []byte("\x89PNG fake"), nil
}

func (f *fakeBrowser) Close() error {
	f.closed = true
	return nil
}

var errBoom = errors.New("boom")

var _ Browser = (*fakeBrowser)(nil)
