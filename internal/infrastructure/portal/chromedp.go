package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const urlPollInterval = 250 * time.Millisecond

// ChromedpConfig contains configuration for the chromedp browser
type ChromedpConfig struct {
	// RemoteURL is the DevTools URL of a running Chrome (optional).
	// If empty, chromedp launches a new browser.
	RemoteURL string
	// Headless hides the browser window
	Headless bool
	// DisableGPU disables GPU hardware acceleration
	DisableGPU bool
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	// WindowWidth and WindowHeight size the window (default 1280x900)
	WindowWidth  int
	WindowHeight int
	// Logger for debug output
	Logger *zap.Logger
}

// ChromedpBrowser implements Browser with the Chrome DevTools Protocol.
// One ChromedpBrowser is one tab in one browser process.
type ChromedpBrowser struct {
	config      ChromedpConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// NewChromedpBrowser starts a browser session
func NewChromedpBrowser(ctx context.Context, config ChromedpConfig) (*ChromedpBrowser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if config.WindowWidth == 0 {
		config.WindowWidth = 1280
	}
	if config.WindowHeight == 0 {
		config.WindowHeight = 900
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &ChromedpBrowser{
		config: config,
		logger: logger,
	}
	b.initAllocator()

	b.tabCtx, b.tabCancel = chromedp.NewContext(b.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			b.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	// The first Run allocates the browser; it must use the tab context itself,
	// a derived context would tear the browser down when it ends.
	if err := chromedp.Run(b.tabCtx); err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Info("Browser session started",
		zap.Bool("headless", config.Headless),
		zap.Bool("remote", config.RemoteURL != ""),
	)
	return b, nil
}

// initAllocator initializes the Chrome allocator
func (b *ChromedpBrowser) initAllocator() {
	if b.config.RemoteURL != "" {
		b.allocCtx, b.allocCancel = chromedp.NewRemoteAllocator(context.Background(), b.config.RemoteURL)
		return
	}

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), b.allocatorOptions()...)
}

func (b *ChromedpBrowser) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.config.Headless),
		chromedp.Flag("disable-gpu", b.config.DisableGPU),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.WindowSize(b.config.WindowWidth, b.config.WindowHeight),
	)
	if b.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	return opts
}

// run executes actions in the tab, stopping early when ctx ends
func (b *ChromedpBrowser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// runWithTimeout is run bounded by timeout
func (b *ChromedpBrowser) runWithTimeout(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := b.run(ctx, actions...)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("timed out after %v: %w", timeout, context.DeadlineExceeded)
	}
	return err
}

// Navigate implements Browser
func (b *ChromedpBrowser) Navigate(ctx context.Context, url string) error {
	b.logger.Debug("navigate", zap.String("url", url))
	return b.run(ctx, chromedp.Navigate(url))
}

const elementsScript = `Array.from(document.querySelectorAll(%s)).map(function (e) {
	return {
		text: (e.innerText || e.textContent || "").trim(),
		visible: !!(e.offsetWidth || e.offsetHeight || e.getClientRects().length)
	};
})`

// Elements implements Browser
func (b *ChromedpBrowser) Elements(ctx context.Context, selector string) ([]Element, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return nil, err
	}
	var elements []Element
	if err := b.run(ctx, chromedp.Evaluate(fmt.Sprintf(elementsScript, quoted), &elements)); err != nil {
		return nil, err
	}
	return elements, nil
}

// ClickElement implements Browser
func (b *ChromedpBrowser) ClickElement(ctx context.Context, selector string, index int) error {
	return b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var nodes []*cdp.Node
		if err := chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)).Do(ctx); err != nil {
			return err
		}
		if index < 0 || index >= len(nodes) {
			return fmt.Errorf("%s matched %d elements, wanted index %d", selector, len(nodes), index)
		}
		return chromedp.MouseClickNode(nodes[index]).Do(ctx)
	}))
}

// Click implements Browser
func (b *ChromedpBrowser) Click(ctx context.Context, selector string) error {
	return b.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

// SendKeys implements Browser
func (b *ChromedpBrowser) SendKeys(ctx context.Context, selector, value string) error {
	return b.run(ctx, chromedp.SendKeys(selector, value, chromedp.ByQuery))
}

const selectOptionScript = `(function (sel, text) {
	var el = document.querySelector(sel);
	if (!el) { return false; }
	for (var i = 0; i < el.options.length; i++) {
		if ((el.options[i].text || "").trim() === text) {
			el.selectedIndex = i;
			el.dispatchEvent(new Event("input", { bubbles: true }));
			el.dispatchEvent(new Event("change", { bubbles: true }));
			return true;
		}
	}
	return false;
})(%s, %s)`

// SelectOption implements Browser
func (b *ChromedpBrowser) SelectOption(ctx context.Context, selector, text string) error {
	quotedSel, err := json.Marshal(selector)
	if err != nil {
		return err
	}
	quotedText, err := json.Marshal(text)
	if err != nil {
		return err
	}

	var found bool
	err = b.run(ctx,
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf(selectOptionScript, quotedSel, quotedText), &found),
	)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s has no option %q", selector, text)
	}
	return nil
}

// WaitURLContains implements Browser
func (b *ChromedpBrowser) WaitURLContains(ctx context.Context, substr string, timeout time.Duration) error {
	return b.runWithTimeout(ctx, timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(urlPollInterval)
		defer ticker.Stop()
		for {
			var location string
			if err := chromedp.Location(&location).Do(ctx); err != nil {
				return err
			}
			if strings.Contains(location, substr) {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}))
}

// WaitVisible implements Browser
func (b *ChromedpBrowser) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return b.runWithTimeout(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// URL implements Browser
func (b *ChromedpBrowser) URL(ctx context.Context) (string, error) {
	var location string
	if err := b.run(ctx, chromedp.Location(&location)); err != nil {
		return "", err
	}
	return location, nil
}

// Screenshot implements Browser
func (b *ChromedpBrowser) Screenshot(ctx context.Context) ([]byte, error) {
	var png []byte
	if err := b.run(ctx, chromedp.CaptureScreenshot(&png)); err != nil {
		return nil, err
	}
	return png, nil
}

// Close closes the tab and releases the browser
func (b *ChromedpBrowser) Close() error {
	if b.tabCancel != nil {
		b.tabCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	return nil
}

// Ensure ChromedpBrowser implements Browser
var _ Browser = (*ChromedpBrowser)(nil)
