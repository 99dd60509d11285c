// internal/browser/browser.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// Config controls the headless-browser fetcher.
type Config struct {
	Headless       bool          `yaml:"headless" json:"headless"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	WaitForElement string        `yaml:"wait_for_element,omitempty" json:"wait_for_element,omitempty"`
	WaitDelay      time.Duration `yaml:"wait_delay,omitempty" json:"wait_delay,omitempty"`
	DisableImages  bool          `yaml:"disable_images" json:"disable_images"`
}

// DefaultConfig returns a sensible headless configuration.
func DefaultConfig() Config {
	return Config{
		Headless:      true,
		Timeout:       45 * time.Second,
		DisableImages: true,
	}
}

// Fetcher renders JavaScript-heavy source pages in headless Chrome before
// parsing. Promotional carousels on hotel sites are frequently injected
// client-side, which the plain HTTP client cannot see. It satisfies the
// same fetcher contract as the HTTP client: unavailability is an error, and
// the returned document is ready for selector scans.
type Fetcher struct {
	config Config
}

// NewFetcher creates a rendered-page fetcher.
func NewFetcher(config Config) *Fetcher {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &Fetcher{config: config}
}

// Fetch navigates to pageURL, waits for the page to settle, and parses the
// rendered DOM into a goquery document.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // required in container environments
	}
	if f.config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if f.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.config.UserAgent))
	}
	if f.config.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, f.config.Timeout)
	defer cancelTimeout()

	tasks := []chromedp.Action{
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
	}
	if f.config.WaitForElement != "" {
		tasks = append(tasks, chromedp.WaitVisible(f.config.WaitForElement))
	}
	if f.config.WaitDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(f.config.WaitDelay))
	}

	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html))

	if err := chromedp.Run(browserCtx, tasks...); err != nil {
		return nil, fmt.Errorf("render failed for %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered HTML: %w", err)
	}

	return doc, nil
}
