package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"linkcheck/internal/domain"
)

// pageSettle is how long a page gets to finish client-side redirects and
// render offer banners after the DOM is ready.
const pageSettle = 4 * time.Second

const startTimeout = 30 * time.Second

// ChromeDriver drives a chrome-family browser through the DevTools protocol.
type ChromeDriver struct {
	browser    Browser
	headless   bool
	userAgent  string
	navTimeout time.Duration
	logger     *zap.Logger

	browserCtx  context.Context
	ctxCancel   context.CancelFunc
	allocCancel context.CancelFunc
}

func NewChromeDriver(browser Browser, headless bool, userAgent string, navTimeout time.Duration, logger *zap.Logger) *ChromeDriver {
	return &ChromeDriver{
		browser:    browser,
		headless:   headless,
		userAgent:  userAgent,
		navTimeout: navTimeout,
		logger:     logger,
	}
}

// Start launches the browser process and applies the user-agent override.
func (d *ChromeDriver) Start(ctx context.Context) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if d.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(d.userAgent))
	}
	if path := d.browser.ExecPath(); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, ctxCancel := chromedp.NewContext(allocCtx)
	d.browserCtx = browserCtx
	d.ctxCancel = ctxCancel
	d.allocCancel = allocCancel

	warm := []chromedp.Action{chromedp.Navigate("about:blank")}
	if d.userAgent != "" {
		warm = append([]chromedp.Action{emulation.SetUserAgentOverride(d.userAgent)}, warm...)
	}

	startCtx, cancel := context.WithTimeout(browserCtx, startTimeout)
	defer cancel()
	if err := chromedp.Run(startCtx, warm...); err != nil {
		d.Quit()
		return &SetupFault{Err: err}
	}
	d.logger.Info("browser session started",
		zap.String("browser", string(d.browser)),
		zap.Bool("headless", d.headless))
	return nil
}

// Navigate loads url, waits for the page to settle, and snapshots it.
func (d *ChromeDriver) Navigate(ctx context.Context, url string) (*domain.NavigationResult, error) {
	if d.browserCtx == nil {
		return nil, &SessionFault{Op: "navigate", Err: errors.New("driver not started")}
	}
	navCtx, cancel := d.taskContext(ctx, d.navTimeout)
	defer cancel()

	var finalURL, title, html string
	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(pageSettle),
		chromedp.Location(&finalURL),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, &SessionFault{Op: "navigate", Err: err}
	}
	return &domain.NavigationResult{FinalURL: finalURL, Title: title, HTMLSource: html}, nil
}

// Snapshot reads the current page state without navigating.
func (d *ChromeDriver) Snapshot(ctx context.Context) (*domain.NavigationResult, error) {
	if d.browserCtx == nil {
		return nil, &SessionFault{Op: "snapshot", Err: errors.New("driver not started")}
	}
	snapCtx, cancel := d.taskContext(ctx, d.navTimeout)
	defer cancel()

	var finalURL, title, html string
	err := chromedp.Run(snapCtx,
		chromedp.Location(&finalURL),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, &SessionFault{Op: "snapshot", Err: err}
	}
	return &domain.NavigationResult{FinalURL: finalURL, Title: title, HTMLSource: html}, nil
}

// Fill waits for selector and types value into it.
func (d *ChromeDriver) Fill(ctx context.Context, selector, value string) error {
	fillCtx, cancel := d.taskContext(ctx, d.navTimeout)
	defer cancel()
	err := chromedp.Run(fillCtx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
	if err != nil {
		return &SessionFault{Op: "fill " + selector, Err: err}
	}
	return nil
}

// Click clicks the first element matching selector.
func (d *ChromeDriver) Click(ctx context.Context, selector string) error {
	clickCtx, cancel := d.taskContext(ctx, d.navTimeout)
	defer cancel()
	if err := chromedp.Run(clickCtx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return &SessionFault{Op: "click " + selector, Err: err}
	}
	return nil
}

// InteractiveElements parses the current page and returns the texts of
// action-capable controls.
func (d *ChromeDriver) InteractiveElements(ctx context.Context) ([]domain.InteractiveElement, error) {
	snap, err := d.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTMLSource))
	if err != nil {
		return nil, &SessionFault{Op: "parse elements", Err: err}
	}

	var elements []domain.InteractiveElement
	doc.Find("button, a[role='button'], input[type='submit']").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			text, _ = s.Attr("value")
		}
		if text == "" {
			text, _ = s.Attr("aria-label")
		}
		if text == "" {
			return
		}
		elements = append(elements, domain.InteractiveElement{
			Text: text,
			Role: goquery.NodeName(s),
		})
	})
	return elements, nil
}

// Quit tears the browser down. Safe to call repeatedly.
func (d *ChromeDriver) Quit() {
	if d.ctxCancel != nil {
		d.ctxCancel()
		d.ctxCancel = nil
	}
	if d.allocCancel != nil {
		d.allocCancel()
		d.allocCancel = nil
	}
	d.browserCtx = nil
}

// taskContext bounds a browser operation by both the caller's context and the
// navigation timeout. The browser context is the base because chromedp
// actions must run against it.
func (d *ChromeDriver) taskContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	taskCtx, cancel := context.WithTimeout(d.browserCtx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return taskCtx, func() {
		stop()
		cancel()
	}
}
