package southwest

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"fare-tracker/config"
	"fare-tracker/models"
	"fare-tracker/services"
	"fare-tracker/utils"
)

// Booking form element IDs.
const (
	oneWayToggle   = "#trip-type-one-way"
	departureInput = "#air-city-departure"
	arrivalInput   = "#air-city-arrival"
	dateInput      = "#air-date-departure"
	submitButton   = "#jb-booking-form-submit-button"
)

// Driver opens results pages by filling in the one-way booking form in a
// shared headless Chrome. Each search runs in its own tab.
type Driver struct {
	cfg    *config.Config
	logger *utils.Logger

	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

// New starts the browser. Call Close when done.
func New(cfg *config.Config, logger *utils.Logger) (*Driver, error) {
	chromeBin := findChromeBinary(cfg.ChromeBin)
	logger.Info("[southwest] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// The first Run allocates the browser; tabs opened later share it.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &Driver{
		cfg:           cfg,
		logger:        logger,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}, nil
}

// Search submits the booking form for q and returns the results page once
// its body is ready. The caller must Close the page.
func (d *Driver) Search(ctx context.Context, q models.Query) (services.Page, error) {
	tabCtx, closeTab := chromedp.NewContext(d.browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		closeTab()
		return nil, fmt.Errorf("open tab: %w", err)
	}

	runCtx, cancel := bound(tabCtx, ctx)
	defer cancel()

	d.logger.Debug("[southwest] Submitting search %s", q)
	err := chromedp.Run(runCtx,
		chromedp.Navigate(d.cfg.BaseURL),
		chromedp.WaitVisible(oneWayToggle, chromedp.ByID),
		chromedp.Click(oneWayToggle, chromedp.ByID),
		fill(departureInput, q.Departure),
		fill(arrivalInput, q.Arrival),
		fill(dateInput, q.Date),
		chromedp.Click(submitButton, chromedp.ByID),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		closeTab()
		return nil, fmt.Errorf("submit search form: %w", err)
	}
	return &page{ctx: tabCtx, close: closeTab}, nil
}

// Close shuts the browser down.
func (d *Driver) Close() {
	d.cancelBrowser()
	d.cancelAlloc()
}

type page struct {
	ctx   context.Context
	close context.CancelFunc
}

func (p *page) HTML(ctx context.Context) (string, error) {
	runCtx, cancel := bound(p.ctx, ctx)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read page html: %w", err)
	}
	return html, nil
}

func (p *page) Close() { p.close() }

// fill clears an input and types value into it, tabbing out so the form's
// autocomplete commits the entry.
func fill(sel, value string) chromedp.Tasks {
	return chromedp.Tasks{
		chromedp.Clear(sel, chromedp.ByID),
		chromedp.SendKeys(sel, value+kb.Tab, chromedp.ByID),
	}
}

// bound derives a context from the tab context that is also cancelled when
// ctx is done. Cancelling it does not close the tab.
func bound(tab, ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(tab)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// findChromeBinary returns preferred if set, otherwise the first Chrome or
// Chromium install found. An empty result lets chromedp use its default.
func findChromeBinary(preferred string) string {
	if preferred != "" {
		return preferred
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
