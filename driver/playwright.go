package driver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

type playwrightDriver struct {
	opts Options

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
}

func newPlaywright(opts Options) *playwrightDriver {
	return &playwrightDriver{opts: opts}
}

func (d *playwrightDriver) launch() (playwright.Browser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.browser != nil {
		return d.browser, nil
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(d.opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	d.pw, d.browser = pw, browser
	return browser, nil
}

func (d *playwrightDriver) Snapshot(ctx context.Context, target string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, err := navigableURL(target)
	if err != nil {
		return nil, err
	}
	browser, err := d.launch()
	if err != nil {
		return nil, err
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(d.opts.UserAgent),
		Viewport:  &playwright.Size{Width: d.opts.Width, Height: d.opts.Height},
	})
	if err != nil {
		return nil, fmt.Errorf("new context: %w", err)
	}
	defer func() { _ = bctx.Close() }()
	stop := context.AfterFunc(ctx, func() { _ = bctx.Close() })
	defer stop()

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("new page: %w", err)
	}
	_, err = page.Goto(target, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(d.timeout(ctx).Milliseconds())),
	})
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("render %s: %w", target, err)
	}

	v, err := page.Evaluate(snapshotScript)
	if err != nil {
		return nil, fmt.Errorf("capture %s: %w", target, err)
	}
	raw, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("capture %s: unexpected result %T", target, v)
	}
	return decodeSnapshot(raw)
}

// timeout is the navigation budget, shortened to the context deadline.
func (d *playwrightDriver) timeout(ctx context.Context) time.Duration {
	t := d.opts.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		t = min(t, time.Until(deadline))
	}
	return max(t, time.Millisecond)
}

func (d *playwrightDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pw == nil {
		return nil
	}
	_ = d.browser.Close()
	err := d.pw.Stop()
	d.pw, d.browser = nil, nil
	return err
}
