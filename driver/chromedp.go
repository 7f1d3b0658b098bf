package driver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

type chromedpDriver struct {
	opts Options

	mu         sync.Mutex
	browserCtx context.Context
	cancel     context.CancelFunc
}

func newChromedp(opts Options) *chromedpDriver {
	return &chromedpDriver{opts: opts}
}

// browser starts Chrome on first use and keeps it for later snapshots.
func (d *chromedpDriver) browser() (context.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.browserCtx != nil {
		return d.browserCtx, nil
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(d.opts.UserAgent),
		chromedp.WindowSize(d.opts.Width, d.opts.Height),
	)
	if !d.opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	d.browserCtx = browserCtx
	d.cancel = func() {
		cancelBrowser()
		cancelAlloc()
	}
	return browserCtx, nil
}

func (d *chromedpDriver) Snapshot(ctx context.Context, target string) (*Snapshot, error) {
	target, err := navigableURL(target)
	if err != nil {
		return nil, err
	}
	browserCtx, err := d.browser()
	if err != nil {
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, d.opts.Timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	idle := newIdleTracker()
	chromedp.ListenTarget(tabCtx, idle.observe)

	var raw string
	err = chromedp.Run(tabCtx,
		chromedp.EmulateViewport(int64(d.opts.Width), int64(d.opts.Height)),
		chromedp.Navigate(target),
		chromedp.ActionFunc(idle.wait),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate("("+snapshotScript+")()", &raw),
	)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("render %s: %w", target, err)
	}
	return decodeSnapshot(raw)
}

func (d *chromedpDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
		d.browserCtx = nil
	}
	return nil
}

// idleTracker follows in-flight requests from network events.
type idleTracker struct {
	mu        sync.Mutex
	inflight  map[network.RequestID]struct{}
	idleSince time.Time
}

func newIdleTracker() *idleTracker {
	return &idleTracker{
		inflight:  make(map[network.RequestID]struct{}),
		idleSince: time.Now(),
	}
}

func (t *idleTracker) observe(ev any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch ev := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.inflight[ev.RequestID] = struct{}{}
	case *network.EventLoadingFinished:
		delete(t.inflight, ev.RequestID)
	case *network.EventLoadingFailed:
		delete(t.inflight, ev.RequestID)
	default:
		return
	}
	switch busy := len(t.inflight) > idleConnections; {
	case busy:
		t.idleSince = time.Time{}
	case t.idleSince.IsZero():
		t.idleSince = time.Now()
	}
}

func (t *idleTracker) idleFor() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.idleSince.IsZero() {
		return 0
	}
	return time.Since(t.idleSince)
}

// wait blocks until the network has been idle for idleWindow.
func (t *idleTracker) wait(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if t.idleFor() >= idleWindow {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
