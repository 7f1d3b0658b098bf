package driver

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

type rodDriver struct {
	opts Options

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

func newRod(opts Options) *rodDriver {
	return &rodDriver{opts: opts}
}

func (d *rodDriver) connect() (*rod.Browser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.browser != nil {
		return d.browser, nil
	}

	l := launcher.New().Headless(d.opts.Headless)
	if path, ok := launcher.LookPath(); ok {
		l = l.Bin(path)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	d.launcher, d.browser = l, browser
	return browser, nil
}

func (d *rodDriver) Snapshot(ctx context.Context, target string) (*Snapshot, error) {
	target, err := navigableURL(target)
	if err != nil {
		return nil, err
	}
	browser, err := d.connect()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()
	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: d.opts.UserAgent}); err != nil {
		return nil, fmt.Errorf("set user agent: %w", err)
	}
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             d.opts.Width,
		Height:            d.opts.Height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	waitIdle := page.WaitRequestIdle(idleWindow, nil, nil, nil)
	if err := page.Navigate(target); err != nil {
		return nil, fmt.Errorf("render %s: %w", target, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("render %s: %w", target, err)
	}
	waitIdle()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("render %s: %w", target, err)
	}

	res, err := page.Eval(snapshotScript)
	if err != nil {
		return nil, fmt.Errorf("capture %s: %w", target, err)
	}
	return decodeSnapshot(res.Value.Str())
}

func (d *rodDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.browser == nil {
		return nil
	}
	err := d.browser.Close()
	d.launcher.Cleanup()
	d.browser, d.launcher = nil, nil
	return err
}
