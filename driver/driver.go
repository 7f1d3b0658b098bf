// Package driver renders a form page and captures a read-only snapshot of it.
//
// A Driver hides the browser automation backend behind one call:
//
//	d, _ := driver.New(driver.Chromedp, driver.DefaultOptions())
//	defer d.Close()
//	snap, err := d.Snapshot(ctx, "https://example.org/register")
//
// Browser drivers wait until the network settles before capturing the DOM
// together with the computed style and live option selection of every
// control. The static driver fetches or reads markup without running scripts.
package driver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/happyhackingspace/formschema/extract"
)

// ErrUnknownDriver is returned by New for an unsupported backend name.
var ErrUnknownDriver = errors.New("driver: unknown driver")

// Backend names accepted by New.
const (
	Chromedp   = "chromedp"
	Rod        = "rod"
	Playwright = "playwright"
	Static     = "static"
)

// Browser identity used when none is configured.
const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	DefaultWidth     = 1366
	DefaultHeight    = 900
	DefaultTimeout   = 120 * time.Second
)

// Network is considered settled once at most idleConnections requests stay
// in flight for idleWindow.
const (
	idleConnections = 2
	idleWindow      = 500 * time.Millisecond
)

// Options configures the emulated browser.
type Options struct {
	UserAgent string
	Width     int
	Height    int
	Timeout   time.Duration
	Headless  bool
}

// DefaultOptions returns a headless desktop browser profile.
func DefaultOptions() Options {
	return Options{
		UserAgent: DefaultUserAgent,
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		Timeout:   DefaultTimeout,
		Headless:  true,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.UserAgent == "" {
		o.UserAgent = def.UserAgent
	}
	if o.Width <= 0 {
		o.Width = def.Width
	}
	if o.Height <= 0 {
		o.Height = def.Height
	}
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	return o
}

// Snapshot is the rendered state of one page.
type Snapshot struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
	// Controls holds one entry per input, select and textarea in document
	// order. It is nil when the driver cannot observe rendered state.
	Controls []extract.ControlState `json:"controls"`
}

// Driver captures snapshots of pages.
type Driver interface {
	Snapshot(ctx context.Context, target string) (*Snapshot, error)
	Close() error
}

// Names lists the supported backends, default first.
func Names() []string {
	return []string{Chromedp, Rod, Playwright, Static}
}

// New returns the named driver. An empty name selects chromedp.
func New(name string, opts Options) (Driver, error) {
	opts = opts.withDefaults()
	switch strings.ToLower(name) {
	case "", Chromedp:
		return newChromedp(opts), nil
	case Rod:
		return newRod(opts), nil
	case Playwright:
		return newPlaywright(opts), nil
	case Static:
		return newStatic(opts), nil
	}
	return nil, fmt.Errorf("%w %q (want one of %s)", ErrUnknownDriver, name, strings.Join(Names(), ", "))
}

// IsURL reports whether target is an http or https address.
func IsURL(target string) bool {
	u, err := url.Parse(target)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// navigableURL turns a local path into a file URL browsers can open.
func navigableURL(target string) (string, error) {
	if u, err := url.Parse(target); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return target, nil
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", target, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}
