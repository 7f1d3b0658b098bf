package driver

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-resty/resty/v2"

	"github.com/happyhackingspace/formschema/internal/htmlutil"
)

// Stdin is the target that makes the static driver read markup from standard input.
const Stdin = "-"

// staticDriver fetches markup over HTTP or reads it from disk. It runs no
// scripts, so styles are resolved from the markup itself.
type staticDriver struct {
	client *resty.Client
	stdin  io.Reader
}

func newStatic(opts Options) *staticDriver {
	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml")
	return &staticDriver{client: client, stdin: os.Stdin}
}

func (d *staticDriver) Snapshot(ctx context.Context, target string) (*Snapshot, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case target == Stdin:
		data, err = io.ReadAll(d.stdin)
	case IsURL(target):
		data, err = d.fetch(ctx, target)
	default:
		data, err = os.ReadFile(target)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", target, err)
	}
	return &Snapshot{URL: target, HTML: string(htmlutil.ToUTF8(data))}, nil
}

func (d *staticDriver) fetch(ctx context.Context, target string) ([]byte, error) {
	resp, err := d.client.R().SetContext(ctx).Get(target)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status %s", resp.Status())
	}
	return resp.Body(), nil
}

func (d *staticDriver) Close() error {
	return nil
}
