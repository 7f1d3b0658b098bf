// Package formschema extracts a step-partitioned field schema from a rendered
// web form.
//
// It renders the page with a driver, infers a label, section, visibility and
// wizard step for every data-bearing control, and returns a FormSchema:
//
//	d, _ := driver.New(driver.Chromedp, driver.DefaultOptions())
//	defer d.Close()
//	fs, _ := formschema.New(formschema.Options{}).Scrape(ctx, d, "https://example.org/register")
//	fmt.Println(fs.Counts.Step1, fs.Counts.Step2) // 4 27
package formschema

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/happyhackingspace/formschema/driver"
	"github.com/happyhackingspace/formschema/extract"
	"github.com/happyhackingspace/formschema/internal/htmlutil"
	"github.com/happyhackingspace/formschema/schema"
)

// Options configures an Extractor. Zero values select the defaults.
type Options struct {
	// Keywords overrides extract.DefaultKeywords.
	Keywords *extract.Keywords
	// RegexLibrary overrides schema.DefaultRegexLibrary.
	RegexLibrary map[string]string
	// Now stamps scrapedAt; time.Now when nil.
	Now func() time.Time
}

// Extractor runs the extraction pipeline.
type Extractor struct {
	fields *extract.Extractor
	regex  map[string]string
	now    func() time.Time
}

// New returns an Extractor.
func New(opts Options) *Extractor {
	kw := extract.DefaultKeywords()
	if opts.Keywords != nil {
		kw = *opts.Keywords
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Extractor{
		fields: extract.New(kw),
		regex:  opts.RegexLibrary,
		now:    opts.Now,
	}
}

// Scrape renders source with d and extracts its schema. A render failure or
// timeout aborts the run.
func (e *Extractor) Scrape(ctx context.Context, d driver.Driver, source string) (*schema.FormSchema, error) {
	log := slog.With("run", uuid.NewString(), "source", source)
	log.Info("Rendering page")

	start := time.Now()
	snap, err := d.Snapshot(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("formschema: %w", err)
	}
	log.Debug("Snapshot captured", "url", snap.URL, "bytes", len(snap.HTML),
		"controls", len(snap.Controls), "elapsed", time.Since(start))

	fs, err := e.FromSnapshot(snap, source)
	if err != nil {
		return nil, err
	}
	log.Info("Schema extracted", "total", fs.Counts.Total, "step1", fs.Counts.Step1, "step2", fs.Counts.Step2)
	return fs, nil
}

// FromSnapshot extracts the schema of an already captured page.
func (e *Extractor) FromSnapshot(snap *driver.Snapshot, source string) (*schema.FormSchema, error) {
	doc, err := htmlutil.LoadHTMLString(snap.HTML)
	if err != nil {
		return nil, fmt.Errorf("formschema: parse snapshot: %w", err)
	}
	var opts []extract.DocumentOption
	if snap.Controls != nil {
		opts = append(opts, extract.WithControlStates(snap.Controls))
	}
	return e.build(extract.NewDocument(doc, opts...), source)
}

// ExtractHTML extracts the schema of raw markup, resolving styles from the
// markup itself.
func (e *Extractor) ExtractHTML(html, source string) (*schema.FormSchema, error) {
	return e.FromSnapshot(&driver.Snapshot{URL: source, HTML: html}, source)
}

func (e *Extractor) build(doc *extract.Document, source string) (*schema.FormSchema, error) {
	fs, err := schema.Build(e.fields.Fields(doc), source, e.regex, e.now())
	if err != nil {
		return nil, fmt.Errorf("formschema: %w", err)
	}
	return fs, nil
}
