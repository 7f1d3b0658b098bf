package formschema

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/happyhackingspace/formschema/driver"
	"github.com/happyhackingspace/formschema/extract"
	"github.com/happyhackingspace/formschema/schema"
)

const registrationHTML = `<!DOCTYPE html><html><head><style>
  .step2 { display: none }
</style></head><body>
<div class="form-group">
  <label for="txtadharno">Aadhaar Number/ आधार संख्या</label>
  <input id="txtadharno" name="ctl00$txtadharno" maxlength="12" required>
</div>
<div class="form-group">
  <label for="txtownername">Name of Entrepreneur</label>
  <input id="txtownername" name="ctl00$txtownername">
</div>
<input type="submit" name="btnValidateAadhaar" value="Validate &amp; Generate OTP">
<div class="panel">
  <h4 class="panel-title">PAN Verification</h4>
  <div class="panel-body">
    <div class="form-group">
      <label for="ddlTypeofOrg">Type of Organisation</label>
      <select id="ddlTypeofOrg" name="ddlTypeofOrg" class="step2">
        <option value="0">Type of Organisation</option>
        <option value="1" selected>Proprietary / एकल स्वममत्व</option>
        <option value="2">Hindu Undivided Family</option>
      </select>
    </div>
    <div class="form-group">
      <label for="txtPan">PAN</label>
      <input id="txtPan" name="txtPan" class="step2" pattern="[A-Z]{5}[0-9]{4}[A-Z]{1}">
    </div>
  </div>
</div>
<div><input type="hidden" name="__VIEWSTATE" value="xyz"></div>
</body></html>`

var fixedNow = time.Date(2026, 3, 1, 10, 30, 0, 123456789, time.FixedZone("IST", 5*3600+1800))

type fakeDriver struct {
	snap   *driver.Snapshot
	err    error
	target string
}

func (f *fakeDriver) Snapshot(_ context.Context, target string) (*driver.Snapshot, error) {
	f.target = target
	return f.snap, f.err
}

func (f *fakeDriver) Close() error { return nil }

func names(fields []schema.FieldDescriptor) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

func TestExtractHTML(t *testing.T) {
	e := New(Options{Now: func() time.Time { return fixedNow }})
	fs, err := e.ExtractHTML(registrationHTML, "https://udyamregistration.gov.in/UdyamRegistration.aspx")
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"ctl00$txtadharno", "ctl00$txtownername"}, names(fs.Step1)); diff != "" {
		t.Errorf("step1 mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ddlTypeofOrg", "txtPan", "__VIEWSTATE"}, names(fs.Step2)); diff != "" {
		t.Errorf("step2 mismatch (-want +got):\n%s", diff)
	}
	if want := (schema.Counts{Total: 5, Step1: 2, Step2: 3}); fs.Counts != want {
		t.Errorf("counts = %+v, want %+v", fs.Counts, want)
	}
	if want := fixedNow.UTC().Truncate(time.Millisecond); !fs.ScrapedAt.Equal(want) || fs.ScrapedAt.Location() != time.UTC {
		t.Errorf("scrapedAt = %v, want %v", fs.ScrapedAt, want)
	}
	if diff := cmp.Diff(schema.DefaultRegexLibrary(), fs.RegexLibrary); diff != "" {
		t.Errorf("regex library mismatch (-want +got):\n%s", diff)
	}

	pan := fs.Step2[1]
	if pan.Label != "PAN" || pan.Section != "PAN Verification" || !pan.Visibility.Hidden {
		t.Errorf("pan = label %q section %q hidden %v", pan.Label, pan.Section, pan.Visibility.Hidden)
	}
	aadhaar := fs.Step1[0]
	if aadhaar.MaxLength == nil || *aadhaar.MaxLength != 12 || !aadhaar.Required || aadhaar.Step != schema.Step1 {
		t.Errorf("aadhaar = %+v", aadhaar)
	}
}

func TestExtractHTMLIdempotent(t *testing.T) {
	e := New(Options{})
	first, err := e.ExtractHTML(registrationHTML, "src")
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.ExtractHTML(registrationHTML, "src")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second, cmpopts.IgnoreFields(schema.FormSchema{}, "ScrapedAt")); diff != "" {
		t.Errorf("runs differ (-first +second):\n%s", diff)
	}
}

func TestExtractHTMLInvariants(t *testing.T) {
	fs, err := New(Options{}).ExtractHTML(registrationHTML, "src")
	if err != nil {
		t.Fatal(err)
	}
	if fs.Counts.Total != len(fs.Step1)+len(fs.Step2) {
		t.Errorf("total %d != %d + %d", fs.Counts.Total, len(fs.Step1), len(fs.Step2))
	}
	for _, f := range fs.Fields() {
		if f.Step != schema.Step1 && f.Step != schema.Step2 {
			t.Errorf("%s: step = %d", f.Name, f.Step)
		}
		if (f.Options != nil) != f.IsChoice() {
			t.Errorf("%s: options = %v for tag %s", f.Name, f.Options, f.Tag)
		}
		if f.Type == "submit" {
			t.Errorf("%s: submit control extracted", f.Name)
		}
	}
}

func TestExtractHTMLCustomKeywords(t *testing.T) {
	kw := extract.Keywords{Step1: []string{"Organisation"}, Step2: []string{"entrepreneur"}}
	fs, err := New(Options{Keywords: &kw, RegexLibrary: map[string]string{}}).ExtractHTML(registrationHTML, "src")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"ctl00$txtadharno", "ddlTypeofOrg"}, names(fs.Step1)); diff != "" {
		t.Errorf("step1 mismatch (-want +got):\n%s", diff)
	}
	if len(fs.RegexLibrary) != 0 {
		t.Errorf("regex library = %v, want empty", fs.RegexLibrary)
	}
}

func TestExtractHTMLNoControls(t *testing.T) {
	fs, err := New(Options{}).ExtractHTML("<html><body><p>Closed for maintenance</p></body></html>", "src")
	if err != nil {
		t.Fatal(err)
	}
	if fs.Counts.Total != 0 || fs.Step1 == nil || fs.Step2 == nil {
		t.Errorf("schema = %+v, want empty non-nil steps", fs)
	}
}

func TestScrape(t *testing.T) {
	const page = `<html><body>
		<div><label for="mobile">Mobile Number</label><input id="mobile" name="mobile"></div>
		<div><select id="state" name="state"><option>Delhi</option><option selected>Goa</option></select></div>
		<div><input id="extra" name="extra"></div>
	</body></html>`
	visible := schema.Style{Display: "inline-block", Visibility: "visible", Opacity: "1"}
	d := &fakeDriver{snap: &driver.Snapshot{
		URL:  "https://example.org/final",
		HTML: page,
		Controls: []extract.ControlState{
			{Style: visible},
			{Style: visible, Selected: []int{0}},
			{Style: schema.Style{Display: "inline-block", Visibility: "visible", Opacity: "0"}},
		},
	}}

	fs, err := New(Options{}).Scrape(context.Background(), d, "https://example.org/form")
	if err != nil {
		t.Fatal(err)
	}
	if d.target != "https://example.org/form" || fs.Source != "https://example.org/form" {
		t.Errorf("target = %q, source = %q", d.target, fs.Source)
	}
	want := []schema.Option{{Value: "Delhi", Text: "Delhi", Selected: true}, {Value: "Goa", Text: "Goa"}}
	if diff := cmp.Diff(want, fs.Step1[1].Options); diff != "" {
		t.Errorf("live selection not applied (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"extra"}, names(fs.Step2)); diff != "" {
		t.Errorf("live opacity not applied (-want +got):\n%s", diff)
	}
}

func TestScrapeDriverError(t *testing.T) {
	d := &fakeDriver{err: context.DeadlineExceeded}
	fs, err := New(Options{}).Scrape(context.Background(), d, "https://example.org/form")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if fs != nil {
		t.Errorf("schema = %+v, want nil", fs)
	}
}

func TestFromSnapshotTemplateRows(t *testing.T) {
	const page = `<html><head><link rel="stylesheet" href="/site.css"></head><body><form>
		<div><label for="owner">Owner Name</label><input id="owner" name="ownerName"></div>
		<template id="address-row"><div><input name="rowTemplate"></div></template>
		<div class="collapsed"><input id="address" name="businessAddress"></div>
	</form></body></html>`
	snap := &driver.Snapshot{
		URL:  "https://example.org/form",
		HTML: page,
		Controls: []extract.ControlState{
			{Style: schema.Style{Display: "inline-block", Visibility: "visible", Opacity: "1"}},
			{Style: schema.Style{Display: "none", Visibility: "visible", Opacity: "1"}},
		},
	}

	fs, err := New(Options{}).FromSnapshot(snap, snap.URL)
	if err != nil {
		t.Fatal(err)
	}
	if fs.Counts.Total != 2 {
		t.Errorf("Total = %d, want 2", fs.Counts.Total)
	}
	if diff := cmp.Diff([]string{"ownerName"}, names(fs.Step1)); diff != "" {
		t.Errorf("step1 mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"businessAddress"}, names(fs.Step2)); diff != "" {
		t.Errorf("step2 mismatch (-want +got):\n%s", diff)
	}
}
