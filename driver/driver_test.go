package driver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/happyhackingspace/formschema/extract"
	"github.com/happyhackingspace/formschema/schema"
)

const formHTML = `<!DOCTYPE html><html><body><form>
<label for="pan">PAN</label><input id="pan" name="pan">
<select name="s"><option>a</option><option selected>b</option></select>
</form></body></html>`

func TestNew(t *testing.T) {
	for _, name := range append(Names(), "", "ChromeDP") {
		d, err := New(name, Options{})
		if err != nil {
			t.Errorf("New(%q) error: %v", name, err)
			continue
		}
		if err := d.Close(); err != nil {
			t.Errorf("New(%q).Close() error: %v", name, err)
		}
	}
	if _, err := New("lynx", Options{}); !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("New(lynx) error = %v, want ErrUnknownDriver", err)
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	got := Options{Width: 800, Headless: false}.withDefaults()
	want := Options{UserAgent: DefaultUserAgent, Width: 800, Height: DefaultHeight, Timeout: DefaultTimeout}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("withDefaults() mismatch (-want +got):\n%s", diff)
	}
}

func TestIsURL(t *testing.T) {
	tests := map[string]bool{
		"https://udyamregistration.gov.in/UdyamRegistration.aspx": true,
		"http://localhost:8080/form":                              true,
		"ftp://example.org/form.html":                             false,
		"form.html":                                               false,
		"/tmp/form.html":                                          false,
		"-":                                                       false,
	}
	for in, want := range tests {
		if got := IsURL(in); got != want {
			t.Errorf("IsURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNavigableURL(t *testing.T) {
	got, err := navigableURL("https://example.org/a?b=c")
	if err != nil || got != "https://example.org/a?b=c" {
		t.Errorf("navigableURL(https) = %q, %v", got, err)
	}

	got, err = navigableURL("testdata/form.html")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "file:///") || !strings.HasSuffix(got, "/testdata/form.html") {
		t.Errorf("navigableURL(path) = %q, want absolute file URL", got)
	}
}

func TestDecodeSnapshot(t *testing.T) {
	raw := `{"url":"https://example.org/","html":"<html></html>","controls":[
		{"display":"inline-block","visibility":"visible","opacity":"1"},
		{"display":"none","visibility":"visible","opacity":"1","selected":[1]}]}`
	got, err := decodeSnapshot(raw)
	if err != nil {
		t.Fatal(err)
	}
	want := &Snapshot{
		URL:  "https://example.org/",
		HTML: "<html></html>",
		Controls: []extract.ControlState{
			{Style: schema.Style{Display: "inline-block", Visibility: "visible", Opacity: "1"}},
			{Style: schema.Style{Display: "none", Visibility: "visible", Opacity: "1"}, Selected: []int{1}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decodeSnapshot() mismatch (-want +got):\n%s", diff)
	}

	if _, err := decodeSnapshot("undefined"); err == nil {
		t.Error("decodeSnapshot(undefined) expected error")
	}
}

func TestStaticSnapshotHTTP(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/form" {
			http.NotFound(w, r)
			return
		}
		gotUA = r.UserAgent()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(formHTML))
	}))
	defer srv.Close()

	d, err := New(Static, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	snap, err := d.Snapshot(context.Background(), srv.URL+"/form")
	if err != nil {
		t.Fatal(err)
	}
	if snap.HTML != formHTML || snap.URL != srv.URL+"/form" || snap.Controls != nil {
		t.Errorf("Snapshot() = %+v", snap)
	}
	if gotUA != DefaultUserAgent {
		t.Errorf("User-Agent = %q, want %q", gotUA, DefaultUserAgent)
	}

	if _, err := d.Snapshot(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestStaticSnapshotCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	d, _ := New(Static, Options{})
	if _, err := d.Snapshot(ctx, srv.URL); err == nil {
		t.Error("expected error after deadline")
	}
}

func TestStaticSnapshotFileAndStdin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "form.html")
	if err := os.WriteFile(path, []byte(formHTML), 0o644); err != nil {
		t.Fatal(err)
	}

	d := newStatic(DefaultOptions())
	snap, err := d.Snapshot(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if snap.HTML != formHTML {
		t.Errorf("file snapshot HTML = %q", snap.HTML)
	}

	d.stdin = strings.NewReader(formHTML)
	snap, err = d.Snapshot(context.Background(), Stdin)
	if err != nil {
		t.Fatal(err)
	}
	if snap.HTML != formHTML || snap.URL != Stdin {
		t.Errorf("stdin snapshot = %+v", snap)
	}

	if _, err := d.Snapshot(context.Background(), filepath.Join(t.TempDir(), "nope.html")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want os.ErrNotExist", err)
	}
}

func TestIdleTracker(t *testing.T) {
	tr := newIdleTracker()
	tr.idleSince = time.Now().Add(-time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := tr.wait(ctx); err != nil {
		t.Errorf("wait() on idle network = %v", err)
	}

	tr.idleSince = time.Time{}
	ctx, cancel = context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := tr.wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("wait() on busy network = %v, want deadline exceeded", err)
	}
}

func TestChromedpSnapshot(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if !hasChrome() {
		t.Skip("no Chrome binary found")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(formHTML))
	}))
	defer srv.Close()

	d, err := New(Chromedp, Options{Timeout: 30 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	snap, err := d.Snapshot(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Controls) != 2 {
		t.Fatalf("len(Controls) = %d, want 2", len(snap.Controls))
	}
	if diff := cmp.Diff([]int{1}, snap.Controls[1].Selected); diff != "" {
		t.Errorf("live selection mismatch (-want +got):\n%s", diff)
	}
}

func hasChrome() bool {
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "google-chrome-stable"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}
