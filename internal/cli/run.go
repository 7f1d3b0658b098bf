package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/formschema"
	"github.com/happyhackingspace/formschema/driver"
	"github.com/happyhackingspace/formschema/internal/config"
	"github.com/happyhackingspace/formschema/internal/openapi"
	"github.com/happyhackingspace/formschema/internal/storage"
	"github.com/happyhackingspace/formschema/schema"
)

// runFlags are the settings shared by scrape and batch. Flags the user sets
// explicitly override the FORMSCHEMA_* environment.
type runFlags struct {
	driver    string
	output    string
	keywords  string
	timeout   time.Duration
	userAgent string
	width     int
	height    int
	headless  bool
	openapi   string
}

func (f *runFlags) bind(cmd *cobra.Command) {
	def := config.Default()
	flags := cmd.Flags()
	flags.StringVar(&f.driver, "driver", def.Driver, "Page driver: "+strings.Join(driver.Names(), ", "))
	flags.StringVarP(&f.output, "output", "o", def.Output, "Output folder")
	flags.StringVar(&f.keywords, "keywords", "", "Keyword profiles file (default: auto-detect keywords.yaml)")
	flags.DurationVar(&f.timeout, "timeout", def.Timeout, "Navigation timeout")
	flags.StringVar(&f.userAgent, "user-agent", def.UserAgent, "Browser user agent")
	flags.IntVar(&f.width, "width", def.Width, "Viewport width")
	flags.IntVar(&f.height, "height", def.Height, "Viewport height")
	flags.BoolVar(&f.headless, "headless", def.Headless, "Run the browser headless")
	flags.StringVar(&f.openapi, "openapi", "", "Also write an OpenAPI document: json or yaml")
}

// resolve loads the environment configuration and applies the flags that
// were set on the command line.
func (f *runFlags) resolve(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("driver") {
		cfg.Driver = f.driver
	}
	if flags.Changed("output") {
		cfg.Output = f.output
	}
	if flags.Changed("keywords") {
		cfg.Keywords = f.keywords
	}
	if flags.Changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if flags.Changed("user-agent") {
		cfg.UserAgent = f.userAgent
	}
	if flags.Changed("width") {
		cfg.Width = f.width
	}
	if flags.Changed("height") {
		cfg.Height = f.height
	}
	if flags.Changed("headless") {
		cfg.Headless = f.headless
	}
	if flags.Changed("openapi") {
		cfg.OpenAPI = f.openapi
	}
	switch cfg.OpenAPI {
	case "", openapi.FormatJSON, openapi.FormatYAML:
	default:
		return nil, fmt.Errorf("%w %q", openapi.ErrUnknownFormat, cfg.OpenAPI)
	}
	return cfg, nil
}

// runner extracts schemas for one or more sources with a shared driver, so
// a batch launches the browser once.
type runner struct {
	cfg      *config.Config
	profiles *config.Profiles
	driver   driver.Driver
}

func newRunner(cfg *config.Config) (*runner, error) {
	profiles, err := loadProfiles(cfg.Keywords)
	if err != nil {
		return nil, err
	}
	d, err := driver.New(cfg.Driver, cfg.DriverOptions())
	if err != nil {
		return nil, err
	}
	return &runner{cfg: cfg, profiles: profiles, driver: d}, nil
}

func (r *runner) Close() error {
	return r.driver.Close()
}

func (r *runner) extractor(source string) *formschema.Extractor {
	kw := r.profiles.For(source)
	opts := formschema.Options{Keywords: &kw}
	if r.profiles != nil && len(r.profiles.RegexLibrary) > 0 {
		opts.RegexLibrary = r.profiles.RegexLibrary
	}
	return formschema.New(opts)
}

// scrape renders source and extracts its schema.
func (r *runner) scrape(ctx context.Context, source string) (*schema.FormSchema, error) {
	return r.extractor(source).Scrape(ctx, r.driver, source)
}

// save writes the schema artifacts, plus the OpenAPI document when one was
// requested.
func (r *runner) save(st *storage.Storage, fs *schema.FormSchema) error {
	if err := st.Save(fs); err != nil {
		return err
	}
	if r.cfg.OpenAPI == "" {
		return nil
	}
	return writeOpenAPI(st, fs, r.cfg.OpenAPI)
}

func writeOpenAPI(st *storage.Storage, fs *schema.FormSchema, format string) error {
	doc, err := openapi.Build(fs)
	if err != nil {
		return err
	}
	data, err := openapi.Marshal(doc, format)
	if err != nil {
		return err
	}
	name := openapi.FileName(format)
	if err := st.WriteFile(name, data); err != nil {
		return err
	}
	slog.Debug("OpenAPI document saved", "folder", st.Folder, "file", name)
	return nil
}

// loadProfiles reads the keyword profiles at path. An empty path searches for
// keywords.yaml and falls back to the built-in keywords when none exists.
func loadProfiles(path string) (*config.Profiles, error) {
	if path == "" {
		found, err := config.FindKeywords()
		if errors.Is(err, config.ErrKeywordsNotFound) {
			slog.Debug("Using built-in keywords")
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		path = found
	}
	slog.Debug("Loading keywords", "path", path)
	return config.LoadKeywords(path)
}

func isStdinTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// errEmptyStdin is returned by readFromStdin when nothing was piped.
var errEmptyStdin = errors.New("stdin is empty")

// readFromStdin returns the piped content. When it is a URL, target holds the
// URL and html is empty.
func readFromStdin(r io.Reader) (html, target string, err error) {
	slog.Debug("Reading from stdin")
	body, err := io.ReadAll(r)
	if err != nil {
		return "", "", fmt.Errorf("read stdin: %w", err)
	}
	content := strings.TrimSpace(string(body))
	if content == "" {
		return "", "", errEmptyStdin
	}

	if driver.IsURL(content) {
		slog.Debug("Stdin contains URL", "url", content)
		return "", content, nil
	}

	return content, "stdin", nil
}

// resolveSource picks what scrape works on: the argument, else piped stdin,
// else the configured default source. Empty piped stdin counts as no input.
func resolveSource(args []string, piped bool, in io.Reader, fallback string) (html, source string, err error) {
	if len(args) == 1 {
		return "", args[0], nil
	}
	if !piped {
		return "", fallback, nil
	}
	html, source, err = readFromStdin(in)
	if errors.Is(err, errEmptyStdin) {
		slog.Debug("Stdin is empty, using the configured source", "source", fallback)
		return "", fallback, nil
	}
	return html, source, err
}
