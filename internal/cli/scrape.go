package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/formschema/driver"
	"github.com/happyhackingspace/formschema/internal/storage"
	"github.com/happyhackingspace/formschema/schema"
)

func (c *CLI) newScrapeCommand() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "scrape [url-or-file]",
		Short: "Extract the field schema of a form page, HTML file, or stdin",
		Args:  cobra.MaximumNArgs(1),
		Example: `  # Scrape the default registration form
  formschema scrape

  # Scrape a URL with the default browser driver
  formschema scrape https://udyamregistration.gov.in/UdyamRegistration.aspx

  # Use another browser backend
  formschema scrape https://example.org/register --driver rod

  # Extract from a saved page without a browser
  formschema scrape page.html --driver static

  # Pipe HTML content
  curl -s https://example.org/register | formschema scrape

  # Print the schema instead of writing files
  formschema scrape page.html --driver static -o -

  # Also write an OpenAPI document
  formschema scrape --openapi yaml -o out`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd)
			if err != nil {
				return err
			}

			html, source, err := resolveSource(args, len(args) == 0 && !isStdinTerminal(), cmd.InOrStdin(), cfg.Source)
			if err != nil {
				return err
			}
			if source == driver.Stdin {
				cfg.Driver = driver.Static
			}

			r, err := newRunner(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			var fs *schema.FormSchema
			if html != "" {
				fs, err = r.extractor(source).ExtractHTML(html, source)
			} else {
				fs, err = r.scrape(cmd.Context(), source)
			}
			if err != nil {
				return err
			}

			if cfg.Output == "-" {
				if cfg.OpenAPI != "" {
					slog.Warn("OpenAPI output needs an output folder, skipping", "format", cfg.OpenAPI)
				}
				output, err := json.MarshalIndent(fs, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return err
			}

			st := storage.NewStorage(cfg.Output)
			if err := r.save(st, fs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d fields (step 1: %d, step 2: %d) saved to %s\n",
				fs.Counts.Total, fs.Counts.Step1, fs.Counts.Step2, st.Folder)
			return nil
		},
	}

	flags.bind(cmd)
	return cmd
}
