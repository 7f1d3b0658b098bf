package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/formschema/internal/storage"
)

// seedEntry represents a single entry in the seed file (JSONL).
type seedEntry struct {
	URL string `json:"url"`
}

func (c *CLI) newBatchCommand() *cobra.Command {
	var flags runFlags
	var seedFile string
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Extract schemas for every source of a seed file",
		Args:  cobra.NoArgs,
		Example: `  # One output folder per source domain
  formschema batch --seed seeds.jsonl -o data

  # Wait between sources
  formschema batch --seed seeds.jsonl --delay 5s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			seeds, err := loadSeeds(seedFile)
			if err != nil {
				return fmt.Errorf("load seeds: %w", err)
			}
			if len(seeds) == 0 {
				return fmt.Errorf("no seeds in %s", seedFile)
			}

			r, err := newRunner(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			ctx := cmd.Context()
			root := storage.NewStorage(cfg.Output)
			var errs []error
			saved := 0
			for i, s := range seeds {
				if ctx.Err() != nil {
					errs = append(errs, ctx.Err())
					break
				}
				if i > 0 && delay > 0 {
					time.Sleep(delay)
				}
				slog.Info("Processing seed", "index", i+1, "total", len(seeds), "url", s.URL)
				fs, err := r.scrape(ctx, s.URL)
				if err == nil {
					err = r.save(root.ForSource(s.URL), fs)
				}
				if err != nil {
					slog.Error("Seed failed", "url", s.URL, "error", err)
					errs = append(errs, fmt.Errorf("%s: %w", s.URL, err))
					continue
				}
				saved++
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d sources saved to %s\n", saved, len(seeds), root.Folder)
			return errors.Join(errs...)
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVar(&seedFile, "seed", "seeds.jsonl", "Seed file (JSONL with url)")
	cmd.Flags().DurationVar(&delay, "delay", 0, "Pause between sources")
	return cmd
}

func loadSeeds(path string) ([]seedEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var seeds []seedEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var s seedEntry
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			slog.Warn("Skipping invalid seed line", "line", line, "error", err)
			continue
		}
		if s.URL == "" {
			slog.Warn("Skipping seed without url", "line", line)
			continue
		}
		seeds = append(seeds, s)
	}
	return seeds, scanner.Err()
}
