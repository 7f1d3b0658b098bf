package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

const repositorySlug = "happyhackingspace/formschema"

func (c *CLI) newUpCommand() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Self-update to the latest formschema release",
		Example: `  # Report whether a newer release exists
  formschema up --check

  # Replace the running binary with the latest release
  formschema up`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.selfUpdate(cmd.Context(), cmd.OutOrStdout(), check)
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Only report the latest release, do not install it")
	return cmd
}

// releaseVersion is the version compared against releases. Development
// builds compare as 0.0.0 so any release is newer.
func releaseVersion(version string) string {
	if version == "" || version == "dev" {
		return "0.0.0"
	}
	return version
}

func (c *CLI) selfUpdate(ctx context.Context, w io.Writer, check bool) error {
	updater, err := selfupdate.NewUpdater(selfupdate.Config{})
	if err != nil {
		return err
	}

	latest, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(repositorySlug))
	if err != nil {
		return fmt.Errorf("detect latest version: %w", err)
	}
	if !found {
		return fmt.Errorf("no release found for %s", repositorySlug)
	}

	if latest.LessOrEqual(releaseVersion(c.version)) {
		fmt.Fprintf(w, "formschema is up to date (%s)\n", c.version)
		return nil
	}
	if check {
		fmt.Fprintf(w, "formschema %s is available (running %s)\n", latest.Version(), c.version)
		return nil
	}

	slog.Info("Updating", "from", c.version, "to", latest.Version())

	exe, err := os.Executable()
	if err != nil {
		return err
	}

	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return fmt.Errorf("update: %w", err)
	}

	fmt.Fprintf(w, "formschema updated to %s\n", latest.Version())
	return nil
}
