package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/formschema/internal/openapi"
	"github.com/happyhackingspace/formschema/internal/storage"
)

func (c *CLI) newOpenAPICommand() *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "openapi <formSchema.json>",
		Short: "Convert a saved form schema to an OpenAPI document",
		Args:  cobra.ExactArgs(1),
		Example: `  # Write formSchema.openapi.json next to the schema
  formschema openapi data/formSchema.json

  # Print YAML to stdout
  formschema openapi data/formSchema.json --format yaml -o -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := storage.LoadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := openapi.Build(fs)
			if err != nil {
				return err
			}
			data, err := openapi.Marshal(doc, format)
			if err != nil {
				return err
			}

			if output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if output == "" {
				output = filepath.Dir(args[0])
			}
			st := storage.NewStorage(output)
			name := openapi.FileName(format)
			if err := st.WriteFile(name, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OpenAPI document saved to %s\n", filepath.Join(st.Folder, name))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", openapi.FormatJSON, "Document format: json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output folder, - for stdout (default: the schema's folder)")
	return cmd
}
