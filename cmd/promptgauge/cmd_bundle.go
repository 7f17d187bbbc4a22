package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/promptgauge/promptgauge/internal/bundle"
)

func newExportCmd(a *app) *cobra.Command {
	var format string
	var summaries bool

	cmd := &cobra.Command{
		Use:   "export <prompt> <file>",
		Short: "Export a prompt's versions to a JSON or YAML bundle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			b, err := bundle.Export(cmd.Context(), s, args[0], args[1], bundle.Format(format), summaries)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Exported %d versions of %s to %s\n", len(b.Versions), args[0], args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "bundle format: json or yaml (default from extension)")
	cmd.Flags().BoolVar(&summaries, "summaries", false, "include each version's metrics summary")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var format string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import versions from a bundle file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			prompt, count, err := bundle.Import(cmd.Context(), s, args[0], bundle.Format(format), overwrite)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Imported %d versions of %s\n", count, prompt)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "bundle format: json or yaml (default from extension)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace versions that already exist")
	return cmd
}
