/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/resload/internal/ingest"
	"github.com/fulmenhq/resload/internal/ops"
)

var validateCmd = &cobra.Command{
	Use:   "validate <markdown> <image> <image>",
	Short: "Run the bundle checks without writing anything",
	Long: `Validate loads the bundle, checks metadata and images and scans the
destinations for slug collisions. Nothing is staged and no generator runs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	mustRegister("validate", ops.GroupIngest, ops.CategoryValidation, validateCmd)

	validateCmd.Flags().Bool("force", false, "Treat existing files for the slug as overwritable")
	validateCmd.Flags().String("hero", "", "Path of the hero image when filenames do not tell")
	validateCmd.Flags().String("metadata", "", "YAML answers file for a document without front matter")
}

func runValidate(cmd *cobra.Command, args []string) error {
	root, cfg, err := resolveRepo(cmd)
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")
	hero, _ := cmd.Flags().GetString("hero")
	answers, _ := cmd.Flags().GetString("metadata")

	c, err := ingest.Check(cmd.Context(), ingest.Options{
		Root:           root,
		Config:         cfg,
		Files:          args,
		Hero:           hero,
		AnswersFile:    answers,
		AllowOverwrite: force,
		Sink:           pipelineSink(),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Bundle OK: %s\n", c.Slug())
	fmt.Fprintf(out, "  Document: %s\n", filepath.Base(c.Bundle.Document))
	fmt.Fprintf(out, "  Hero:     %s\n", filepath.Base(c.Roles.Hero))
	fmt.Fprintf(out, "  Inline:   %s\n", filepath.Base(c.Roles.Inline))
	for _, w := range c.Warnings {
		fmt.Fprintf(out, "  Warning:  %s\n", w)
	}
	return nil
}
