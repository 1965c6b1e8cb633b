/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fulmenhq/resload/internal/frontmatter"
	"github.com/fulmenhq/resload/internal/ingest"
	"github.com/fulmenhq/resload/internal/ops"
	"github.com/fulmenhq/resload/internal/runner"
)

// ingestRunner is replaced in tests to keep generators and git off the host.
var ingestRunner runner.Runner = runner.ExecRunner{}

var ingestCmd = &cobra.Command{
	Use:   "ingest <markdown> <image> <image>",
	Short: "Validate, stage, generate and gate a resource bundle",
	Long: `Ingest runs the full pipeline for one bundle: metadata and image checks,
the slug collision scan, staging to the destination paths, both generators
and the pre- and post-generation gates. With --commit the changes are
committed (and pushed, unless git.push is false) when every gate passes.

A failure after staging leaves the staged files and the working directory in
place; use 'resload rollback <session-dir>' to undo them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	mustRegister("ingest", ops.GroupIngest, ops.CategoryPipeline, ingestCmd)

	ingestCmd.Flags().Bool("force", false, "Overwrite existing files for the same slug")
	ingestCmd.Flags().Bool("keep-temp", false, "Keep the working directory after a successful run")
	ingestCmd.Flags().Bool("debug", false, "Copy failing artifacts to last_failed and log generator output")
	ingestCmd.Flags().String("hero", "", "Path of the hero image when filenames do not tell")
	ingestCmd.Flags().String("metadata", "", "YAML answers file for a document without front matter")
	ingestCmd.Flags().Bool("commit", false, "Commit the changes after a successful run")
	ingestCmd.Flags().Bool("allow-unrelated", false, "Commit even when unrelated files are modified")
}

func runIngest(cmd *cobra.Command, args []string) error {
	root, cfg, err := resolveRepo(cmd)
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")
	keep, _ := cmd.Flags().GetBool("keep-temp")
	debug, _ := cmd.Flags().GetBool("debug")
	hero, _ := cmd.Flags().GetString("hero")
	answers, _ := cmd.Flags().GetString("metadata")
	commit, _ := cmd.Flags().GetBool("commit")
	allowUnrelated, _ := cmd.Flags().GetBool("allow-unrelated")

	out := cmd.OutOrStdout()
	outcome, err := ingest.Run(cmd.Context(), ingest.Options{
		Root:           root,
		Config:         cfg,
		Files:          args,
		Hero:           hero,
		AnswersFile:    answers,
		AllowOverwrite: force,
		Keep:           keep,
		Debug:          debug,
		Commit:         commit,
		AllowUnrelated: allowUnrelated,
		Runner:         ingestRunner,
		Sink:           pipelineSink(),
	})
	if err != nil {
		var nm *ingest.NeedsMetadataError
		if errors.As(err, &nm) {
			if werr := writeAnswersTemplate(out, nm); werr != nil {
				return werr
			}
		}
		if outcome != nil && outcome.Session != nil {
			fmt.Fprintf(out, "Session: %s\n", outcome.Session.WorkDir)
		}
		return err
	}

	fmt.Fprintf(out, "Ingested: %s\n", outcome.Slug)
	if outcome.Session != nil && outcome.Session.Keep {
		fmt.Fprintf(out, "Session: %s\n", outcome.Session.WorkDir)
	}
	switch {
	case outcome.NothingToCommit:
		fmt.Fprintln(out, "Nothing to commit")
	case outcome.Commit != nil:
		fmt.Fprintf(out, "Committed: %s\n", outcome.Commit.Message)
	}
	return nil
}

// writeAnswersTemplate prints prefilled answers for a document that has no
// metadata block, ready to be saved and passed back with --metadata.
func writeAnswersTemplate(w io.Writer, nm *ingest.NeedsMetadataError) error {
	a := frontmatter.Answers{Title: nm.Title}.WithDefaults(nm.Title, time.Now())
	raw, err := yaml.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to render answers template: %w", err)
	}
	fmt.Fprintf(w, "# %s has no front matter. Complete these answers and rerun with --metadata.\n", nm.Path)
	_, err = w.Write(raw)
	return err
}
