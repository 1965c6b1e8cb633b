/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/resload/internal/gitctx"
	"github.com/fulmenhq/resload/internal/ingest"
	"github.com/fulmenhq/resload/internal/ops"
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Commit and push the files of an ingested resource",
	Long: `Commit stages every change, commits it with the configured message and
pushes (unless git.push is false). Modified files unrelated to the slug block
the commit unless --allow-unrelated is given.`,
	Args: cobra.NoArgs,
	RunE: runCommit,
}

func init() {
	mustRegister("commit", ops.GroupWorkflow, ops.CategoryVCS, commitCmd)

	commitCmd.Flags().String("slug", "", "Slug of the ingested resource (required)")
	commitCmd.Flags().Bool("allow-unrelated", false, "Commit even when unrelated files are modified")
	_ = commitCmd.MarkFlagRequired("slug")
}

func runCommit(cmd *cobra.Command, _ []string) error {
	root, cfg, err := resolveRepo(cmd)
	if err != nil {
		return err
	}
	slug, _ := cmd.Flags().GetString("slug")
	allowUnrelated, _ := cmd.Flags().GetBool("allow-unrelated")

	out := cmd.OutOrStdout()
	res, err := gitctx.Commit(cmd.Context(), ingestRunner, root, gitctx.Options{
		Slug:           strings.TrimSpace(slug),
		Template:       cfg.Git.CommitTemplate,
		AllowUnrelated: allowUnrelated,
		Push:           cfg.Git.Push,
		Binary:         cfg.Git.Binary,
		Timeout:        cfg.Git.Timeout,
		Sink:           pipelineSink(),
	})
	if errors.Is(err, gitctx.ErrNothingToCommit) {
		fmt.Fprintln(out, "Nothing to commit")
		return nil
	}
	if err != nil {
		var unrelated *gitctx.UnrelatedChangesError
		if errors.As(err, &unrelated) {
			for _, p := range unrelated.Paths {
				fmt.Fprintf(out, "  unrelated: %s\n", p)
			}
		}
		return &ingest.Failure{Stage: ingest.StageCommit, Err: err}
	}
	fmt.Fprintf(out, "Committed: %s\n", res.Message)
	return nil
}
