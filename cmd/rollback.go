/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/resload/internal/ops"
	"github.com/fulmenhq/resload/internal/staging"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback <session-dir>",
	Short: "Undo the files written by a staging session",
	Long: `Rollback removes the files a staging session wrote, restores the
snapshots it took and deletes a generated page that did not exist before.
Running it twice is harmless. The working directory is removed afterwards
unless --keep-temp is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runRollback,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup <session-dir>",
	Short: "Delete a staging session's working directory",
	Long: `Cleanup deletes the working directory of a staging session. A session
created with --keep-temp is only deleted with --force.`,
	Args: cobra.ExactArgs(1),
	RunE: runCleanup,
}

func init() {
	mustRegister("rollback", ops.GroupWorkflow, ops.CategoryRecovery, rollbackCmd)
	mustRegister("cleanup", ops.GroupWorkflow, ops.CategoryRecovery, cleanupCmd)

	rollbackCmd.Flags().Bool("keep-temp", false, "Keep the working directory after rolling back")
	cleanupCmd.Flags().Bool("force", false, "Delete even when the session asked to be kept")
}

func runRollback(cmd *cobra.Command, args []string) error {
	s, err := staging.Open(args[0])
	if err != nil {
		return &fileStepError{op: "rollback", err: err}
	}
	sink := pipelineSink()
	already := s.RolledBack
	if err := staging.Rollback(s, sink); err != nil {
		return &fileStepError{op: "rollback", err: err}
	}

	out := cmd.OutOrStdout()
	if already {
		fmt.Fprintf(out, "Already rolled back: %s\n", s.Slug)
	} else {
		fmt.Fprintf(out, "Rolled back: %s\n", s.Slug)
	}

	if keep, _ := cmd.Flags().GetBool("keep-temp"); keep {
		return nil
	}
	if err := staging.Cleanup(s, true, sink); err != nil {
		return &fileStepError{op: "cleanup", err: err}
	}
	return nil
}

func runCleanup(cmd *cobra.Command, args []string) error {
	s, err := staging.Open(args[0])
	if err != nil {
		return &fileStepError{op: "cleanup", err: err}
	}
	force, _ := cmd.Flags().GetBool("force")
	if err := staging.Cleanup(s, force, pipelineSink()); err != nil {
		return &fileStepError{op: "cleanup", err: err}
	}
	if s.Keep && !force {
		fmt.Fprintf(cmd.OutOrStdout(), "Kept: %s (use --force to delete)\n", s.WorkDir)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleaned up: %s\n", s.WorkDir)
	return nil
}
