/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"errors"

	"github.com/fulmenhq/resload/internal/generate"
	"github.com/fulmenhq/resload/internal/gitctx"
	"github.com/fulmenhq/resload/internal/ingest"
	"github.com/fulmenhq/resload/internal/staging"
	"github.com/fulmenhq/resload/pkg/exitcode"
)

// configError marks repository discovery and configuration failures.
type configError struct {
	err error
}

func (e *configError) Error() string { return "configuration: " + e.err.Error() }

func (e *configError) Unwrap() error { return e.err }

// exitCodeFor maps a command error to the process exit code.
func exitCodeFor(err error) int {
	if err == nil || errors.Is(err, gitctx.ErrNothingToCommit) {
		return exitcode.Success
	}

	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		return exitcode.ConfigError
	}

	var unrelated *gitctx.UnrelatedChangesError
	if ingest.NeedsInput(err) || errors.As(err, &unrelated) {
		return exitcode.NeedsInput
	}

	if stage, ok := ingest.StageOf(err); ok {
		switch stage {
		case ingest.StageLoad, ingest.StageValidation:
			return exitcode.ValidationError
		case ingest.StageCollision:
			return exitcode.CollisionError
		case ingest.StageStaging:
			return exitcode.FileSystemError
		case ingest.StagePreGate, ingest.StagePostGate:
			return exitcode.GateError
		case ingest.StageGenerator:
			if generate.IsTimeout(err) {
				return exitcode.TimeoutError
			}
			return exitcode.GeneratorError
		case ingest.StageCommit:
			return exitcode.VCSError
		}
	}

	var cmdErr *gitctx.CommandError
	if errors.As(err, &cmdErr) {
		return exitcode.VCSError
	}
	if staging.IsStageError(err) {
		return exitcode.FileSystemError
	}
	var stepErr *fileStepError
	if errors.As(err, &stepErr) {
		return exitcode.FileSystemError
	}
	return exitcode.GeneralError
}

// fileStepError marks rollback and cleanup failures against the filesystem.
type fileStepError struct {
	op  string
	err error
}

func (e *fileStepError) Error() string { return e.op + " failed: " + e.err.Error() }

func (e *fileStepError) Unwrap() error { return e.err }
