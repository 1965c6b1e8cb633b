package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// Phase names the pipeline step a Failure came from.
type Phase int

const (
	StageLoad Phase = iota + 1
	StageValidation
	StageCollision
	StageStaging
	StagePreGate
	StageGenerator
	StagePostGate
	StageCommit
)

func (s Phase) String() string {
	switch s {
	case StageLoad:
		return "load"
	case StageValidation:
		return "validation"
	case StageCollision:
		return "collision"
	case StageStaging:
		return "staging"
	case StagePreGate:
		return "pre-generation gate"
	case StageGenerator:
		return "generator"
	case StagePostGate:
		return "post-generation gate"
	case StageCommit:
		return "commit"
	default:
		return fmt.Sprintf("stage %d", int(s))
	}
}

// Failure is returned by Run when a stage stops the pipeline. Problems holds
// the full enumerated list for checks; Err the underlying cause otherwise.
type Failure struct {
	Stage    Phase
	Problems []string
	Err      error
}

func (f *Failure) Error() string {
	switch {
	case len(f.Problems) > 0:
		return fmt.Sprintf("%s failed: %s", f.Stage, strings.Join(f.Problems, "; "))
	case f.Err != nil:
		return fmt.Sprintf("%s failed: %v", f.Stage, f.Err)
	default:
		return fmt.Sprintf("%s failed", f.Stage)
	}
}

func (f *Failure) Unwrap() error { return f.Err }

// StageOf returns the stage of a *Failure in err's chain.
func StageOf(err error) (Phase, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Stage, true
	}
	return 0, false
}

// NeedsMetadataError signals a document without a metadata block. It is
// not a failure: the operator has to supply answers and run again.
type NeedsMetadataError struct {
	Path  string
	Title string
	Body  string
}

func (e *NeedsMetadataError) Error() string {
	return fmt.Sprintf("%s has no YAML front matter; supply metadata answers (--metadata)", e.Path)
}

// AmbiguousRolesError signals that the hero image has to be chosen explicitly.
type AmbiguousRolesError struct {
	Images []string
}

func (e *AmbiguousRolesError) Error() string {
	return fmt.Sprintf("cannot tell hero from inline image among %s; choose one with --hero", strings.Join(e.Images, ", "))
}

// NeedsInput reports whether err asks for an operator decision.
func NeedsInput(err error) bool {
	var nm *NeedsMetadataError
	var ar *AmbiguousRolesError
	return errors.As(err, &nm) || errors.As(err, &ar)
}
