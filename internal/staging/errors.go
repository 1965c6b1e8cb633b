package staging

import (
	"errors"
	"fmt"
)

// Step identifies one step of Stage.
type Step int

const (
	StepWorkDir Step = iota + 1
	StepDestDirs
	StepCopyImages
	StepInjectPaths
	StepRender
	StepWriteDocument
	StepSnapshot
	StepPublish
	StepRecord
)

func (s Step) String() string {
	switch s {
	case StepWorkDir:
		return "create working directory"
	case StepDestDirs:
		return "ensure destination directories"
	case StepCopyImages:
		return "copy images to working directory"
	case StepInjectPaths:
		return "inject image paths"
	case StepRender:
		return "render document"
	case StepWriteDocument:
		return "write document to working directory"
	case StepSnapshot:
		return "snapshot existing destination files"
	case StepPublish:
		return "copy files to destinations"
	case StepRecord:
		return "record staged files"
	default:
		return fmt.Sprintf("step %d", int(s))
	}
}

// StageError is returned by Stage. Everything written before the failing
// step is left in place; Session is non-nil once the working directory exists.
type StageError struct {
	Step    Step
	Session *Session
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("Failed to stage files (%s): %v", e.Step, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// IsStageError reports whether err wraps a *StageError.
func IsStageError(err error) bool {
	var se *StageError
	return errors.As(err, &se)
}

// ErrExists is wrapped when a destination exists and overwrite was not allowed.
var ErrExists = errors.New("destination exists and overwrite is not allowed")
