// Package exitcode provides standardized exit codes for resload
package exitcode

// Exit codes for the resload CLI. Each ingest error class gets its own code
// so wrapper scripts can tell a bad bundle from a broken generator.
const (
	Success         = 0
	GeneralError    = 1
	ConfigError     = 2
	ValidationError = 3
	FileSystemError = 4
	CollisionError  = 5
	GateError       = 6
	TimeoutError    = 7
	GeneratorError  = 8
	VCSError        = 9
	NeedsInput      = 10
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case ConfigError:
		return "Configuration error"
	case ValidationError:
		return "Validation error"
	case FileSystemError:
		return "File system error"
	case CollisionError:
		return "Slug collision"
	case GateError:
		return "Gate check failed"
	case TimeoutError:
		return "Timeout error"
	case GeneratorError:
		return "Generator failed"
	case VCSError:
		return "Version control error"
	case NeedsInput:
		return "Operator input required"
	default:
		return "Unknown error"
	}
}
