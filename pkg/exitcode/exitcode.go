// Package exitcode provides standardized exit codes for docsync
package exitcode

// Exit codes for the docsync CLI
const (
	Success            = 0
	GeneralError       = 1
	ConfigError        = 2
	ManifestError      = 3
	FileSystemError    = 4
	VerificationError  = 5
	UnresolvedDecision = 6
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
	case ManifestError:
		return "Manifest error"
	case FileSystemError:
		return "File system error"
	case VerificationError:
		return "Verification mismatch"
	case UnresolvedDecision:
		return "Unresolved decision"
	default:
		return "Unknown error"
	}
}
