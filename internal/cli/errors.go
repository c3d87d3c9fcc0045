package cli

import (
	"errors"

	"github.com/eislager/eislager-pro/sdk"
)

// Sentinel errors for exit code classification
var (
	// ErrUsage indicates invalid command usage, flags, or arguments
	ErrUsage = errors.New("usage error")

	// ErrConfig indicates invalid configuration or an unusable token store
	ErrConfig = errors.New("configuration error")
)

// ExitCode maps an error returned by the command tree to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrUsage):
		return 2
	case errors.Is(err, ErrConfig):
		return 3
	case sdk.IsUnauthorized(err), errors.Is(err, sdk.ErrForbidden):
		return 4
	case errors.Is(err, sdk.ErrNotFound):
		return 5
	default:
		return 1
	}
}
