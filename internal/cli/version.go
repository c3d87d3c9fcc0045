package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/eislager/eislager-pro/sdk"
)

// Build information, injected at link time with -ldflags "-X ...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// VersionInfo contains version and build information
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	UserAgent string `json:"user_agent"`
	GoVersion string `json:"go_version"`
	GOOS      string `json:"os"`
	GOARCH    string `json:"arch"`
}

// GetVersionInfo returns the build information of this binary.
func GetVersionInfo() *VersionInfo {
	return &VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		UserAgent: sdk.DefaultUserAgent,
		GoVersion: runtime.Version(),
		GOOS:      runtime.GOOS,
		GOARCH:    runtime.GOARCH,
	}
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := GetVersionInfo()
			w := cmd.OutOrStdout()

			if a.output == outputJSON {
				return writeJSON(w, info)
			}
			fmt.Fprintf(w, "Version: %s\n", info.Version)
			fmt.Fprintf(w, "Commit: %s\n", info.Commit)
			fmt.Fprintf(w, "Build Date: %s\n", info.BuildDate)
			fmt.Fprintf(w, "SDK: %s\n", info.UserAgent)
			fmt.Fprintf(w, "Go Version: %s\n", info.GoVersion)
			fmt.Fprintf(w, "OS/Arch: %s/%s\n", info.GOOS, info.GOARCH)
			return nil
		},
	}
}
