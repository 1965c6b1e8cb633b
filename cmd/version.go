/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/resload/internal/ops"
	"github.com/fulmenhq/resload/pkg/buildinfo"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show resload version information",
	RunE:  runVersion,
}

func init() {
	mustRegister("version", ops.GroupSupport, ops.CategoryInformation, versionCmd)
	versionCmd.Flags().Bool("extended", false, "Show detailed build and git information")
}

func runVersion(cmd *cobra.Command, _ []string) error {
	extended, _ := cmd.Flags().GetBool("extended")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	version := buildinfo.Version()
	vcs := buildinfo.ReadVCS()

	if jsonOutput {
		versionInfo := map[string]interface{}{
			"version":   version,
			"goVersion": runtime.Version(),
			"platform":  runtime.GOOS,
			"arch":      runtime.GOARCH,
		}
		if extended {
			versionInfo["module"] = buildinfo.ModuleVersion()
			versionInfo["gitCommit"] = shortCommit(vcs.Revision)
			versionInfo["buildTime"] = orUnknown(vcs.Time)
			versionInfo["gitDirty"] = vcs.Modified
		}
		jsonData, err := json.MarshalIndent(versionInfo, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %v", err)
		}
		fmt.Fprintln(out, string(jsonData))
		return nil
	}

	fmt.Fprintf(out, "resload %s\n", version)
	if extended {
		fmt.Fprintf(out, "Module: %s\n", orUnknown(buildinfo.ModuleVersion()))
		fmt.Fprintf(out, "Git Commit: %s\n", shortCommit(vcs.Revision))
		fmt.Fprintf(out, "Build Time: %s\n", orUnknown(vcs.Time))
		fmt.Fprintf(out, "Git Dirty: %t\n", vcs.Modified)
		fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
		fmt.Fprintf(out, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	}
	return nil
}

func shortCommit(rev string) string {
	if len(rev) > 8 {
		return rev[:8]
	}
	return orUnknown(rev)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
