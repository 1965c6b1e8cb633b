/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/resload/internal/ops"
	"github.com/fulmenhq/resload/pkg/buildinfo"
	"github.com/fulmenhq/resload/pkg/config"
	"github.com/fulmenhq/resload/pkg/exitcode"
	"github.com/fulmenhq/resload/pkg/logger"
)

// newRootCommand creates a fresh root command instance.
// This factory pattern allows tests to create isolated command trees without shared state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resload",
		Short: "Resource bundle ingest pipeline",
		Long: `Resload ingests a content bundle (one markdown document and two images)
into a publishing repository: it validates the bundle, stages it at the
destination paths, runs the site generators, gates on their output and
optionally commits the result.

Examples:
   resload validate article.md hero.png chart.png   # Check a bundle without writing
   resload ingest article.md hero.png chart.png     # Stage, generate and gate
   resload rollback tools/resource_loader/tmp/...   # Undo a failed staging session
   resload slug "My Resource Guide"                 # Print the slug for a title`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().String("repo", "", "Publishing repository root (default: discovered from the working directory)")

	cmd.Version = buildinfo.Version()
	cmd.SetVersionTemplate("resload {{.Version}}\n")

	// Grouped help by command group (Ingest → Workflow → Support)
	cmd.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		if cmd.HasParent() {
			cmd.Println(cmd.Long)
			cmd.Println()
			cmd.Print(cmd.UsageString())
			return
		}
		reg := ops.GetRegistry()
		cmd.Println(cmd.Long)
		cmd.Println()
		sections := []struct {
			title string
			group ops.CommandGroup
		}{
			{"Ingest Commands:", ops.GroupIngest},
			{"Workflow Commands:", ops.GroupWorkflow},
			{"Support Commands:", ops.GroupSupport},
		}
		for _, s := range sections {
			cmd.Println(s.title)
			for _, c := range reg.GetCommandsByGroup(s.group) {
				cmd.Printf("  %-12s %s\n", c.Name, c.Description)
			}
			cmd.Println()
		}
		cmd.Println("Flags:")
		cmd.Print(cmd.UsageString())
	})

	return cmd
}

// registerSubcommands adds all subcommands to the root command.
// This is called from init() for production and can be called explicitly in tests.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(ingestCmd)
	cmd.AddCommand(validateCmd)
	cmd.AddCommand(rollbackCmd)
	cmd.AddCommand(cleanupCmd)
	cmd.AddCommand(commitCmd)
	cmd.AddCommand(slugCmd)
	cmd.AddCommand(versionCmd)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	code := exitCodeFor(err)
	if code != exitcode.Success {
		if logger.Default() == nil {
			// flag parsing failed before the logger came up
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		} else {
			logger.Error("Command execution failed", logger.Err(err), logger.String("exit", exitcode.String(code)))
		}
		os.Exit(code)
	}
}

func init() {
	registerSubcommands(rootCmd)
}

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	config := logger.Config{
		Level:     logger.ParseLevel(logLevelStr),
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "resload",
	}

	if err := logger.Initialize(config); err != nil {
		if _, writeErr := os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n"); writeErr != nil {
			_ = writeErr
		}
		os.Exit(exitcode.ConfigError)
	}
}

// pipelineSink is the process logger, or Discard before it is initialized.
func pipelineSink() logger.Sink {
	if l := logger.Default(); l != nil {
		return l
	}
	return logger.Discard
}

// resolveRepo returns the repository root and its configuration, honouring
// --repo before discovery from the working directory.
func resolveRepo(cmd *cobra.Command) (string, *config.Config, error) {
	root, _ := cmd.Flags().GetString("repo")
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", nil, &configError{err: err}
		}
		found, err := config.FindRepoRoot(wd)
		if err != nil {
			return "", nil, &configError{err: err}
		}
		root = found
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", nil, &configError{err: err}
	}
	cfg, err := config.LoadConfig(abs)
	if err != nil {
		return "", nil, &configError{err: err}
	}
	return abs, cfg, nil
}

func mustRegister(name string, group ops.CommandGroup, category ops.CommandCategory, cmd *cobra.Command) {
	if err := ops.RegisterCommandWithTaxonomy(name, group, category, cmd, cmd.Short); err != nil {
		panic(fmt.Sprintf("Failed to register %s command: %v", name, err))
	}
}
