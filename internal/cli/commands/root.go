package commands

import (
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "forge",
		Short: "CRUD scaffolding and relationship inference for Go applications",
		Long: color.CyanString(`Forge - CRUD scaffolding with relationship inference

Forge generates models, controllers, requests, repositories, and routes
from your database schema or migration files, and keeps relationship
accessors in sync as the schema evolves.

Features:
  • Model, controller, request, and repository generation
  • Relationship inference from live schema or migrations
  • Idempotent merging into existing model files
  • Polymorphic relationship suggestions
  • MySQL, PostgreSQL, and SQLite support`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add subcommands
	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewGenerateCommand())
	rootCmd.AddCommand(NewRelationsCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the Forge version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)

			titleColor.Print("Forge version: ")
			valueColor.Println(Version)

			titleColor.Print("Git commit: ")
			valueColor.Println(GitCommit)

			titleColor.Print("Build date: ")
			valueColor.Println(BuildDate)

			titleColor.Print("Go version: ")
			valueColor.Println(goVer)
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
