package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X github.com/jj-ryu/ryu/cmd.version=..."
var version = "0.1.0-dev"

// repoPath holds the --repo/-R persistent flag; empty means the current
// working directory.
var repoPath string

var rootCmd = &cobra.Command{
	Use:     "ryu",
	Short:   "Stacked PR lifecycle automation for jj and GitHub",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&repoPath, "repo", "R", "", "Path to the jj repository (default: current directory)")
}

// repoRoot resolves the repository root to operate on: the --repo flag if
// set, otherwise the current working directory.
func repoRoot() (string, error) {
	if repoPath != "" {
		return repoPath, nil
	}
	return os.Getwd()
}

func Execute() error {
	return rootCmd.Execute()
}
