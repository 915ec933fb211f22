package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bluebird-io/portal/internal/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	// Overrides the root hooks; printing the version needs no session.
	PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
	PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		build, ok := common.GetModuleBuildInfo()
		if !ok {
			fmt.Println("Failed to get version information")
			return
		}

		fmt.Printf("Bluebird Portal %s", build.Version)
		if commit := build.ShortCommit(); len(commit) > 0 {
			fmt.Printf(" (git: %s)", commit)
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
