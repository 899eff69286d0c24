package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m3rciful/bookbot/core/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Printf("bookbot %s\n", buildinfo.Version)
		fmt.Printf("  Go:     %s\n", buildinfo.GoVersion())
		fmt.Printf("  Commit: %s\n", buildinfo.Commit)
		fmt.Printf("  Date:   %s\n", buildinfo.Date)
	},
}
