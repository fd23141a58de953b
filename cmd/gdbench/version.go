package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

const toolVersion = "0.3.0"

// Stamped at link time via -ldflags "-X main.GitSHA1=... -X main.GitDirty=...".
// GitDirty carries the count of uncommitted changed lines in the build tree.
var GitSHA1 string = ""
var GitDirty string = "0"

func gitDirty() bool {
	dirtyLines, err := strconv.Atoi(strings.TrimSpace(GitDirty))
	return err == nil && dirtyLines != 0
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tool version and build revision",
	Run: func(cmd *cobra.Command, args []string) {
		gitDirtyStr := ""
		if gitDirty() {
			gitDirtyStr = "-dirty"
		}
		fmt.Printf("gdbench %s (git_sha1:%s%s)\n", toolVersion, GitSHA1, gitDirtyStr)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
