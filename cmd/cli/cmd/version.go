package cmd

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var (
	// Version information, set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the build version, git commit and the Go toolchain the binary was built with.`,
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout(), BinName())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func printVersion(w io.Writer, binName string) {
	fmt.Fprintf(w, "%s version %s\n", binName, Version)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Path != "" {
		fmt.Fprintf(w, "  Module:     %s\n", info.Main.Path)
	}
	fmt.Fprintf(w, "  Go Version: %s\n", runtime.Version())
	fmt.Fprintf(w, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
