package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/recera/dualgraph/internal/config"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}

	var rootCmd = &cobra.Command{
		Use:   "dualgraph",
		Short: "dualgraph - side by side 2D and 3D graph views",
		Long: `dualgraph lays out one directed, weighted graph twice: a flat 2D
force layout on the left and a 3D force layout on the right. Render both
views to files, serve them live to a browser, or watch them in a terminal.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", config.DefaultFile, "Config file (.yaml or .toml)")
	pf.StringVarP(&g.dataset, "dataset", "d", "", "Dataset JSON file (overrides the config)")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&g.logFormat, "log-format", "", "Log format: json or text")
	pf.BoolVar(&g.bidirectional, "bidirectional", false, "Show each link in both directions")
	pf.BoolVar(&g.altShapes, "alt-shapes", false, "Use the alternative node shapes")
	pf.BoolVar(&g.rotating, "rotate", false, "Orbit the 3D camera")

	rootCmd.AddCommand(newRenderCommand(g))
	rootCmd.AddCommand(newServeCommand(g))
	rootCmd.AddCommand(newTUICommand(g))
	rootCmd.AddCommand(newStatsCommand(g))
	rootCmd.AddCommand(newConfigCommand(g))

	return rootCmd
}
