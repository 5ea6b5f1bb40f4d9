package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/recera/dualgraph/internal/dataset"
	"github.com/recera/dualgraph/internal/logging"
	"github.com/recera/dualgraph/internal/tui"
	"github.com/recera/dualgraph/pkg/scheduler"
	"github.com/recera/dualgraph/pkg/shell"
)

func newTUICommand(g *globalFlags) *cobra.Command {
	var logFile string
	var refresh time.Duration
	var noColor bool

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Watch both views in the terminal",
		Long: `Draws both layouts side by side with braille characters. Logs go to
--log-file since the terminal is taken.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.load(cmd, g.overrides(cmd))
			if err != nil {
				return err
			}
			a.log = logging.NewNopLogger()
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
				if err != nil {
					return fmt.Errorf("failed to open log file: %w", err)
				}
				defer f.Close()
				a.log = newLogger(f, a.cfg.Log)
			}
			scheduler.SetDebugLog(logging.DebugFunc(a.log))
			return runTUI(cmd.Context(), a, tui.Options{Refresh: refresh, Color: !noColor})
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "Append logs to this file")
	cmd.Flags().DurationVar(&refresh, "refresh", 50*time.Millisecond, "Redraw interval")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Draw the graph without colours")

	return cmd
}

func runTUI(ctx context.Context, a *app, opts tui.Options) error {
	ds := dataset.LoadOrEmpty(ctx, a.cfg.Dataset, a.log)
	s := a.newShell(ds, nil, shell.Hooks{})
	defer s.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.Start(ctx)

	p := tea.NewProgram(
		tui.NewModel(s, opts),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
