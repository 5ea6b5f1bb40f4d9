package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/recera/dualgraph/internal/config"
	"github.com/recera/dualgraph/internal/dataset"
	"github.com/recera/dualgraph/internal/logging"
	"github.com/recera/dualgraph/internal/metrics"
	"github.com/recera/dualgraph/pkg/graph"
	"github.com/recera/dualgraph/pkg/live"
	"github.com/recera/dualgraph/pkg/shell"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(g *globalFlags) *cobra.Command {
	var addr string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve both views live to a browser",
		Long: `Runs both layouts continuously and pushes painted frames to every
connected browser over a websocket. Clicks, zoom, the divider and the
display toggles are sent back to the shared views. Prometheus metrics are
served on /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			o := g.overrides(cmd)
			if cmd.Flags().Changed("addr") {
				o.Addr = &addr
			}
			a, err := g.load(cmd, o)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("watch") {
				a.cfg.Serve.Watch = watch
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a, metrics.NewRegistry())
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (host:port)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the dataset when the file changes")

	return cmd
}

func encodingFor(cfg *config.Config) string {
	if cfg.Serve.Compression == "snappy" {
		return live.EncodingSnappy
	}
	return live.EncodingJSON
}

func runServe(ctx context.Context, a *app, reg *metrics.Registry) error {
	log := a.log
	ds := dataset.LoadOrEmpty(ctx, a.cfg.Dataset, log)
	reg.SetDatasetSize(len(ds.Nodes), len(ds.Links))

	s := a.newShell(ds, reg, shell.Hooks{})
	defer s.Close()

	srv := live.NewServer(s, live.Options{
		Interval: a.cfg.FrameInterval(),
		Encoding: encodingFor(a.cfg),
		Logger:   log,
		Metrics:  reg,
	})
	httpSrv := &http.Server{
		Addr:              a.cfg.Serve.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var w *dataset.Watcher
	if a.cfg.Serve.Watch && a.cfg.Dataset != "" {
		var err error
		if w, err = dataset.NewWatcher(a.cfg.Dataset, log, reloadInto(s, reg, log)); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	s.Start(ctx)

	if w != nil {
		g.Go(func() error {
			return w.Run(ctx)
		})
	}

	g.Go(func() error {
		return srv.Run(ctx)
	})

	g.Go(func() error {
		log.Info("serving", logging.String("url", "http://"+a.cfg.Serve.Addr))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// reloadInto swaps a freshly loaded dataset into s. A failed load keeps
// the current graph on screen.
func reloadInto(s *shell.Shell, reg *metrics.Registry, log logging.Logger) dataset.ReloadFunc {
	return func(ds graph.Dataset, err error) {
		if err != nil {
			reg.RecordReload(false, 0, 0)
			log.Warn("keeping current graph", logging.Err(err))
			return
		}
		s.Reload(ds)
		reg.RecordReload(true, len(ds.Nodes), len(ds.Links))
	}
}
