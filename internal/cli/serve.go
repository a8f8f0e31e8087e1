package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/macroviewer/pkg/io"
	"github.com/matzehuels/macroviewer/pkg/observability/prom"
	"github.com/matzehuels/macroviewer/pkg/server"
	"github.com/matzehuels/macroviewer/pkg/session"
	"github.com/matzehuels/macroviewer/pkg/watch"
)

// serveCommand creates the serve command: the HTTP API and websocket
// sessions over one dataset.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		watchData bool
		noCache   bool
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve [dataset]",
		Short: "Serve live viewer sessions over HTTP and websockets",
		Long: `Serve live viewer sessions.

Each browser gets a session that owns its own filter state and force
layout. Actions arrive over POST /api/actions or the /ws websocket; frames
and layout ticks are pushed back over the socket. Sessions are persisted in
the configured cache and resume after a restart.

With --watch a local dataset is reloaded when the file changes, and a
remote one is polled every data.poll_interval. Running sessions keep their
filters and positions across a reload.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := c.source(args)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				c.Config.Server.Addr = addr
			}
			if cmd.Flags().Changed("watch") {
				c.Config.Data.Watch = watchData
			}
			if noMetrics {
				c.Config.Server.Metrics = false
			}
			return c.runServe(cmd.Context(), src, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVarP(&watchData, "watch", "w", false, "reload the dataset when it changes")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "keep sessions and snapshots in memory only")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "disable the /metrics endpoint")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, src string, noCache bool) error {
	store, err := c.openCache(ctx, noCache)
	if err != nil {
		return err
	}
	defer store.Close()
	client := c.newClient(store)

	st := newStage(c.Logger, "load")
	loaded, err := io.Load(ctx, src, client)
	if err != nil {
		return err
	}
	st.done("loaded dataset", "source", src, "nodes", len(loaded.Dataset.Nodes), "links", len(loaded.Dataset.Links))
	if !loaded.Report.Clean() {
		c.Logger.Warn("dataset repaired during normalization", "report", fmt.Sprintf("%+v", loaded.Report))
	}

	opts := []server.Option{
		server.WithLogger(c.Logger),
		server.WithStore(session.NewCacheStore(store, nil)),
	}
	if c.Config.Server.Metrics {
		metrics := prom.New(nil)
		metrics.Register()
		opts = append(opts, server.WithMetrics(metrics))
	}
	srv, err := server.New(c.Config.ServerConfig(), loaded.Dataset, opts...)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(ctx) })
	if c.Config.Data.Watch {
		wopts := []watch.Option{
			watch.WithLogger(c.Logger),
			watch.WithClient(client),
			watch.WithHash(loaded.Hash),
		}
		if d := c.Config.Data.PollInterval.D(); d > 0 {
			wopts = append(wopts, watch.WithInterval(d))
		}
		w := watch.New(src, func(ctx context.Context, l *io.Loaded) error {
			return srv.Reload(ctx, l.Dataset)
		}, wopts...)
		g.Go(func() error { return w.Run(ctx) })
	}

	printSuccess("Serving %s", src)
	printKeyValue("Address", c.Config.Server.Addr)
	if c.Config.Data.Watch {
		printKeyValue("Watching", src)
	}
	return g.Wait()
}
