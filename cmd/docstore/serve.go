package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/docstore-mcp/internal/indexer"
	"github.com/dshills/docstore-mcp/internal/mcp"
	"github.com/dshills/docstore-mcp/internal/metrics"
)

func serveCmd() *cobra.Command {
	var (
		transport string
		port      int
		watch     bool
		noSync    bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long: `Runs the MCP server on stdio (default) or SSE. With the vector store
enabled the data source folder is synced at startup and, with --watch,
re-synced whenever PDFs are added or changed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("transport") {
				cfg.Server.Transport = transport
			}
			if flags.Changed("port") {
				cfg.Server.Port = port
			}
			if flags.Changed("watch") {
				cfg.Sync.Watch = watch
			}
			if noSync {
				cfg.Sync.OnStartup = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&transport, "transport", "t", "stdio", "transport: stdio or sse")
	cmd.Flags().IntVarP(&port, "port", "p", 8000, "port for the sse transport")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-sync the data source when files change")
	cmd.Flags().BoolVar(&noSync, "no-sync", false, "skip the startup sync")
	return cmd
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newServeApp(cfg)
	defer a.Close()

	zlog := log.Zerolog()
	srv := mcp.NewServer(cfg.Server.Name, a.mcpDeps())
	log.LogServerStart(cfg.Server.Transport, cfg.Server.Port, srv.DocumentsEnabled())

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		ms := metrics.NewServer(cfg.Metrics.Addr, a.metrics, zlog)
		g.Go(func() error { return ms.Run(gctx) })
	}

	if a.syncer != nil {
		if err := os.MkdirAll(cfg.Sync.DataSource, 0o755); err != nil {
			zlog.Error().Err(err).Str("data_source", cfg.Sync.DataSource).Msg("cannot create data source")
		}
		if cfg.Sync.OnStartup {
			g.Go(func() error {
				a.syncer.InitializeAndSync(gctx, "")
				return nil
			})
		}
		if cfg.Sync.Watch {
			w, err := indexer.NewWatcher(a.syncer, cfg.Sync.Debounce())
			if err != nil {
				zlog.Error().Err(err).Msg("file watcher unavailable, continuing without it")
			} else {
				g.Go(func() error { return w.Run(gctx) })
			}
		}
	}

	g.Go(func() error {
		// a closed stdin ends the stdio transport; stop the other goroutines with it
		defer stop()
		return srv.Serve(gctx, cfg.Server.Transport, cfg.Server.Port)
	})

	err := g.Wait()
	log.LogServerShutdown()
	return err
}
