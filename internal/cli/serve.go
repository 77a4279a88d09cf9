package cli

import (
	"os/signal"
	"syscall"

	"github.com/ppiankov/claimwatch/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	serveAddr    string
	serveMonitor bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve exposes checks and the unsolved-query lifecycle over HTTP.
With --monitor the background monitor runs in the same process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.New(a.pipeline, a.monitor).ListenAndServe(gctx, addr)
		})
		if serveMonitor {
			g.Go(func() error {
				return a.monitor.Run(gctx)
			})
		}
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().BoolVar(&serveMonitor, "monitor", true, "run the monitor loop alongside the API")
}
