package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the unsolved-query monitor in the foreground",
	Long: `Monitor polls the configured feeds on the monitor schedule, matches new
items against pending queries, alerts subscribers when a query looks
resolved, and logs queries past their deadline. Stop with Ctrl-C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		if len(cfg.Feeds.URLs) == 0 {
			zap.L().Warn("monitor: no feeds configured, only overdue sweeps will run")
		}
		return a.monitor.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}
