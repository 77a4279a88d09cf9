package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/claimwatch/internal/alert"
	"github.com/ppiankov/claimwatch/internal/feeds"
	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/ppiankov/claimwatch/internal/pipeline"
	"github.com/ppiankov/claimwatch/internal/query"
	"github.com/ppiankov/claimwatch/internal/store"
	"github.com/rotisserie/eris"
)

// app holds the wired components shared by the commands
type app struct {
	store    store.Store
	monitor  *query.Monitor
	pipeline *pipeline.Pipeline
}

func newApp(ctx context.Context, cfg *model.Config) (*app, error) {
	storeCfg, err := resolveStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	st, err := store.New(ctx, storeCfg)
	if err != nil {
		return nil, err
	}

	dispatcher := alert.NewDispatcher(st, alert.NewFromConfig(cfg.Alert), cfg.Alert.SendTimeout)
	monitor := query.NewMonitor(st, dispatcher, cfg.Monitor)
	for _, src := range feeds.NewFromConfig(cfg.Feeds, cfg.HTTP) {
		monitor.AddSource(src)
	}

	oracle, err := pipeline.NewOracle(cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &app{
		store:    st,
		monitor:  monitor,
		pipeline: pipeline.NewPipeline(cfg, oracle, monitor),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// resolveStore places the default SQLite database under ~/.claimwatch
func resolveStore(sc model.StoreConfig) (model.StoreConfig, error) {
	if strings.ToLower(sc.Driver) != "sqlite" || sc.DSN != "" {
		return sc, nil
	}
	dir, err := configDir()
	if err != nil {
		return sc, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return sc, eris.Wrap(err, "store: create data directory")
	}
	sc.DSN = filepath.Join(dir, "claimwatch.db")
	return sc, nil
}
