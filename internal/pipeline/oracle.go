package pipeline

import (
	"strings"
	"time"

	"github.com/ppiankov/claimwatch/internal/cache"
	"github.com/ppiankov/claimwatch/internal/llm"
	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/ppiankov/claimwatch/internal/verify"
	"github.com/rotisserie/eris"
)

// NewOracle builds the verification oracle named by verify.oracle, wrapped
// in the configured result cache
func NewOracle(cfg *model.Config) (verify.Oracle, error) {
	var (
		oracle    verify.Oracle
		namespace string
	)

	switch strings.ToLower(cfg.Verify.Oracle) {
	case "", "heuristic":
		oracle = verify.NewHeuristicOracle(cfg.Scoring)
		namespace = "heuristic"

	case "llm":
		provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: llm oracle")
		}
		if provider == nil {
			return nil, eris.New("pipeline: llm oracle requires llm.provider")
		}
		judge := llm.NewJudge(provider)
		oracle = judge
		namespace = judge.Name()

	default:
		return nil, eris.Errorf("pipeline: unknown oracle %q (supported: heuristic, llm)", cfg.Verify.Oracle)
	}

	c := cache.New(cfg.Cache.Enabled, cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	ttl := cfg.Cache.MemoryTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return verify.NewCachingOracle(oracle, c, namespace, ttl), nil
}
