package verify

import (
	"context"
	"time"

	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/ppiankov/claimwatch/internal/worker"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ClaimResults holds the answers gathered for one claim
type ClaimResults struct {
	ClaimID string
	Methods []model.Method
	Results []model.VerificationResult
	Failed  []model.Method
}

// Verifier fans claims out to an oracle across the selected methods
type Verifier struct {
	oracle        Oracle
	limiter       *worker.Limiter
	callTimeout   time.Duration
	concurrency   int
	socialTrigger float64
	logger        *zap.Logger
}

// NewVerifier creates a verifier from the verify config section
func NewVerifier(oracle Oracle, cfg model.VerifyConfig) *Verifier {
	def := model.DefaultConfig().Verify
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.SocialMediaTrigger == 0 {
		cfg.SocialMediaTrigger = def.SocialMediaTrigger
	}

	return &Verifier{
		oracle:        oracle,
		limiter:       worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		callTimeout:   cfg.CallTimeout,
		concurrency:   cfg.Concurrency,
		socialTrigger: cfg.SocialMediaTrigger,
		logger:        zap.L().With(zap.String("component", "verifier")),
	}
}

type call struct {
	claim  int
	method model.Method
	result *model.VerificationResult
}

// VerifyAll verifies every claim in parallel. The output has one entry per
// claim in input order, and each entry's results follow method order.
// Methods without a valid answer in time are left out and listed in Failed.
func (v *Verifier) VerifyAll(ctx context.Context, claims []model.Claim) []ClaimResults {
	out := make([]ClaimResults, len(claims))
	var calls []*call
	for i, c := range claims {
		methods := SelectMethods(c, v.socialTrigger)
		out[i] = ClaimResults{ClaimID: c.ID, Methods: methods, Results: []model.VerificationResult{}}
		for _, m := range methods {
			calls = append(calls, &call{claim: i, method: m})
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(v.concurrency)
	for _, c := range calls {
		g.Go(func() error {
			result, err := v.call(ctx, claims[c.claim].Text, c.method)
			if err != nil {
				v.logger.Warn("verify: method skipped",
					zap.String("claim_id", claims[c.claim].ID),
					zap.String("method", string(c.method)),
					zap.Error(err))
				return nil
			}
			c.result = result
			return nil
		})
	}
	_ = g.Wait()

	for _, c := range calls {
		if c.result != nil {
			out[c.claim].Results = append(out[c.claim].Results, *c.result)
		} else {
			out[c.claim].Failed = append(out[c.claim].Failed, c.method)
		}
	}
	return out
}

// Verify verifies a single claim
func (v *Verifier) Verify(ctx context.Context, claim model.Claim) ClaimResults {
	return v.VerifyAll(ctx, []model.Claim{claim})[0]
}

// call runs one oracle request with its own deadline. A request that does not
// return in time is abandoned; its goroutine exits when the oracle does.
func (v *Verifier) call(ctx context.Context, claimText string, method model.Method) (*model.VerificationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, v.callTimeout)
	defer cancel()

	if err := v.limiter.Wait(ctx, string(method)); err != nil {
		return nil, eris.Wrapf(model.ErrVerificationMethod, "%s: rate limit: %v", method, err)
	}

	type answer struct {
		result *model.VerificationResult
		err    error
	}
	done := make(chan answer, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- answer{err: eris.Errorf("oracle panic: %v", r)}
			}
		}()
		r, err := v.oracle.Verify(ctx, claimText, method)
		done <- answer{r, err}
	}()

	var a answer
	select {
	case a = <-done:
	case <-ctx.Done():
		return nil, eris.Wrapf(model.ErrVerificationMethod, "%s: %v", method, ctx.Err())
	}

	switch {
	case a.err != nil:
		return nil, eris.Wrapf(model.ErrVerificationMethod, "%s: %v", method, a.err)
	case a.result == nil:
		return nil, eris.Wrapf(model.ErrVerificationMethod, "%s: empty result", method)
	}

	result := *a.result
	if result.Method == "" {
		result.Method = method
	}
	if result.Method != method {
		return nil, eris.Wrapf(model.ErrVerificationMethod, "%s: answer for %s", method, result.Method)
	}
	if err := result.Validate(); err != nil {
		return nil, eris.Wrapf(model.ErrVerificationMethod, "%s: %v", method, err)
	}
	return &result, nil
}
