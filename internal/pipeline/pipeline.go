package pipeline

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"
	"time"

	"github.com/ppiankov/claimwatch/internal/extract"
	"github.com/ppiankov/claimwatch/internal/fetch"
	"github.com/ppiankov/claimwatch/internal/llm"
	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/ppiankov/claimwatch/internal/query"
	"github.com/ppiankov/claimwatch/internal/score"
	"github.com/ppiankov/claimwatch/internal/verify"
	"github.com/ppiankov/claimwatch/internal/worker"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Request is one content item to check
type Request struct {
	Content        string            `json:"content"`
	ContentType    model.ContentType `json:"content_type,omitempty"`
	Urgency        float64           `json:"urgency,omitempty"`
	UserID         string            `json:"user_id,omitempty"`
	FlagUnresolved bool              `json:"flag_unresolved,omitempty"`
	Claims         []string          `json:"claims,omitempty"` // Pre-extracted claims
}

// Pipeline orchestrates the complete check process
type Pipeline struct {
	fetcher   *fetch.Fetcher
	extractor *extract.ClaimExtractor
	scorer    *score.Scorer
	verifier  *verify.Verifier
	explainer *llm.Explainer // nil when disabled
	monitor   *query.Monitor // nil disables the unsolved-query handoff
	config    *model.Config
	now       func() time.Time
	logger    *zap.Logger
}

// NewPipeline creates a pipeline. A nil monitor skips the unsolved-query handoff.
func NewPipeline(cfg *model.Config, oracle verify.Oracle, monitor *query.Monitor) *Pipeline {
	logger := zap.L().With(zap.String("component", "pipeline"))

	var explainer *llm.Explainer
	if cfg.LLM.Explain && cfg.LLM.Provider != "" {
		e, err := llm.NewExplainer(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			logger.Warn("pipeline: explainer disabled", zap.Error(err))
		} else {
			explainer = e
		}
	}

	return &Pipeline{
		fetcher:   fetch.NewFromConfig(cfg.HTTP, worker.NewLimiter(2, 2)),
		extractor: extract.NewClaimExtractor(cfg.Extraction),
		scorer:    score.NewScorer(cfg.Scoring),
		verifier:  verify.NewVerifier(oracle, cfg.Verify),
		explainer: explainer,
		monitor:   monitor,
		config:    cfg,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

// SetFetcher replaces the URL fetcher
func (p *Pipeline) SetFetcher(f *fetch.Fetcher) {
	p.fetcher = f
}

// Check runs extraction, ranking, verification, synthesis and aggregation.
// It always returns a report; failures are reported through Status.
func (p *Pipeline) Check(ctx context.Context, req Request) (report *model.Report) {
	if req.ContentType == "" {
		req.ContentType = model.ContentText
	}

	report = &model.Report{
		ContentType: req.ContentType,
		CheckedAt:   p.now(),
		Claims:      []model.Claim{},
		Assessment:  p.scorer.Aggregate(nil),
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline: panic during check", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			p.fail(report, eris.Errorf("pipeline: panic: %v", r))
		}
	}()

	text, err := p.content(ctx, req, report)
	if err != nil {
		p.fail(report, err)
		return report
	}

	extractType := req.ContentType
	if extractType != model.ContentHTML {
		extractType = model.ContentText
	}
	claims, err := p.extractor.Extract(extract.Input{
		Content:     text,
		ContentType: extractType,
		UrgencyHint: req.Urgency,
		Claims:      req.Claims,
	})
	if errors.Is(err, model.ErrEmptyContent) {
		report.Status = model.StatusEmptyContent
		report.ErrorKind = model.KindEmptyContent
		report.Summary = model.Summarize(nil)
		return report
	}
	if err != nil {
		p.fail(report, err)
		return report
	}

	ranked := p.scorer.Rank(claims, req.Urgency)
	report.Claims = ranked
	if len(ranked) == 0 {
		report.Status = model.StatusNoCheckableClaims
		report.ErrorKind = model.KindNoCheckableClaims
		report.Summary = model.Summarize(nil)
		p.handoff(ctx, req, text, report, score.Inconclusive(report.Assessment, p.config.Monitor.InconclusiveConfidence))
		return report
	}

	results := p.verifier.VerifyAll(ctx, ranked)
	assessments := make([]model.ClaimAssessment, len(ranked))
	for i, claim := range ranked {
		a := p.scorer.Synthesize(claim.ID, results[i].Results)
		a.Priority = claim.Priority
		assessments[i] = a
	}

	report.Assessment = p.scorer.Aggregate(assessments)
	report.Summary = model.Summarize(assessments)
	report.Status = model.StatusCompleted

	p.logger.Info("pipeline: check complete",
		zap.Int("claims", len(ranked)),
		zap.String("verdict", string(report.Assessment.Verdict)),
		zap.Float64("score", report.Assessment.Score),
		zap.Float64("confidence", report.Assessment.Confidence))

	// Explanation runs after scoring and never changes it
	if p.explainer.IsEnabled() {
		exp, err := p.explainer.Explain(ctx, *report)
		if err == nil {
			report.Explanation = exp
		}
	}

	p.handoff(ctx, req, text, report, score.Inconclusive(report.Assessment, p.config.Monitor.InconclusiveConfidence))
	return report
}

// content resolves the text to analyze, fetching URLs first
func (p *Pipeline) content(ctx context.Context, req Request, report *model.Report) (string, error) {
	text := strings.TrimSpace(req.Content)
	if req.ContentType != model.ContentURL || len(req.Claims) > 0 {
		return text, nil
	}
	if text == "" {
		return "", nil
	}

	res, err := p.fetcher.FetchWithRetry(ctx, text)
	if err != nil {
		return "", eris.Wrapf(err, "pipeline: fetch %s", text)
	}
	report.SourceURL = res.FinalURL
	report.Subject = res.Subject
	return res.Text, nil
}

// handoff stores the content as an unsolved query when it is inconclusive
// or the caller flagged it. Monitor failures never fail the check.
func (p *Pipeline) handoff(ctx context.Context, req Request, text string, report *model.Report, inconclusive bool) {
	if p.monitor == nil || !(inconclusive || req.FlagUnresolved) {
		return
	}

	content := text
	if req.ContentType == model.ContentURL {
		content = strings.TrimSpace(report.Subject + " " + report.SourceURL)
		if len(report.Claims) > 0 {
			content = report.Claims[0].Text
		}
	}
	if strings.TrimSpace(content) == "" {
		content = strings.Join(req.Claims, " ")
	}

	q, err := p.monitor.StoreUnsolved(ctx, query.UnsolvedInput{
		Content:     content,
		ContentType: req.ContentType,
		UserID:      req.UserID,
		Urgency:     req.Urgency,
	})
	if err != nil {
		p.logger.Warn("pipeline: store unsolved query", zap.Error(err))
		return
	}
	report.QueryID = q.ID
}

func (p *Pipeline) fail(report *model.Report, err error) {
	report.Status = model.StatusError
	report.ErrorKind = model.KindOf(err)
	report.Error = err.Error()
	if report.Summary == "" {
		report.Summary = model.Summarize(nil)
	}
	p.logger.Error("pipeline: check failed", zap.String("kind", string(report.ErrorKind)), zap.Error(err))
}
