package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"newsbias/internal/domain"
)

const (
	defaultMaxSummaryLen = 20000
	evaluationTTL        = 30 * 24 * time.Hour
)

// ArticleFetcher turns an article URL into plain text. A response without
// text yields "" and a nil error; transport failures yield an error.
type ArticleFetcher interface {
	Extract(ctx context.Context, articleURL string) (string, error)
}

// ContextSource produces ordered text snippets for a query.
type ContextSource interface {
	Fetch(ctx context.Context, query string) ([]string, error)
}

// ModelInvoker sends a composed prompt to a hosted model.
type ModelInvoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
	ModelID() string
}

// EvaluationRecorder persists completed evaluations.
type EvaluationRecorder interface {
	SaveEvaluation(ctx context.Context, e domain.Evaluation) error
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type EvaluateService struct {
	fetcher    ArticleFetcher
	policy     ContextSource
	references ContextSource
	model      ModelInvoker
	recorder   EvaluationRecorder

	instructions  string
	policyQuery   string
	queryRunes    int
	maxSummaryLen int
}

type EvaluateInput struct {
	ArticleURL string
	Summary    string
}

type EvaluateOutput struct {
	EvaluationID string
	Result       string
	Prompt       string
}

type ServiceOption func(*EvaluateService)

// WithReferences adds a source of external references seeded by the article text.
func WithReferences(src ContextSource) ServiceOption {
	return func(s *EvaluateService) {
		s.references = src
	}
}

// WithRecorder persists every successful evaluation.
func WithRecorder(r EvaluationRecorder) ServiceOption {
	return func(s *EvaluateService) {
		s.recorder = r
	}
}

// WithInstructions replaces DefaultSystemPrompt.
func WithInstructions(instructions string) ServiceOption {
	return func(s *EvaluateService) {
		if strings.TrimSpace(instructions) != "" {
			s.instructions = instructions
		}
	}
}

// WithPolicyQuery replaces DefaultPolicyQuery.
func WithPolicyQuery(q string) ServiceOption {
	return func(s *EvaluateService) {
		if strings.TrimSpace(q) != "" {
			s.policyQuery = q
		}
	}
}

// WithReferenceQueryRunes sets how many leading runes of the article seed the
// reference search.
func WithReferenceQueryRunes(n int) ServiceOption {
	return func(s *EvaluateService) {
		if n > 0 {
			s.queryRunes = n
		}
	}
}

func NewEvaluateService(f ArticleFetcher, policy ContextSource, m ModelInvoker, opts ...ServiceOption) (*EvaluateService, error) {
	if f == nil {
		return nil, errors.New("usecase: article fetcher must not be nil")
	}
	if policy == nil {
		return nil, errors.New("usecase: policy source must not be nil")
	}
	if m == nil {
		return nil, errors.New("usecase: model invoker must not be nil")
	}
	s := &EvaluateService{
		fetcher:       f,
		policy:        policy,
		model:         m,
		instructions:  DefaultSystemPrompt,
		policyQuery:   DefaultPolicyQuery,
		queryRunes:    defaultReferenceQueryRunes,
		maxSummaryLen: defaultMaxSummaryLen,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *EvaluateService) Evaluate(ctx context.Context, in EvaluateInput) (EvaluateOutput, error) {
	articleURL := strings.TrimSpace(in.ArticleURL)
	if articleURL == "" {
		return EvaluateOutput{}, newError(ErrorInvalidInput, "empty_url", nil)
	}
	if !validArticleURL(articleURL) {
		return EvaluateOutput{}, newError(ErrorInvalidInput, "invalid_url", nil)
	}
	// The summary goes into the prompt exactly as given.
	summary := in.Summary
	if strings.TrimSpace(summary) == "" {
		return EvaluateOutput{}, newError(ErrorInvalidInput, "empty_summary", nil)
	}
	if len(summary) > s.maxSummaryLen {
		return EvaluateOutput{}, newError(ErrorInvalidInput, "summary_too_long", nil)
	}

	article, err := s.fetcher.Extract(ctx, articleURL)
	if err != nil {
		return EvaluateOutput{}, classifyUpstream(ErrorFetch, "article_fetch", err)
	}
	if strings.TrimSpace(article) == "" {
		slog.Warn("article extraction returned no text", "url", articleURL)
	}

	policy, err := s.policy.Fetch(ctx, s.policyQuery)
	if err != nil {
		return EvaluateOutput{}, classifyUpstream(ErrorContext, "policy_context", err)
	}

	var references []string
	if s.references != nil {
		references, err = s.references.Fetch(ctx, referenceQuery(article, s.queryRunes))
		if err != nil {
			return EvaluateOutput{}, classifyUpstream(ErrorContext, "references", err)
		}
	}

	prompt := BuildPrompt(PromptInput{
		Instructions: s.instructions,
		Article:      article,
		Summary:      summary,
		Policy:       policy,
		References:   references,
	})
	slog.Debug("prompt assembled",
		"url", articleURL,
		"article_chars", len(article),
		"policy_snippets", len(policy),
		"references", len(references),
		"prompt_chars", len(prompt),
	)

	result, err := s.model.Invoke(ctx, prompt)
	if err != nil {
		return EvaluateOutput{}, classifyUpstream(ErrorUpstream, "model", err)
	}

	out := EvaluateOutput{
		EvaluationID: newUUID(),
		Result:       result,
		Prompt:       prompt,
	}
	s.record(ctx, articleURL, summary, out)
	return out, nil
}

// record is best effort: a failed write does not discard the model result.
func (s *EvaluateService) record(ctx context.Context, articleURL, summary string, out EvaluateOutput) {
	if s.recorder == nil {
		return
	}
	now := time.Now().UTC()
	err := s.recorder.SaveEvaluation(ctx, domain.Evaluation{
		ID:         out.EvaluationID,
		ArticleURL: articleURL,
		Summary:    summary,
		ModelID:    s.model.ModelID(),
		Prompt:     out.Prompt,
		Result:     out.Result,
		CreatedAt:  now,
		TTL:        now.Add(evaluationTTL).Unix(),
	})
	if err != nil {
		slog.Error("failed to record evaluation", "evaluation_id", out.EvaluationID, "err", err)
	}
}

func validArticleURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// classifyUpstream maps a 429 from any upstream to RATE_LIMITED and
// everything else to code, tagging reason with the failing stage.
func classifyUpstream(code ErrorCode, stage string, err error) *Error {
	if status, ok := upstreamStatusCode(err); ok && status == 429 {
		return newError(ErrorRateLimited, stage+"_rate_limited", err)
	}
	return newError(code, stage+"_error", err)
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

var newUUID = func() string {
	return uuid.NewString()
}
