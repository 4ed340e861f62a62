// Package bootstrap wires configuration into concrete clients and the
// evaluation service. It is shared by the CLI and the Lambda entrypoint.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"newsbias/internal/config"
	"newsbias/internal/contextsource"
	"newsbias/internal/corpus"
	"newsbias/internal/integrations/bedrock"
	"newsbias/internal/integrations/openai"
	"newsbias/internal/integrations/paramstore"
	"newsbias/internal/integrations/serper"
	"newsbias/internal/repository"
	"newsbias/internal/usecase"
)

// Clients holds the AWS service clients built from one aws.Config.
type Clients struct {
	Bedrock  *bedrockruntime.Client
	Agent    *bedrockagentruntime.Client
	SSM      *ssm.Client
	DynamoDB *dynamodb.Client
	S3       *s3.Client
	STS      *sts.Client
}

// NewClients constructs every AWS client. No network calls are made.
func NewClients(cfg aws.Config) Clients {
	return Clients{
		Bedrock:  bedrockruntime.NewFromConfig(cfg),
		Agent:    bedrockagentruntime.NewFromConfig(cfg),
		SSM:      ssm.NewFromConfig(cfg),
		DynamoDB: dynamodb.NewFromConfig(cfg),
		S3:       s3.NewFromConfig(cfg),
		STS:      sts.NewFromConfig(cfg),
	}
}

// NewEvaluateService builds the evaluation pipeline described by cfg.
func NewEvaluateService(ctx context.Context, cfg *config.Config, c Clients) (*usecase.EvaluateService, error) {
	if err := cfg.RequireSerperKey(); err != nil {
		return nil, err
	}
	secrets, err := paramstore.New(c.SSM)
	if err != nil {
		return nil, err
	}

	serperKey, err := secrets.Resolve(ctx, cfg.Serper.APIKey)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: resolve serper api key: %w", err)
	}
	search, err := serper.NewClient(serperKey, serper.WithBaseURL(cfg.Serper.BaseURL))
	if err != nil {
		return nil, err
	}

	policy, err := newPolicySource(cfg, c)
	if err != nil {
		return nil, err
	}

	model, err := newModelInvoker(ctx, cfg, c, secrets)
	if err != nil {
		return nil, err
	}

	opts := []usecase.ServiceOption{
		usecase.WithInstructions(cfg.Policy.Instructions),
		usecase.WithPolicyQuery(cfg.KnowledgeBase.Query),
		usecase.WithReferenceQueryRunes(cfg.News.QueryChars),
	}
	if !cfg.News.Disabled {
		news, err := contextsource.NewNews(search, contextsource.NewsOptions{
			Site:       cfg.News.Site,
			NumResults: cfg.News.NumResults,
			Country:    cfg.News.Country,
			Language:   cfg.News.Language,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, usecase.WithReferences(news))
	}
	if table := strings.TrimSpace(cfg.Store.Table); table != "" {
		store, err := repository.New(c.DynamoDB, table)
		if err != nil {
			return nil, err
		}
		opts = append(opts, usecase.WithRecorder(store))
	}

	slog.Debug("evaluation pipeline configured",
		"model_provider", cfg.Model.Provider,
		"model_id", model.ModelID(),
		"knowledge_base", cfg.KnowledgeBase.ID,
		"news_site", cfg.News.Site,
		"news_disabled", cfg.News.Disabled,
		"store_table", cfg.Store.Table,
	)
	return usecase.NewEvaluateService(search, policy, model, opts...)
}

// newPolicySource returns the static policy, the knowledge base, or both.
func newPolicySource(cfg *config.Config, c Clients) (usecase.ContextSource, error) {
	text, err := cfg.PolicyText()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		text = usecase.DefaultCompanyPolicy
	}
	static := contextsource.Static{Text: text}
	if !cfg.KnowledgeBase.Enabled() {
		return static, nil
	}

	retriever, err := bedrock.NewKnowledgeBaseRetriever(c.Agent, cfg.KnowledgeBase.ID)
	if err != nil {
		return nil, err
	}
	kb, err := contextsource.NewKnowledgeBase(retriever, cfg.KnowledgeBase.Query, cfg.KnowledgeBase.NumResults)
	if err != nil {
		return nil, err
	}
	if cfg.Policy.IncludeStatic {
		return contextsource.Multi{static, kb}, nil
	}
	return kb, nil
}

func newModelInvoker(ctx context.Context, cfg *config.Config, c Clients, secrets *paramstore.Client) (usecase.ModelInvoker, error) {
	gen := cfg.Model.Generation()
	switch cfg.Model.Provider {
	case config.ProviderBedrock:
		return bedrock.NewTextInvoker(c.Bedrock, cfg.Model.ID, gen)
	case config.ProviderBedrockConverse:
		return bedrock.NewConverseInvoker(c.Bedrock, cfg.Model.ID, gen)
	case config.ProviderOpenAI:
		apiKey, err := secrets.Resolve(ctx, cfg.Model.APIKey)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: resolve model api key: %w", err)
		}
		opts := []openai.Option{}
		if cfg.Model.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.Model.BaseURL))
		}
		if apiKey != "" {
			opts = append(opts, openai.WithAPIKey(apiKey))
		}
		return openai.NewInvoker(cfg.Model.ID, gen, opts...)
	default:
		return nil, config.ErrInvalidProvider
	}
}

// NewEvaluationStore opens the DynamoDB table holding recorded evaluations.
func NewEvaluationStore(cfg *config.Config, c Clients) (*repository.Client, error) {
	if err := cfg.RequireStoreTable(); err != nil {
		return nil, err
	}
	return repository.New(c.DynamoDB, strings.TrimSpace(cfg.Store.Table))
}

// NewCorpusDownloader builds the approved-corpus downloader.
func NewCorpusDownloader(c Clients) (*corpus.Downloader, error) {
	return corpus.NewDownloader(c.S3, c.STS)
}

// NewLogger returns a slog logger at the configured level. format "json"
// selects the JSON handler; anything else uses text.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	lvl := new(slog.LevelVar)
	switch strings.ToLower(level) {
	case "debug":
		lvl.Set(slog.LevelDebug)
	case "warn":
		lvl.Set(slog.LevelWarn)
	case "error":
		lvl.Set(slog.LevelError)
	default:
		lvl.Set(slog.LevelInfo)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
