// Package config loads the evaluator configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"newsbias/internal/domain"
)

// Model providers.
const (
	ProviderBedrock         = "bedrock"
	ProviderBedrockConverse = "bedrock-converse"
	ProviderOpenAI          = "openai"
)

// Configuration validation errors.
var (
	ErrMissingSerperKey    = errors.New("serper.api_key is required (or set SERPER_API_KEY / GOOGLE_API_KEY)")
	ErrMissingModelID      = errors.New("model.id is required")
	ErrInvalidProvider     = errors.New("model.provider must be one of: bedrock, bedrock-converse, openai")
	ErrInvalidMaxTokens    = errors.New("model.max_token_count must be at least 1")
	ErrInvalidTemperature  = errors.New("model.temperature must be between 0 and 1 (0 and 2 for openai)")
	ErrInvalidTopP         = errors.New("model.top_p must be between 0 and 1")
	ErrInvalidKBResults    = errors.New("knowledge_base.num_results must be at least 1")
	ErrInvalidNewsResults  = errors.New("news.num_results must be at least 1")
	ErrInvalidQueryChars   = errors.New("news.query_chars must be at least 1")
	ErrConflictingPolicy   = errors.New("policy.text and policy.file are mutually exclusive")
	ErrInvalidLogLevel     = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrMissingCorpusRegion = errors.New("corpus.region or AWS_REGION is required to download the corpus")
	ErrMissingStoreTable   = errors.New("store.table or EVALUATION_TABLE is required to read evaluations")
)

// Config is the complete evaluator configuration.
type Config struct {
	Serper        SerperConfig        `yaml:"serper"`
	Model         ModelConfig         `yaml:"model"`
	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledge_base"`
	News          NewsConfig          `yaml:"news"`
	Policy        PolicyConfig        `yaml:"policy"`
	Store         StoreConfig         `yaml:"store"`
	Corpus        CorpusConfig        `yaml:"corpus"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// SerperConfig configures article extraction and news search. APIKey may be
// an "ssm:<name>" reference.
type SerperConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// ModelConfig selects the hosted model and its decoding parameters.
type ModelConfig struct {
	Provider      string  `yaml:"provider"`
	ID            string  `yaml:"id"`
	BaseURL       string  `yaml:"base_url"`
	APIKey        string  `yaml:"api_key"`
	MaxTokenCount int     `yaml:"max_token_count"`
	Temperature   float64 `yaml:"temperature"`
	TopP          float64 `yaml:"top_p"`
}

// Generation returns the decoding parameters as a domain value.
func (m ModelConfig) Generation() domain.GenerationConfig {
	return domain.GenerationConfig{
		MaxTokenCount: m.MaxTokenCount,
		Temperature:   m.Temperature,
		TopP:          m.TopP,
	}
}

// maxTemperature is 2 for OpenAI-compatible endpoints and 1 for Bedrock.
func (m ModelConfig) maxTemperature() float64 {
	if m.Provider == ProviderOpenAI {
		return 2
	}
	return 1
}

// KnowledgeBaseConfig enables vector retrieval of policy context when ID is set.
type KnowledgeBaseConfig struct {
	ID         string `yaml:"id"`
	Query      string `yaml:"query"`
	NumResults int    `yaml:"num_results"`
}

// Enabled reports whether a knowledge base is configured.
func (k KnowledgeBaseConfig) Enabled() bool {
	return strings.TrimSpace(k.ID) != ""
}

// NewsConfig scopes the external references search.
type NewsConfig struct {
	Disabled   bool   `yaml:"disabled"`
	Site       string `yaml:"site"`
	NumResults int    `yaml:"num_results"`
	Country    string `yaml:"country"`
	Language   string `yaml:"language"`
	QueryChars int    `yaml:"query_chars"`
}

// PolicyConfig holds the static policy text and evaluation instructions.
// Both text fields fall back to the built-in defaults when empty.
type PolicyConfig struct {
	Text         string `yaml:"text"`
	File         string `yaml:"file"`
	Instructions string `yaml:"instructions"`

	// IncludeStatic keeps the static text even when a knowledge base is set.
	IncludeStatic bool `yaml:"include_static"`
}

// StoreConfig enables DynamoDB evaluation records when Table is set.
type StoreConfig struct {
	Table string `yaml:"table"`
}

// CorpusConfig configures the approved-corpus bucket download.
type CorpusConfig struct {
	BucketTemplate string `yaml:"bucket_template"`
	Region         string `yaml:"region"`
	Dir            string `yaml:"dir"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	gen := domain.DefaultGenerationConfig()
	return &Config{
		Serper: SerperConfig{BaseURL: "https://google.serper.dev"},
		Model: ModelConfig{
			Provider:      ProviderBedrock,
			ID:            "amazon.nova-premier-v1:0",
			MaxTokenCount: gen.MaxTokenCount,
			Temperature:   gen.Temperature,
			TopP:          gen.TopP,
		},
		KnowledgeBase: KnowledgeBaseConfig{NumResults: 3},
		News: NewsConfig{
			Site:       "reuters.com",
			NumResults: 2,
			QueryChars: 150,
		},
		Corpus:  CorpusConfig{Dir: "corpus"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment
// overrides and validates the result. Credentials are checked by the
// components that need them, see RequireSerperKey.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}
	str(&c.Serper.APIKey, "SERPER_API_KEY", "GOOGLE_API_KEY")
	str(&c.Model.Provider, "MODEL_PROVIDER")
	str(&c.Model.ID, "MODEL_ID")
	str(&c.Model.BaseURL, "MODEL_BASE_URL")
	str(&c.Model.APIKey, "OPENAI_API_KEY")
	str(&c.KnowledgeBase.ID, "KNOWLEDGE_BASE_ID")
	str(&c.Store.Table, "EVALUATION_TABLE")
	str(&c.Corpus.Region, "AWS_REGION", "AWS_DEFAULT_REGION")
	str(&c.Logging.Level, "LOG_LEVEL")

	if v, ok := lookup("NEWS_NUM_RESULTS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: NEWS_NUM_RESULTS: %w", err)
		}
		c.News.NumResults = n
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case ProviderBedrock, ProviderBedrockConverse, ProviderOpenAI:
	default:
		return ErrInvalidProvider
	}
	if strings.TrimSpace(c.Model.ID) == "" {
		return ErrMissingModelID
	}
	if c.Model.MaxTokenCount < 1 {
		return ErrInvalidMaxTokens
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > c.Model.maxTemperature() {
		return ErrInvalidTemperature
	}
	if c.Model.TopP < 0 || c.Model.TopP > 1 {
		return ErrInvalidTopP
	}
	if c.KnowledgeBase.Enabled() && c.KnowledgeBase.NumResults < 1 {
		return ErrInvalidKBResults
	}
	if !c.News.Disabled {
		if c.News.NumResults < 1 {
			return ErrInvalidNewsResults
		}
		if c.News.QueryChars < 1 {
			return ErrInvalidQueryChars
		}
	}
	if c.Policy.Text != "" && c.Policy.File != "" {
		return ErrConflictingPolicy
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	return nil
}

// RequireSerperKey reports ErrMissingSerperKey when no extraction key is set.
func (c *Config) RequireSerperKey() error {
	if strings.TrimSpace(c.Serper.APIKey) == "" {
		return ErrMissingSerperKey
	}
	return nil
}

// RequireStoreTable reports ErrMissingStoreTable when no evaluation table is set.
func (c *Config) RequireStoreTable() error {
	if strings.TrimSpace(c.Store.Table) == "" {
		return ErrMissingStoreTable
	}
	return nil
}

// PolicyText returns the static policy text from the config or its file.
// An empty result means the built-in default applies.
func (c *Config) PolicyText() (string, error) {
	if c.Policy.File == "" {
		return c.Policy.Text, nil
	}
	data, err := os.ReadFile(c.Policy.File)
	if err != nil {
		return "", fmt.Errorf("config: read policy file: %w", err)
	}
	return string(data), nil
}

// CorpusRegion returns the region used to derive the corpus bucket name.
func (c *Config) CorpusRegion() (string, error) {
	if strings.TrimSpace(c.Corpus.Region) == "" {
		return "", ErrMissingCorpusRegion
	}
	return c.Corpus.Region, nil
}
