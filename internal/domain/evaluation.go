package domain

import "time"

// GenerationConfig holds the decoding parameters sent to the hosted model.
type GenerationConfig struct {
	MaxTokenCount int
	Temperature   float64
	TopP          float64
}

// DefaultGenerationConfig returns the fixed decoding parameters used for scoring.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		MaxTokenCount: 1000,
		Temperature:   0.3,
		TopP:          0.9,
	}
}

// Evaluation is one completed scoring run.
type Evaluation struct {
	ID         string    `json:"evaluationId"`
	ArticleURL string    `json:"articleUrl"`
	Summary    string    `json:"summary"`
	ModelID    string    `json:"modelId"`
	Prompt     string    `json:"prompt"`
	Result     string    `json:"result"`
	CreatedAt  time.Time `json:"createdAt"`
	TTL        int64     `json:"ttl"`
}
