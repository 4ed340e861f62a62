// Package bedrock adapts Amazon Bedrock model invocation and knowledge base
// retrieval to the evaluation pipeline.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"newsbias/internal/domain"
)

// NoResponse is returned when the model reply carries no output text.
const NoResponse = "No response."

// runtimeAPI is the minimal Bedrock runtime interface required by the invokers.
// *bedrockruntime.Client from aws-sdk-go-v2 satisfies this interface.
type runtimeAPI interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
	Converse(ctx context.Context, in *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type textGenerationConfig struct {
	MaxTokenCount int     `json:"maxTokenCount"`
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"topP"`
}

type textRequest struct {
	InputText            string               `json:"inputText"`
	TextGenerationConfig textGenerationConfig `json:"textGenerationConfig"`
}

type textResponse struct {
	OutputText *string `json:"outputText"`
	Results    []struct {
		OutputText string `json:"outputText"`
	} `json:"results"`
}

// TextInvoker calls InvokeModel with the {inputText, textGenerationConfig} body.
type TextInvoker struct {
	api     runtimeAPI
	modelID string
	gen     domain.GenerationConfig
}

func NewTextInvoker(api runtimeAPI, modelID string, gen domain.GenerationConfig) (*TextInvoker, error) {
	if api == nil {
		return nil, errors.New("bedrock: runtime api must not be nil")
	}
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return nil, errors.New("bedrock: model id must not be empty")
	}
	return &TextInvoker{api: api, modelID: modelID, gen: gen}, nil
}

func (t *TextInvoker) ModelID() string { return t.modelID }

func (t *TextInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(textRequest{
		InputText: prompt,
		TextGenerationConfig: textGenerationConfig{
			MaxTokenCount: t.gen.MaxTokenCount,
			Temperature:   t.gen.Temperature,
			TopP:          t.gen.TopP,
		},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal request: %w", err)
	}

	out, err := t.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(t.modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: invoke model %q: %w", t.modelID, err)
	}
	if out == nil || len(out.Body) == 0 {
		return NoResponse, nil
	}

	var payload textResponse
	if err := json.Unmarshal(out.Body, &payload); err != nil {
		return "", fmt.Errorf("bedrock: decode response: %w", err)
	}
	switch {
	case payload.OutputText != nil:
		return *payload.OutputText, nil
	case len(payload.Results) > 0:
		return payload.Results[0].OutputText, nil
	default:
		return NoResponse, nil
	}
}

// ConverseInvoker sends the composed prompt as a single user turn through the
// Converse API, which works uniformly across Bedrock model families.
type ConverseInvoker struct {
	api     runtimeAPI
	modelID string
	gen     domain.GenerationConfig
}

func NewConverseInvoker(api runtimeAPI, modelID string, gen domain.GenerationConfig) (*ConverseInvoker, error) {
	if api == nil {
		return nil, errors.New("bedrock: runtime api must not be nil")
	}
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return nil, errors.New("bedrock: model id must not be empty")
	}
	return &ConverseInvoker{api: api, modelID: modelID, gen: gen}, nil
}

func (c *ConverseInvoker) ModelID() string { return c.modelID }

func (c *ConverseInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	out, err := c.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.modelID),
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: prompt}},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(c.gen.MaxTokenCount)),
			Temperature: aws.Float32(float32(c.gen.Temperature)),
			TopP:        aws.Float32(float32(c.gen.TopP)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: converse %q: %w", c.modelID, err)
	}
	if out == nil {
		return NoResponse, nil
	}
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return NoResponse, nil
	}

	var b strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			b.WriteString(text.Value)
		}
	}
	if b.Len() == 0 {
		return NoResponse, nil
	}
	return b.String(), nil
}
