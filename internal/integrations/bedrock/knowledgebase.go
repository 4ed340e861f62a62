package bedrock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	agenttypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
)

// agentAPI is the minimal Bedrock agent runtime interface required by
// KnowledgeBaseRetriever.
type agentAPI interface {
	Retrieve(ctx context.Context, in *bedrockagentruntime.RetrieveInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveOutput, error)
}

// KnowledgeBaseRetriever runs vector searches against one knowledge base.
type KnowledgeBaseRetriever struct {
	api             agentAPI
	knowledgeBaseID string
}

func NewKnowledgeBaseRetriever(api agentAPI, knowledgeBaseID string) (*KnowledgeBaseRetriever, error) {
	if api == nil {
		return nil, errors.New("bedrock: agent runtime api must not be nil")
	}
	knowledgeBaseID = strings.TrimSpace(knowledgeBaseID)
	if knowledgeBaseID == "" {
		return nil, errors.New("bedrock: knowledge base id must not be empty")
	}
	return &KnowledgeBaseRetriever{api: api, knowledgeBaseID: knowledgeBaseID}, nil
}

// Retrieve returns the text of up to numResults matches in service ranking order.
func (r *KnowledgeBaseRetriever) Retrieve(ctx context.Context, query string, numResults int) ([]string, error) {
	if numResults <= 0 {
		return nil, errors.New("bedrock: number of results must be positive")
	}
	out, err := r.api.Retrieve(ctx, &bedrockagentruntime.RetrieveInput{
		KnowledgeBaseId: aws.String(r.knowledgeBaseID),
		RetrievalQuery:  &agenttypes.KnowledgeBaseQuery{Text: aws.String(query)},
		RetrievalConfiguration: &agenttypes.KnowledgeBaseRetrievalConfiguration{
			VectorSearchConfiguration: &agenttypes.KnowledgeBaseVectorSearchConfiguration{
				NumberOfResults: aws.Int32(int32(numResults)),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock: retrieve from %q: %w", r.knowledgeBaseID, err)
	}
	if out == nil {
		return nil, nil
	}

	texts := make([]string, 0, len(out.RetrievalResults))
	for _, res := range out.RetrievalResults {
		if res.Content == nil || res.Content.Text == nil {
			continue
		}
		texts = append(texts, *res.Content.Text)
	}
	return texts, nil
}
