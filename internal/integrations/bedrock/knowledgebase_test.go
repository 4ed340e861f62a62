package bedrock

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	agenttypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/stretchr/testify/require"
)

type fakeAgent struct {
	out  *bedrockagentruntime.RetrieveOutput
	err  error
	last *bedrockagentruntime.RetrieveInput
}

func (f *fakeAgent) Retrieve(_ context.Context, in *bedrockagentruntime.RetrieveInput, _ ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveOutput, error) {
	f.last = in
	return f.out, f.err
}

func result(text string) agenttypes.KnowledgeBaseRetrievalResult {
	return agenttypes.KnowledgeBaseRetrievalResult{
		Content: &agenttypes.RetrievalResultContent{Text: aws.String(text)},
	}
}

func TestNewKnowledgeBaseRetriever_Validates(t *testing.T) {
	_, err := NewKnowledgeBaseRetriever(nil, "KB1")
	require.Error(t, err)
	_, err = NewKnowledgeBaseRetriever(&fakeAgent{}, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "knowledge base id")
}

func TestRetrieve_HappyPath(t *testing.T) {
	api := &fakeAgent{out: &bedrockagentruntime.RetrieveOutput{RetrievalResults: []agenttypes.KnowledgeBaseRetrievalResult{
		result("neutral tone"),
		{Content: nil},
		result("verified sources"),
	}}}
	r, err := NewKnowledgeBaseRetriever(api, "VDOXW9LBVP")
	require.NoError(t, err)

	texts, err := r.Retrieve(context.Background(), "company policy", 3)
	require.NoError(t, err)
	require.Equal(t, []string{"neutral tone", "verified sources"}, texts)

	require.Equal(t, "VDOXW9LBVP", *api.last.KnowledgeBaseId)
	require.Equal(t, "company policy", *api.last.RetrievalQuery.Text)
	require.Equal(t, int32(3), *api.last.RetrievalConfiguration.VectorSearchConfiguration.NumberOfResults)
}

func TestRetrieve_Errors(t *testing.T) {
	r, err := NewKnowledgeBaseRetriever(&fakeAgent{err: errors.New("ResourceNotFoundException")}, "KB1")
	require.NoError(t, err)
	_, err = r.Retrieve(context.Background(), "q", 3)
	require.ErrorContains(t, err, "ResourceNotFoundException")

	_, err = r.Retrieve(context.Background(), "q", 0)
	require.ErrorContains(t, err, "positive")
}

func TestRetrieve_NilOutput(t *testing.T) {
	r, err := NewKnowledgeBaseRetriever(&fakeAgent{}, "KB1")
	require.NoError(t, err)
	texts, err := r.Retrieve(context.Background(), "q", 3)
	require.NoError(t, err)
	require.Empty(t, texts)
}
