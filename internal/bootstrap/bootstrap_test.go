package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsbias/internal/config"
	"newsbias/internal/contextsource"
	"newsbias/internal/usecase"
)

func testClients() Clients {
	return NewClients(aws.Config{
		Region:      "us-west-2",
		Credentials: aws.AnonymousCredentials{},
	})
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Serper.APIKey = "serper-test"
	return cfg
}

func TestNewEvaluateService_Providers(t *testing.T) {
	for _, provider := range []string{config.ProviderBedrock, config.ProviderBedrockConverse, config.ProviderOpenAI} {
		t.Run(provider, func(t *testing.T) {
			cfg := testConfig()
			cfg.Model.Provider = provider
			cfg.Model.APIKey = "sk-test"
			svc, err := NewEvaluateService(context.Background(), cfg, testClients())
			require.NoError(t, err)
			require.NotNil(t, svc)
		})
	}
}

func TestNewEvaluateService_RequiresSerperKey(t *testing.T) {
	cfg := config.Default()
	_, err := NewEvaluateService(context.Background(), cfg, testClients())
	require.ErrorIs(t, err, config.ErrMissingSerperKey)
}

func TestNewEvaluateService_WithStoreAndKnowledgeBase(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Table = "evaluations"
	cfg.KnowledgeBase.ID = "VDOXW9LBVP"
	svc, err := NewEvaluateService(context.Background(), cfg, testClients())
	require.NoError(t, err)
	require.NotNil(t, svc)
}

func TestNewEvaluateService_UnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Model.Provider = "vertex"
	_, err := NewEvaluateService(context.Background(), cfg, testClients())
	require.ErrorIs(t, err, config.ErrInvalidProvider)
}

func TestNewPolicySource(t *testing.T) {
	c := testClients()

	cfg := testConfig()
	src, err := newPolicySource(cfg, c)
	require.NoError(t, err)
	assert.Equal(t, contextsource.Static{Text: usecase.DefaultCompanyPolicy}, src)

	cfg.Policy.Text = "custom policy"
	src, err = newPolicySource(cfg, c)
	require.NoError(t, err)
	assert.Equal(t, contextsource.Static{Text: "custom policy"}, src)

	cfg.KnowledgeBase.ID = "KB1"
	src, err = newPolicySource(cfg, c)
	require.NoError(t, err)
	assert.IsType(t, &contextsource.KnowledgeBase{}, src)

	cfg.Policy.IncludeStatic = true
	src, err = newPolicySource(cfg, c)
	require.NoError(t, err)
	multi, ok := src.(contextsource.Multi)
	require.True(t, ok)
	assert.Len(t, multi, 2)
	assert.Equal(t, contextsource.Static{Text: "custom policy"}, multi[0])
}

func TestNewCorpusDownloader(t *testing.T) {
	d, err := NewCorpusDownloader(testClients())
	require.NoError(t, err)
	require.NotNil(t, d)
}

func TestNewEvaluationStore(t *testing.T) {
	cfg := testConfig()
	_, err := NewEvaluationStore(cfg, testClients())
	require.ErrorIs(t, err, config.ErrMissingStoreTable)

	cfg.Store.Table = " evaluations "
	store, err := NewEvaluationStore(cfg, testClients())
	require.NoError(t, err)
	require.NotNil(t, store)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "warn", "json")
	log.Info("hidden")
	log.Warn("shown", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "v", line["k"])

	buf.Reset()
	NewLogger(&buf, "debug", "text").Debug("dbg")
	assert.Contains(t, buf.String(), "msg=dbg")
}
