package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"newsbias/internal/domain"
)

type fakeDynamo struct {
	getOut       *dynamodb.GetItemOutput
	getErr       error
	putErr       error
	lastGetInput *dynamodb.GetItemInput
	lastPutInput *dynamodb.PutItemInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func mustNewClient(t *testing.T, db *fakeDynamo) *Client {
	t.Helper()
	c, err := New(db, "test-table")
	require.NoError(t, err)
	return c
}

func sampleEvaluation() domain.Evaluation {
	return domain.Evaluation{
		ID:         "eval-1",
		ArticleURL: "https://news.example.com/a",
		Summary:    "summary",
		ModelID:    "amazon.nova-premier-v1:0",
		Prompt:     "prompt",
		Result:     "Score: 80",
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		TTL:        1775000000,
	}
}

func TestNew_Validates(t *testing.T) {
	_, err := New(nil, "t")
	require.Error(t, err)
	_, err = New(&fakeDynamo{}, " ")
	require.Error(t, err)
}

func TestSaveEvaluation_WritesItem(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	require.NoError(t, c.SaveEvaluation(context.Background(), sampleEvaluation()))

	in := db.lastPutInput
	require.Equal(t, "test-table", *in.TableName)
	require.Equal(t, "attribute_not_exists(PK) AND attribute_not_exists(SK)", *in.ConditionExpression)
	require.Equal(t, &types.AttributeValueMemberS{Value: "EVAL#eval-1"}, in.Item["PK"])
	require.Equal(t, &types.AttributeValueMemberS{Value: "META#"}, in.Item["SK"])
	require.Equal(t, &types.AttributeValueMemberS{Value: "Score: 80"}, in.Item["result"])
	require.Equal(t, &types.AttributeValueMemberS{Value: "2026-03-01T12:00:00Z"}, in.Item["createdAt"])
	require.Equal(t, &types.AttributeValueMemberN{Value: "1775000000"}, in.Item["ttl"])
}

func TestSaveEvaluation_RequiresID(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	e := sampleEvaluation()
	e.ID = ""
	require.Error(t, c.SaveEvaluation(context.Background(), e))
	require.Nil(t, db.lastPutInput)
}

func TestSaveEvaluation_PutError(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{putErr: errors.New("ConditionalCheckFailed")})
	err := c.SaveEvaluation(context.Background(), sampleEvaluation())
	require.ErrorContains(t, err, "ConditionalCheckFailed")
}

func TestGetEvaluation_RoundTripsItem(t *testing.T) {
	want := sampleEvaluation()
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: evaluationItem(want)}}
	c := mustNewClient(t, db)

	got, err := c.GetEvaluation(context.Background(), "eval-1")
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.Equal(t, &types.AttributeValueMemberS{Value: "EVAL#eval-1"}, db.lastGetInput.Key["PK"])
	require.True(t, *db.lastGetInput.ConsistentRead)
}

func TestGetEvaluation_NotFound(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{}})
	_, err := c.GetEvaluation(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetEvaluation_MalformedItem(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"evaluationId": &types.AttributeValueMemberN{Value: "1"},
	}}})
	_, err := c.GetEvaluation(context.Background(), "x")
	require.ErrorContains(t, err, "not a string")
}

func TestGetEvaluation_GetError(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{getErr: errors.New("boom")})
	_, err := c.GetEvaluation(context.Background(), "x")
	require.ErrorContains(t, err, "boom")
}
