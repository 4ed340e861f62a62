package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"newsbias/internal/domain"
)

const (
	pkPrefixEval = "EVAL#"
	skMeta       = "META#"
)

// ErrNotFound is returned by GetEvaluation when no record exists.
var ErrNotFound = errors.New("repository: evaluation not found")

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Client stores evaluation records in a single DynamoDB table.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

func evalPK(id string) string {
	return pkPrefixEval + id
}

// SaveEvaluation writes a new evaluation record. Records are immutable, so an
// existing ID is rejected.
func (c *Client) SaveEvaluation(ctx context.Context, e domain.Evaluation) error {
	if strings.TrimSpace(e.ID) == "" {
		return errors.New("repository: SaveEvaluation: ID is required")
	}
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                evaluationItem(e),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: SaveEvaluation: %w", err)
	}
	return nil
}

// GetEvaluation reads one evaluation record by ID.
func (c *Client) GetEvaluation(ctx context.Context, id string) (domain.Evaluation, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: evalPK(id)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("repository: GetEvaluation get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Evaluation{}, ErrNotFound
	}
	e, err := itemToEvaluation(out.Item)
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("repository: GetEvaluation unmarshal: %w", err)
	}
	return e, nil
}

func evaluationItem(e domain.Evaluation) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":           &types.AttributeValueMemberS{Value: evalPK(e.ID)},
		"SK":           &types.AttributeValueMemberS{Value: skMeta},
		"evaluationId": &types.AttributeValueMemberS{Value: e.ID},
		"articleUrl":   &types.AttributeValueMemberS{Value: e.ArticleURL},
		"summary":      &types.AttributeValueMemberS{Value: e.Summary},
		"modelId":      &types.AttributeValueMemberS{Value: e.ModelID},
		"prompt":       &types.AttributeValueMemberS{Value: e.Prompt},
		"result":       &types.AttributeValueMemberS{Value: e.Result},
		"createdAt":    &types.AttributeValueMemberS{Value: e.CreatedAt.UTC().Format(time.RFC3339Nano)},
		"ttl":          &types.AttributeValueMemberN{Value: strconv.FormatInt(e.TTL, 10)},
	}
}

func itemToEvaluation(item map[string]types.AttributeValue) (domain.Evaluation, error) {
	id, err := strAttr(item, "evaluationId")
	if err != nil {
		return domain.Evaluation{}, err
	}
	articleURL, err := strAttr(item, "articleUrl")
	if err != nil {
		return domain.Evaluation{}, err
	}
	result, err := strAttr(item, "result")
	if err != nil {
		return domain.Evaluation{}, err
	}
	summary, _ := strAttr(item, "summary") // allow empty
	modelID, _ := strAttr(item, "modelId")
	prompt, _ := strAttr(item, "prompt")

	var createdAt time.Time
	if raw, err := strAttr(item, "createdAt"); err == nil {
		createdAt, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return domain.Evaluation{}, fmt.Errorf("repository: parse createdAt: %w", err)
		}
	}
	ttl, _ := int64Attr(item, "ttl")

	return domain.Evaluation{
		ID:         id,
		ArticleURL: articleURL,
		Summary:    summary,
		ModelID:    modelID,
		Prompt:     prompt,
		Result:     result,
		CreatedAt:  createdAt,
		TTL:        ttl,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func int64Attr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
