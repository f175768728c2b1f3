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

	"chat-widget/internal/domain"
)

const (
	pkPrefix    = "EXCHANGE#"
	skReply     = "REPLY#"
	ttlDuration = 30 * 24 * time.Hour // 30-day TTL
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Client logs reply service exchanges in a DynamoDB table keyed by request ID.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

func exchangePK(requestID string) string {
	return pkPrefix + requestID
}

// GetExchange returns the logged exchange for requestID, if any.
func (c *Client) GetExchange(ctx context.Context, requestID string) (domain.Exchange, bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: exchangePK(requestID)},
			"SK": &types.AttributeValueMemberS{Value: skReply},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Exchange{}, false, fmt.Errorf("repository: GetExchange get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Exchange{}, false, nil
	}
	ex, err := itemToExchange(out.Item)
	if err != nil {
		return domain.Exchange{}, false, fmt.Errorf("repository: GetExchange decode: %w", err)
	}
	return ex, true, nil
}

// SaveExchange writes ex once. A concurrent retry that already logged the same
// request ID is not an error.
func (c *Client) SaveExchange(ctx context.Context, ex domain.Exchange) error {
	if strings.TrimSpace(ex.RequestID) == "" {
		return errors.New("repository: SaveExchange: request ID is required")
	}
	ex = c.complete(ex)

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                exchangeItem(ex),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		var conflict *types.ConditionalCheckFailedException
		if errors.As(err, &conflict) {
			return nil
		}
		return fmt.Errorf("repository: SaveExchange: %w", err)
	}
	return nil
}

// complete fills the key, timestamp and TTL attributes the caller left empty.
func (c *Client) complete(ex domain.Exchange) domain.Exchange {
	now := c.now().UTC()
	if ex.PK == "" {
		ex.PK = exchangePK(ex.RequestID)
	}
	if ex.SK == "" {
		ex.SK = skReply
	}
	if ex.CreatedAt == "" {
		ex.CreatedAt = now.Format(time.RFC3339Nano)
	}
	if ex.TTL == 0 {
		ex.TTL = now.Add(ttlDuration).Unix()
	}
	return ex
}

func exchangeItem(ex domain.Exchange) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: ex.PK},
		"SK":        &types.AttributeValueMemberS{Value: ex.SK},
		"requestId": &types.AttributeValueMemberS{Value: ex.RequestID},
		"message":   &types.AttributeValueMemberS{Value: ex.Message},
		"reply":     &types.AttributeValueMemberS{Value: ex.Reply},
		"model":     &types.AttributeValueMemberS{Value: ex.Model},
		"createdAt": &types.AttributeValueMemberS{Value: ex.CreatedAt},
		"ttl":       &types.AttributeValueMemberN{Value: strconv.FormatInt(ex.TTL, 10)},
	}
}

func itemToExchange(item map[string]types.AttributeValue) (domain.Exchange, error) {
	pk, err := strAttr(item, "PK")
	if err != nil {
		return domain.Exchange{}, err
	}
	sk, err := strAttr(item, "SK")
	if err != nil {
		return domain.Exchange{}, err
	}
	reply, err := strAttr(item, "reply")
	if err != nil {
		return domain.Exchange{}, err
	}
	requestID, _ := strAttr(item, "requestId") // allow empty
	message, _ := strAttr(item, "message")
	model, _ := strAttr(item, "model")
	createdAt, _ := strAttr(item, "createdAt")
	ttl, _ := int64Attr(item, "ttl")

	return domain.Exchange{
		PK:        pk,
		SK:        sk,
		RequestID: requestID,
		Message:   message,
		Reply:     reply,
		Model:     model,
		CreatedAt: createdAt,
		TTL:       ttl,
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
