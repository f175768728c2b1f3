package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"chat-widget/internal/domain"
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

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func mustNewClient(t *testing.T, db *fakeDynamo) *Client {
	t.Helper()
	c, err := New(db, "test-table")
	require.NoError(t, err)
	c.now = func() time.Time { return fixedNow }
	return c
}

func sAttr(item map[string]types.AttributeValue, key string) string {
	return item[key].(*types.AttributeValueMemberS).Value
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "table")
	require.Error(t, err)
	_, err = New(&fakeDynamo{}, " ")
	require.Error(t, err)
}

func TestGetExchange_Found(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: "EXCHANGE#req-1"},
		"SK":        &types.AttributeValueMemberS{Value: skReply},
		"requestId": &types.AttributeValueMemberS{Value: "req-1"},
		"message":   &types.AttributeValueMemberS{Value: "hi"},
		"reply":     &types.AttributeValueMemberS{Value: "hello"},
		"ttl":       &types.AttributeValueMemberN{Value: "1790000000"},
	}}}
	c := mustNewClient(t, db)

	ex, found, err := c.GetExchange(context.Background(), "req-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "hello", ex.Reply)
	require.Equal(t, "hi", ex.Message)
	require.Equal(t, int64(1790000000), ex.TTL)

	require.Equal(t, "test-table", *db.lastGetInput.TableName)
	require.Equal(t, "EXCHANGE#req-1", sAttr(db.lastGetInput.Key, "PK"))
	require.Equal(t, skReply, sAttr(db.lastGetInput.Key, "SK"))
	require.True(t, *db.lastGetInput.ConsistentRead)
}

func TestGetExchange_NotFound(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{}})
	_, found, err := c.GetExchange(context.Background(), "req-1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestGetExchange_Errors(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{getErr: errors.New("throttled")})
	_, _, err := c.GetExchange(context.Background(), "req-1")
	require.ErrorContains(t, err, "throttled")

	c = mustNewClient(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "EXCHANGE#req-1"},
		"SK": &types.AttributeValueMemberS{Value: skReply},
	}}})
	_, _, err = c.GetExchange(context.Background(), "req-1")
	require.ErrorContains(t, err, `missing attribute "reply"`)
}

func TestSaveExchange_WritesCompletedItem(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	err := c.SaveExchange(context.Background(), domain.Exchange{
		RequestID: "req-1",
		Message:   "hi",
		Reply:     "hello",
		Model:     "gpt-4o-mini",
	})
	require.NoError(t, err)

	in := db.lastPutInput
	require.NotNil(t, in)
	require.Equal(t, "test-table", *in.TableName)
	require.Contains(t, *in.ConditionExpression, "attribute_not_exists(PK)")
	require.Equal(t, "EXCHANGE#req-1", sAttr(in.Item, "PK"))
	require.Equal(t, skReply, sAttr(in.Item, "SK"))
	require.Equal(t, "hello", sAttr(in.Item, "reply"))
	require.Equal(t, fixedNow.Format(time.RFC3339Nano), sAttr(in.Item, "createdAt"))

	ttl, err := int64Attr(in.Item, "ttl")
	require.NoError(t, err)
	require.Equal(t, fixedNow.Add(ttlDuration).Unix(), ttl)
}

func TestSaveExchange_DuplicateIsIgnored(t *testing.T) {
	db := &fakeDynamo{putErr: &types.ConditionalCheckFailedException{}}
	c := mustNewClient(t, db)
	require.NoError(t, c.SaveExchange(context.Background(), domain.Exchange{RequestID: "req-1", Reply: "x"}))
}

func TestSaveExchange_Errors(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{})
	require.Error(t, c.SaveExchange(context.Background(), domain.Exchange{Reply: "x"}))

	c = mustNewClient(t, &fakeDynamo{putErr: errors.New("write failed")})
	err := c.SaveExchange(context.Background(), domain.Exchange{RequestID: "req-1", Reply: "x"})
	require.ErrorContains(t, err, "write failed")
}

func TestItemToExchange_RejectsWrongTypes(t *testing.T) {
	_, err := itemToExchange(map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberN{Value: "1"},
	})
	require.ErrorContains(t, err, "not a string")
}
