package s3

import (
	"context"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cliosearch/clio/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDDBClient is an in-memory DynamoDB stand-in with conditional-write
// semantics.
type mockDDBClient struct {
	mu    sync.RWMutex
	items map[string]map[string]types.AttributeValue
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{items: make(map[string]map[string]types.AttributeValue)}
}

func (m *mockDDBClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	baseURI := params.Item["base_uri"].(*types.AttributeValueMemberS).Value
	version := params.Item["version"].(*types.AttributeValueMemberN).Value
	key := baseURI + ":" + version

	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(version)" {
		if _, exists := m.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}

	m.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	baseURI := params.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value

	var items []map[string]types.AttributeValue
	for _, item := range m.items {
		if item["base_uri"].(*types.AttributeValueMemberS).Value == baseURI {
			items = append(items, item)
		}
	}

	// Sort descending by version, matching ScanIndexForward=false.
	for i := 0; i < len(items)-1; i++ {
		for j := i + 1; j < len(items); j++ {
			vi := items[i]["version"].(*types.AttributeValueMemberN).Value
			vj := items[j]["version"].(*types.AttributeValueMemberN).Value
			if len(vi) < len(vj) || (len(vi) == len(vj) && vi < vj) {
				items[i], items[j] = items[j], items[i]
			}
		}
	}

	if params.Limit != nil && int(*params.Limit) < len(items) {
		items = items[:*params.Limit]
	}

	return &dynamodb.QueryOutput{Items: items}, nil
}

func newTestCommitStore(ddb *mockDDBClient) *CommitStore {
	store := &Store{
		client: &MockClient{},
		bucket: "test-bucket",
		prefix: "collections/",
	}
	return NewCommitStore(store, ddb, "clio-commits", "s3://test-bucket/collections/")
}

func readPointer(t *testing.T, store *CommitStore) string {
	t.Helper()

	blob, err := store.Open(context.Background(), "CURRENT")
	require.NoError(t, err)
	defer blob.Close()

	data, err := blobstore.ReadAll(blob)
	require.NoError(t, err)
	return string(data)
}

func TestCommitStoreFirstCommit(t *testing.T) {
	ctx := context.Background()
	store := newTestCommitStore(newMockDDBClient())

	require.NoError(t, store.Put(ctx, "CURRENT", []byte("photos-001.vec")))
	assert.Equal(t, "photos-001.vec", readPointer(t, store))
}

func TestCommitStoreSequentialCommits(t *testing.T) {
	ctx := context.Background()
	store := newTestCommitStore(newMockDDBClient())

	require.NoError(t, store.Put(ctx, "CURRENT", []byte("photos-001.vec")))
	require.NoError(t, store.Put(ctx, "CURRENT", []byte("photos-002.vec")))
	require.NoError(t, store.Put(ctx, "CURRENT", []byte("photos-003.vec")))

	assert.Equal(t, "photos-003.vec", readPointer(t, store))
}

func TestCommitStoreEmptyHistory(t *testing.T) {
	store := newTestCommitStore(newMockDDBClient())

	_, err := store.Open(context.Background(), "CURRENT")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestCommitStoreConcurrentConflict(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()
	a := newTestCommitStore(ddb)
	b := newTestCommitStore(ddb)

	// Both publishers read version 0; the second conditional put collides.
	require.NoError(t, a.commit(ctx, "photos-a.vec"))

	// Simulate b having computed the same next version.
	_, err := ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String("clio-commits"),
		Item: map[string]types.AttributeValue{
			"base_uri":    &types.AttributeValueMemberS{Value: b.baseURI},
			"version":     &types.AttributeValueMemberN{Value: "1"},
			"archive_key": &types.AttributeValueMemberS{Value: "photos-b.vec"},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	var condErr *types.ConditionalCheckFailedException
	assert.ErrorAs(t, err, &condErr)

	// Retrying through the store picks up version 2.
	require.NoError(t, b.Put(ctx, "CURRENT", []byte("photos-b.vec")))
	assert.Equal(t, "photos-b.vec", readPointer(t, a))
}
