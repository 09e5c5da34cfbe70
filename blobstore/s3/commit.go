package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cliosearch/clio/blobstore"
)

// currentName is the virtual blob whose content is the key of the currently
// published archive.
const currentName = "CURRENT"

// DDBClient is the subset of the DynamoDB API the commit store uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ErrConcurrentModification is returned when another publisher committed a
// version concurrently. Callers should re-read CURRENT and retry.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// CommitStore pairs an S3 store with a DynamoDB table to publish archive
// versions atomically. S3 alone cannot compare-and-swap an object, so the
// "which archive is live" pointer lives in DynamoDB instead:
//
//   - archive objects are uploaded to S3 under versioned keys
//   - Put("CURRENT", key) commits the pointer with a DynamoDB conditional
//     write on a monotonically increasing version number
//   - Open("CURRENT") reads the latest committed pointer back
//
// Table schema:
//   - Partition key: base_uri (string) - the s3://bucket/prefix of the store
//   - Sort key: version (number) - monotonically increasing version
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name clio-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type CommitStore struct {
	store     *Store
	ddbClient DDBClient
	tableName string
	baseURI   string
}

// NewCommitStore creates an S3+DynamoDB commit store. baseURI should be the
// "s3://bucket/prefix" of the underlying store; it is the partition key for
// all commits of this collection.
func NewCommitStore(store *Store, ddbClient DDBClient, tableName, baseURI string) *CommitStore {
	return &CommitStore{
		store:     store,
		ddbClient: ddbClient,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

// Open opens a blob for reading. Opening CURRENT returns a blob whose
// content is the archive key of the latest committed version.
func (s *CommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if name == currentName {
		version, archiveKey, err := s.latestVersion(ctx)
		if err != nil {
			return nil, err
		}
		if version == 0 {
			return nil, blobstore.ErrNotFound
		}
		return &pointerBlob{content: []byte(archiveKey)}, nil
	}
	return s.store.Open(ctx, name)
}

// Put writes a blob. Putting CURRENT commits the pointer through DynamoDB;
// everything else goes straight to S3.
func (s *CommitStore) Put(ctx context.Context, name string, data []byte) error {
	if name == currentName {
		return s.commit(ctx, string(data))
	}
	return s.store.Put(ctx, name, data)
}

// Delete removes a blob from S3. The commit history is never deleted.
func (s *CommitStore) Delete(ctx context.Context, name string) error {
	return s.store.Delete(ctx, name)
}

// List lists S3 blobs with the given prefix.
func (s *CommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.store.List(ctx, prefix)
}

// latestVersion queries DynamoDB for the highest committed version.
func (s *CommitStore) latestVersion(ctx context.Context) (uint64, string, error) {
	resp, err := s.ddbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("query commit table: %w", err)
	}

	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("invalid version attribute in commit table")
	}
	keyAttr, ok := item["archive_key"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("invalid archive_key attribute in commit table")
	}

	var version uint64
	if _, err := fmt.Sscanf(versionAttr.Value, "%d", &version); err != nil {
		return 0, "", fmt.Errorf("parse version: %w", err)
	}

	return version, keyAttr.Value, nil
}

// commit writes version current+1 with a conditional put, so two publishers
// racing on the same version number cannot both win.
func (s *CommitStore) commit(ctx context.Context, archiveKey string) error {
	currentVersion, _, err := s.latestVersion(ctx)
	if err != nil {
		return err
	}

	newVersion := currentVersion + 1

	_, err = s.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri":    &types.AttributeValueMemberS{Value: s.baseURI},
			"version":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", newVersion)},
			"archive_key": &types.AttributeValueMemberS{Value: archiveKey},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentModification
		}
		return fmt.Errorf("commit version: %w", err)
	}

	return nil
}

// pointerBlob is an in-memory blob holding the CURRENT pointer content.
type pointerBlob struct {
	content []byte
}

func (b *pointerBlob) Close() error {
	return nil
}

func (b *pointerBlob) Size() int64 {
	return int64(len(b.content))
}

func (b *pointerBlob) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b.content)) {
		return 0, io.EOF
	}
	n := copy(p, b.content[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *pointerBlob) Bytes() ([]byte, error) {
	return b.content, nil
}
