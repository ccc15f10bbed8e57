package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

// DynamoDB key constants for the single-table design.
const (
	pkPrefix = "MEDIA#"
	skMeta   = "META"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
// *dynamodb.Client satisfies it.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoStore implements MediaStore using AWS DynamoDB.
type DynamoStore struct {
	client    DynamoAPI
	tableName string
}

// Compile-time interface check.
var _ MediaStore = (*DynamoStore)(nil)

// NewDynamoStore creates a DynamoStore for the given table.
// The client should be initialized from the shared AWS config.
func NewDynamoStore(client DynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
	}
}

// TableName returns the backing table.
func (s *DynamoStore) TableName() string { return s.tableName }

// --- Internal helpers ---

// mediaPK returns the partition key for a media record.
func mediaPK(id string) string {
	return pkPrefix + id
}

func (s *DynamoStore) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: mediaPK(id)},
		"SK": &types.AttributeValueMemberS{Value: skMeta},
	}
}

// scanAll scans the table with an optional filter, following pagination.
func (s *DynamoStore) scanAll(ctx context.Context, filter string, names map[string]string, values map[string]types.AttributeValue) ([]*Media, error) {
	input := &dynamodb.ScanInput{
		TableName: &s.tableName,
	}
	expr := "SK = :sk"
	if filter != "" {
		expr += " AND " + filter
	}
	input.FilterExpression = aws.String(expr)
	input.ExpressionAttributeValues = map[string]types.AttributeValue{
		":sk": &types.AttributeValueMemberS{Value: skMeta},
	}
	for k, v := range values {
		input.ExpressionAttributeValues[k] = v
	}
	if len(names) > 0 {
		input.ExpressionAttributeNames = names
	}

	var out []*Media

	// Handle pagination: DynamoDB returns up to 1MB per Scan call.
	for {
		result, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("Scan %s: %w", s.tableName, err)
		}
		for _, item := range result.Items {
			var m Media
			if err := attributevalue.UnmarshalMap(item, &m); err != nil {
				return nil, fmt.Errorf("unmarshal scanned item: %w", err)
			}
			out = append(out, &m)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return out, nil
}

// update runs an UpdateItem that must hit an existing record.
func (s *DynamoStore) update(ctx context.Context, id, expr string, names map[string]string, values map[string]types.AttributeValue) error {
	input := &dynamodb.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       s.key(id),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: values,
	}
	if len(names) > 0 {
		input.ExpressionAttributeNames = names
	}

	_, err := s.client.UpdateItem(ctx, input)
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("UpdateItem PK=%s: %w", mediaPK(id), err)
	}
	return nil
}

func unixTime(t time.Time) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", t.Unix())}
}

// --- Media operations ---

func (s *DynamoStore) PutMedia(ctx context.Context, m *Media) error {
	if m.ID == "" {
		return fmt.Errorf("put media: empty id")
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		return fmt.Errorf("put media %s: marshal: %w", m.ID, err)
	}
	for k, v := range s.key(m.ID) {
		item[k] = v
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put media %s: PutItem: %w", m.ID, err)
	}

	log.Debug().Str("mediaId", m.ID).Str("path", m.Path).Msg("Media persisted to DynamoDB")
	return nil
}

func (s *DynamoStore) GetMedia(ctx context.Context, id string) (*Media, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key:       s.key(id),
	})
	if err != nil {
		return nil, fmt.Errorf("get media %s: %w", id, err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var m Media
	if err := attributevalue.UnmarshalMap(result.Item, &m); err != nil {
		return nil, fmt.Errorf("get media %s: unmarshal: %w", id, err)
	}
	m.ID = id
	return &m, nil
}

func (s *DynamoStore) FindByPath(ctx context.Context, path string) (*Media, error) {
	items, err := s.scanAll(ctx, "#p = :p",
		map[string]string{"#p": "path"}, // "path" is a DynamoDB reserved word
		map[string]types.AttributeValue{":p": &types.AttributeValueMemberS{Value: path}},
	)
	if err != nil {
		return nil, fmt.Errorf("find media by path %s: %w", path, err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

func (s *DynamoStore) UpdateAnalysis(ctx context.Context, id, description string, tags []string) error {
	tagsAV, err := attributevalue.Marshal(append([]string{}, tags...))
	if err != nil {
		return fmt.Errorf("update analysis %s: marshal tags: %w", id, err)
	}
	now := time.Now().UTC()

	err = s.update(ctx, id,
		"SET #d = :d, #t = :t, #a = :a, #at = :at, #u = :u",
		map[string]string{
			"#d":  "description",
			"#t":  "tags",
			"#a":  "analyzed",
			"#at": "analyzedAt",
			"#u":  "updatedAt",
		},
		map[string]types.AttributeValue{
			":d":  &types.AttributeValueMemberS{Value: description},
			":t":  tagsAV,
			":a":  &types.AttributeValueMemberBOOL{Value: true},
			":at": unixTime(now),
			":u":  unixTime(now),
		},
	)
	if err != nil {
		return fmt.Errorf("update analysis %s: %w", id, err)
	}

	log.Debug().Str("mediaId", id).Int("tags", len(tags)).Msg("Media analysis stored")
	return nil
}

func (s *DynamoStore) RenameMedia(ctx context.Context, id, newPath, newFilename string) error {
	err := s.update(ctx, id,
		"SET #p = :p, #f = :f, #u = :u",
		map[string]string{"#p": "path", "#f": "filename", "#u": "updatedAt"},
		map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: newPath},
			":f": &types.AttributeValueMemberS{Value: newFilename},
			":u": unixTime(time.Now().UTC()),
		},
	)
	if err != nil {
		return fmt.Errorf("rename media %s: %w", id, err)
	}

	log.Debug().Str("mediaId", id).Str("filename", newFilename).Msg("Media rename stored")
	return nil
}

func (s *DynamoStore) ListUnanalyzed(ctx context.Context, limit int) ([]*Media, error) {
	items, err := s.scanAll(ctx, "#a = :f", map[string]string{"#a": "analyzed"},
		map[string]types.AttributeValue{":f": &types.AttributeValueMemberBOOL{Value: false}},
	)
	if err != nil {
		return nil, fmt.Errorf("list unanalyzed media: %w", err)
	}
	return oldestUnanalyzed(items, limit), nil
}

func (s *DynamoStore) ListMedia(ctx context.Context) ([]*Media, error) {
	items, err := s.scanAll(ctx, "", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	sortByPath(items)
	return items, nil
}
