// internal/store/dynamodb/dynamodb_store.go
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/avivl/lockkeeper/internal/lockservice"
	"github.com/avivl/lockkeeper/internal/observability"
	"github.com/avivl/lockkeeper/internal/store"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// StoreName the name of the store.
const StoreName string = "dynamodb"

// MaxTransactItems is the DynamoDB limit on items in one TransactWriteItems call.
const MaxTransactItems = 100

const (
	attrPK        = "PK"
	attrValue     = "Value"
	attrExpiresAt = "ExpiresAt"

	// A record is free when it does not exist or its ExpiresAt has passed.
	freeCondition = "attribute_not_exists(PK) OR (attribute_exists(ExpiresAt) AND ExpiresAt <= :now)"
	liveCondition = "attribute_exists(PK) AND (attribute_not_exists(ExpiresAt) OR ExpiresAt > :now)"

	tableCreateTimeout = 5 * time.Minute
)

// dynamoDBAPI is the subset of the DynamoDB client the store uses.
type dynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	UpdateTimeToLive(ctx context.Context, params *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// tableExistsWaiter defines the Wait method of dynamodb.TableExistsWaiter
type tableExistsWaiter interface {
	Wait(ctx context.Context, params *dynamodb.DescribeTableInput, maxWaitDur time.Duration, optFns ...func(*dynamodb.TableExistsWaiterOptions)) error
}

func init() {
	lockservice.Register(StoreName, newStore)
}

func newStore(ctx context.Context, options lockservice.Config, logger *observability.SLogger) (store.Store, error) {
	cfg, ok := options.(*DynamoDBConfig)
	if !ok {
		return nil, &store.InvalidConfigurationError{Store: StoreName, Config: options}
	}
	return NewStore(ctx, cfg, logger)
}

// Store implements the store.Store interface for DynamoDB
type Store struct {
	client    dynamoDBAPI
	waiter    tableExistsWaiter
	tableName string
	logger    *observability.SLogger
	config    *DynamoDBConfig
	now       func() time.Time
}

var _ store.Store = (*Store)(nil)

func (s *Store) GetConfig() store.StoreConfig {
	return s.config
}

// NewStore creates a new DynamoDB store and makes sure its table exists.
func NewStore(ctx context.Context, config *DynamoDBConfig, logger *observability.SLogger) (*Store, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}

	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	// Validate config
	if err := config.Validate(); err != nil {
		return nil, err
	}

	clientOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
	}

	if config.Profile != "" {
		clientOpts = append(clientOpts, awsconfig.WithSharedConfigProfile(config.Profile))
	}

	// Use static credentials if provided
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		clientOpts = append(clientOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, clientOpts...)
	if err != nil {
		logger.Errorf("Failed to load AWS config: %v", err)
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsConfig, func(o *dynamodb.Options) {
		if endpoint := config.BaseEndpoint(); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	s := newStoreWithClient(config, logger, client, dynamodb.NewTableExistsWaiter(client))

	if err := s.ensureTableExists(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func newStoreWithClient(config *DynamoDBConfig, logger *observability.SLogger, client dynamoDBAPI, waiter tableExistsWaiter) *Store {
	return &Store{
		client:    client,
		waiter:    waiter,
		tableName: config.Table,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// ensureTableExists checks if the DynamoDB table exists and creates it if it doesn't
func (s *Store) ensureTableExists(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
	if err == nil {
		return nil
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		s.logger.Errorf("Failed to describe table %s: %v", s.tableName, err)
		return store.Unreachable("describe table "+s.tableName, err)
	}

	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String(attrPK),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String(attrPK),
				KeyType:       types.KeyTypeHash,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		s.logger.Errorf("Failed to create table: %v", err)
		return fmt.Errorf("failed to create table: %w", err)
	}

	err = s.waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	}, tableCreateTimeout)
	if err != nil {
		s.logger.Errorf("Failed to wait for table creation: %v", err)
		return fmt.Errorf("failed to wait for table creation: %w", err)
	}

	// Expired records are also filtered on read, so a failure here only delays cleanup.
	_, err = s.client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(s.tableName),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			AttributeName: aws.String(attrExpiresAt),
			Enabled:       aws.Bool(true),
		},
	})
	if err != nil {
		s.logger.Warnf("Failed to enable TTL on table %s: %v", s.tableName, err)
	}

	return nil
}

func pkKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: key},
	}
}

func unixAttr(t time.Time) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(t.Unix(), 10)}
}

// expiryAttr rounds t up to a whole second so a record never expires before its TTL.
func expiryAttr(t time.Time) *types.AttributeValueMemberN {
	secs := t.Unix()
	if t.Nanosecond() > 0 {
		secs++
	}
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(secs, 10)}
}

func (s *Store) item(key, value string, ttl time.Duration) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		attrPK:    &types.AttributeValueMemberS{Value: key},
		attrValue: &types.AttributeValueMemberS{Value: value},
	}
	if ttl > 0 {
		item[attrExpiresAt] = expiryAttr(s.now().Add(ttl))
	}
	return item
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// SetNX writes the record only if no live record exists under key.
func (s *Store) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                s.item(key, value, ttl),
		ConditionExpression: aws.String(freeCondition),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": unixAttr(s.now()),
		},
	})
	if err == nil {
		return true, nil
	}
	if isConditionFailed(err) {
		return false, nil
	}
	s.logger.Errorf("Error putting item %s: %v", key, err)
	return false, store.Unreachable("dynamodb put item", err)
}

// MSetNX writes every record in one transaction, conditioned on each key being free.
func (s *Store) MSetNX(ctx context.Context, values map[string]string) (bool, error) {
	if len(values) == 0 {
		return true, nil
	}
	if len(values) > MaxTransactItems {
		return false, fmt.Errorf("dynamodb msetnx of %d keys: %w", len(values), store.ErrTooManyKeys)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := unixAttr(s.now())
	items := make([]types.TransactWriteItem, 0, len(keys))
	for _, k := range keys {
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(s.tableName),
				Item:                s.item(k, values[k], 0),
				ConditionExpression: aws.String(freeCondition),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":now": now,
				},
			},
		})
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err == nil {
		return true, nil
	}

	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) && isContention(canceled.CancellationReasons) {
		return false, nil
	}
	s.logger.Errorf("Error writing %d items in transaction: %v", len(items), err)
	return false, store.Unreachable("dynamodb transact write items", err)
}

// isContention reports whether a transaction was canceled because another writer holds a key.
func isContention(reasons []types.CancellationReason) bool {
	for _, r := range reasons {
		switch aws.ToString(r.Code) {
		case "ConditionalCheckFailed", "TransactionConflict":
			return true
		}
	}
	return false
}

// Expire sets ExpiresAt on a live record.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 pkKey(key),
		UpdateExpression:    aws.String("SET ExpiresAt = :exp"),
		ConditionExpression: aws.String(liveCondition),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":exp": expiryAttr(s.now().Add(ttl)),
			":now": unixAttr(s.now()),
		},
	})
	if err == nil {
		return true, nil
	}
	if isConditionFailed(err) {
		return false, nil
	}
	return false, store.Unreachable("dynamodb update item", err)
}

// Get performs a consistent read; a record past its ExpiresAt is reported as absent.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            pkKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", false, store.Unreachable("dynamodb get item", err)
	}
	if out == nil || len(out.Item) == 0 {
		return "", false, nil
	}

	if exp, ok := out.Item[attrExpiresAt].(*types.AttributeValueMemberN); ok {
		expiresAt, err := strconv.ParseInt(exp.Value, 10, 64)
		if err == nil && expiresAt <= s.now().Unix() {
			return "", false, nil
		}
	}

	value, ok := out.Item[attrValue].(*types.AttributeValueMemberS)
	if !ok {
		return "", true, nil
	}
	return value.Value, true, nil
}

// Delete removes each key with its own DeleteItem call.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.tableName),
			Key:       pkKey(key),
		})
		if err != nil {
			s.logger.Errorf("Error deleting item %s: %v", key, err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return store.Unreachable("dynamodb delete item", errors.Join(errs...))
	}
	return nil
}

// CompareAndDelete deletes key only while its Value equals expected.
func (s *Store) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 pkKey(key),
		ConditionExpression: aws.String("#v = :v"),
		ExpressionAttributeNames: map[string]string{
			"#v": attrValue,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: expected},
		},
	})
	if err == nil {
		return true, nil
	}
	if isConditionFailed(err) {
		return false, nil
	}
	return false, store.Unreachable("dynamodb conditional delete", err)
}

// Close is a no-op; the SDK client holds no long-lived connections that need closing.
func (s *Store) Close() error {
	s.logger.Info("dynamodb store closed")
	return nil
}
