package policystore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/jonwraymond/gatewayauthz/resilience"
)

// DefaultTenantIndex is the secondary index on tenant_id.
const DefaultTenantIndex = "TenantIdIndex"

// DynamoAPI is the subset of the DynamoDB client used by this package.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoConfig configures a DynamoStore.
type DynamoConfig struct {
	// Table is the AuthPolicyTable name. Required.
	Table string

	// TenantIndex is the GSI used by ListByTenant.
	// Default: TenantIdIndex
	TenantIndex string

	// ConsistentRead requests strongly consistent GetItem reads.
	ConsistentRead bool

	// Executor wraps every call. Default: DefaultExecutor("policystore").
	Executor *resilience.Executor
}

// DefaultExecutor returns the resilience stack used for store calls: a 2s
// per-attempt timeout, three attempts on throttling, and a circuit breaker.
func DefaultExecutor(name string) *resilience.Executor {
	return resilience.NewExecutor(
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:         name,
			MaxFailures:  5,
			ResetTimeout: 15 * time.Second,
		})),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 25 * time.Millisecond,
			MaxDelay:     250 * time.Millisecond,
			Jitter:       true,
		})),
		resilience.WithTimeout(2*time.Second),
	)
}

// caller runs table operations through an executor.
type caller struct {
	table string
	exec  *resilience.Executor
}

func (c caller) call(ctx context.Context, op string, fn func(context.Context) error) error {
	err := c.exec.Execute(ctx, func(ctx context.Context) error {
		return classify(fn(ctx))
	})
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, op, c.table, err)
	}
	return nil
}

// DynamoStore is a Store backed by DynamoDB.
type DynamoStore struct {
	caller
	client DynamoAPI
	config DynamoConfig
}

// NewDynamoStore creates a DynamoDB-backed store.
func NewDynamoStore(client DynamoAPI, config DynamoConfig) (*DynamoStore, error) {
	if client == nil {
		return nil, errors.New("policystore: dynamodb client is required")
	}
	if config.Table == "" {
		return nil, errors.New("policystore: table name is required")
	}
	if config.TenantIndex == "" {
		config.TenantIndex = DefaultTenantIndex
	}
	if config.Executor == nil {
		config.Executor = DefaultExecutor("policystore")
	}
	return &DynamoStore{
		caller: caller{table: config.Table, exec: config.Executor},
		client: client,
		config: config,
	}, nil
}

// retryableCodes are DynamoDB error codes worth another attempt.
var retryableCodes = map[string]bool{
	"ProvisionedThroughputExceededException": true,
	"ThrottlingException":                    true,
	"RequestLimitExceeded":                   true,
	"InternalServerError":                    true,
	"ServiceUnavailable":                     true,
}

// classify marks non-retryable API errors permanent so the executor stops.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && !retryableCodes[apiErr.ErrorCode()] {
		return resilience.Permanent(err)
	}
	return err
}

func emailKey(email string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"email": &types.AttributeValueMemberS{Value: NormalizeEmail(email)},
	}
}

func (s *DynamoStore) GetUser(ctx context.Context, email string) (*UserPolicyRecord, error) {
	var out *dynamodb.GetItemOutput
	err := s.call(ctx, "GetItem", func(ctx context.Context) error {
		var err error
		out, err = s.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName:      aws.String(s.config.Table),
			Key:            emailKey(email),
			ConsistentRead: aws.Bool(s.config.ConsistentRead),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var rec UserPolicyRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidRecord, email, err)
	}
	return &rec, nil
}

func (s *DynamoStore) PutUser(ctx context.Context, rec *UserPolicyRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	c := clone(rec)
	c.Email = NormalizeEmail(c.Email)
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrInvalidRecord, c.Email, err)
	}
	return s.call(ctx, "PutItem", func(ctx context.Context) error {
		_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(s.config.Table),
			Item:      item,
		})
		return err
	})
}

func (s *DynamoStore) DeleteUser(ctx context.Context, email string) error {
	return s.call(ctx, "DeleteItem", func(ctx context.Context) error {
		_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.config.Table),
			Key:       emailKey(email),
		})
		return err
	})
}

// ListByTenant queries the tenant index. It is an administrative path; the
// authorization hot path only uses GetUser.
func (s *DynamoStore) ListByTenant(ctx context.Context, tenantID string) ([]*UserPolicyRecord, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.config.Table),
		IndexName:              aws.String(s.config.TenantIndex),
		KeyConditionExpression: aws.String("tenant_id = :tenant"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":tenant": &types.AttributeValueMemberS{Value: tenantID},
		},
	}

	var recs []*UserPolicyRecord
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		var page *dynamodb.QueryOutput
		err := s.call(ctx, "Query", func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			return nil, err
		}
		var batch []*UserPolicyRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("%w: decode tenant %s: %v", ErrInvalidRecord, tenantID, err)
		}
		recs = append(recs, batch...)
	}
	return recs, nil
}

// Ping describes the table.
func (s *DynamoStore) Ping(ctx context.Context) error {
	return s.call(ctx, "DescribeTable", func(ctx context.Context) error {
		_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(s.config.Table),
		})
		return err
	})
}
