package policystore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jonwraymond/gatewayauthz/cache"
	"github.com/jonwraymond/gatewayauthz/resilience"
)

// Sharing key prefixes.
const (
	ResourceKeyPrefix = "RESOURCE#"
	SharedToKeyPrefix = "SHARED_TO#"
)

// SharingStore answers whether a resource is shared with a tenant.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: a lookup failure is returned as an error, never as true.
type SharingStore interface {
	IsShared(ctx context.Context, resourceID, tenantID string) (bool, error)
}

// SharingGrant is one row of the sharing table.
type SharingGrant struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	ResourceID string `dynamodbav:"resource_id,omitempty"`
	TenantID   string `dynamodbav:"tenant_id,omitempty"`
	Status     Status `dynamodbav:"status"`
}

// NewSharingGrant builds the row sharing resourceID with tenantID.
func NewSharingGrant(resourceID, tenantID string, status Status) SharingGrant {
	return SharingGrant{
		PK:         ResourceKeyPrefix + resourceID,
		SK:         SharedToKeyPrefix + tenantID,
		ResourceID: resourceID,
		TenantID:   tenantID,
		Status:     status,
	}
}

// DynamoSharing is a SharingStore backed by a DynamoDB table.
type DynamoSharing struct {
	caller
	client DynamoAPI
}

// NewDynamoSharing creates a sharing store over table. A nil exec uses
// DefaultExecutor("sharing").
func NewDynamoSharing(client DynamoAPI, table string, exec *resilience.Executor) (*DynamoSharing, error) {
	if client == nil {
		return nil, errors.New("policystore: dynamodb client is required")
	}
	if table == "" {
		return nil, errors.New("policystore: sharing table name is required")
	}
	if exec == nil {
		exec = DefaultExecutor("sharing")
	}
	return &DynamoSharing{caller: caller{table: table, exec: exec}, client: client}, nil
}

func (s *DynamoSharing) IsShared(ctx context.Context, resourceID, tenantID string) (bool, error) {
	if resourceID == "" || tenantID == "" {
		return false, nil
	}
	var out *dynamodb.GetItemOutput
	err := s.call(ctx, "GetItem", func(ctx context.Context) error {
		var err error
		out, err = s.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(s.table),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: ResourceKeyPrefix + resourceID},
				"SK": &types.AttributeValueMemberS{Value: SharedToKeyPrefix + tenantID},
			},
		})
		return err
	})
	if err != nil {
		return false, err
	}
	if len(out.Item) == 0 {
		return false, nil
	}
	var grant SharingGrant
	if err := attributevalue.UnmarshalMap(out.Item, &grant); err != nil {
		return false, fmt.Errorf("%w: decode grant %s: %v", ErrInvalidRecord, resourceID, err)
	}
	return grant.Status == StatusActive, nil
}

// Grant writes a sharing row.
func (s *DynamoSharing) Grant(ctx context.Context, g SharingGrant) error {
	item, err := attributevalue.MarshalMap(g)
	if err != nil {
		return fmt.Errorf("%w: encode grant: %v", ErrInvalidRecord, err)
	}
	return s.call(ctx, "PutItem", func(ctx context.Context) error {
		_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(s.table), Item: item})
		return err
	})
}

// Ping describes the sharing table.
func (s *DynamoSharing) Ping(ctx context.Context) error {
	return s.call(ctx, "DescribeTable", func(ctx context.Context) error {
		_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
		return err
	})
}

// MemorySharing is an in-process SharingStore.
type MemorySharing struct {
	mu     sync.RWMutex
	grants map[[2]string]Status
}

// NewMemorySharing creates a sharing store seeded with grants.
func NewMemorySharing(grants ...SharingGrant) *MemorySharing {
	m := &MemorySharing{grants: make(map[[2]string]Status)}
	for _, g := range grants {
		m.Set(g.ResourceID, g.TenantID, g.Status)
	}
	return m
}

// Set records the sharing status of resourceID for tenantID.
func (m *MemorySharing) Set(resourceID, tenantID string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants[[2]string{resourceID, tenantID}] = status
}

func (m *MemorySharing) IsShared(_ context.Context, resourceID, tenantID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.grants[[2]string{resourceID, tenantID}] == StatusActive, nil
}

// CachedSharing memoizes another SharingStore's answers. Errors are never
// cached, so a transient failure is retried on the next call.
type CachedSharing struct {
	next SharingStore
	memo *cache.Memo
}

// NewCachedSharing wraps next with memo. Use cache.DefaultPolicy for the
// 60-second decision TTL.
func NewCachedSharing(next SharingStore, memo *cache.Memo) *CachedSharing {
	return &CachedSharing{next: next, memo: memo}
}

func (c *CachedSharing) IsShared(ctx context.Context, resourceID, tenantID string) (bool, error) {
	return c.memo.Do(ctx, resourceID, tenantID, c.next.IsShared)
}

// Revoke drops any cached answer for (resourceID, tenantID).
func (c *CachedSharing) Revoke(ctx context.Context, resourceID, tenantID string) error {
	if err := c.memo.Invalidate(ctx, resourceID, tenantID); err != nil && !errors.Is(err, cache.ErrNilCache) {
		return err
	}
	return nil
}
