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

// Tenant table keys.
const (
	TenantKeyPrefix   = "TENANT#"
	TenantMetadataKey = "METADATA"
)

// TenantStore answers whether a tenant may use the gateway.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: a lookup failure is returned as an error, never as true.
// - A missing tenant is (false, nil).
type TenantStore interface {
	IsTenantActive(ctx context.Context, tenantID string) (bool, error)
}

// TenantRecord is the metadata row of one tenant.
type TenantRecord struct {
	PK       string `dynamodbav:"PK" yaml:"-"`
	SK       string `dynamodbav:"SK" yaml:"-"`
	TenantID string `dynamodbav:"tenant_id,omitempty" yaml:"tenant_id" validate:"required"`
	Status   Status `dynamodbav:"status" yaml:"status" validate:"required,oneof=active inactive"`
	Plan     string `dynamodbav:"plan,omitempty" yaml:"plan,omitempty"`
}

// NewTenantRecord builds the metadata row for tenantID.
func NewTenantRecord(tenantID string, status Status) TenantRecord {
	return TenantRecord{
		PK:       TenantKeyPrefix + tenantID,
		SK:       TenantMetadataKey,
		TenantID: tenantID,
		Status:   status,
	}
}

// DynamoTenants is a TenantStore backed by a DynamoDB table.
type DynamoTenants struct {
	caller
	client DynamoAPI
}

// NewDynamoTenants creates a tenant store over table. A nil exec uses
// DefaultExecutor("tenants").
func NewDynamoTenants(client DynamoAPI, table string, exec *resilience.Executor) (*DynamoTenants, error) {
	if client == nil {
		return nil, errors.New("policystore: dynamodb client is required")
	}
	if table == "" {
		return nil, errors.New("policystore: tenant table name is required")
	}
	if exec == nil {
		exec = DefaultExecutor("tenants")
	}
	return &DynamoTenants{caller: caller{table: table, exec: exec}, client: client}, nil
}

func (s *DynamoTenants) IsTenantActive(ctx context.Context, tenantID string) (bool, error) {
	if tenantID == "" {
		return false, nil
	}
	var out *dynamodb.GetItemOutput
	err := s.call(ctx, "GetItem", func(ctx context.Context) error {
		var err error
		out, err = s.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(s.table),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: TenantKeyPrefix + tenantID},
				"SK": &types.AttributeValueMemberS{Value: TenantMetadataKey},
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
	var rec TenantRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return false, fmt.Errorf("%w: decode tenant %s: %v", ErrInvalidRecord, tenantID, err)
	}
	return rec.Status == StatusActive, nil
}

// PutTenant writes a tenant metadata row.
func (s *DynamoTenants) PutTenant(ctx context.Context, rec TenantRecord) error {
	plan := rec.Plan
	rec = NewTenantRecord(rec.TenantID, rec.Status)
	rec.Plan = plan
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("%w: encode tenant: %v", ErrInvalidRecord, err)
	}
	return s.call(ctx, "PutItem", func(ctx context.Context) error {
		_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(s.table), Item: item})
		return err
	})
}

// Ping describes the tenant table.
func (s *DynamoTenants) Ping(ctx context.Context) error {
	return s.call(ctx, "DescribeTable", func(ctx context.Context) error {
		_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
		return err
	})
}

// MemoryTenants is an in-process TenantStore.
type MemoryTenants struct {
	mu     sync.RWMutex
	status map[string]Status
}

// NewMemoryTenants creates a tenant store seeded with recs.
func NewMemoryTenants(recs ...TenantRecord) *MemoryTenants {
	m := &MemoryTenants{status: make(map[string]Status, len(recs))}
	for _, r := range recs {
		m.Set(r.TenantID, r.Status)
	}
	return m
}

// Set records the status of tenantID.
func (m *MemoryTenants) Set(tenantID string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[tenantID] = status
}

func (m *MemoryTenants) IsTenantActive(_ context.Context, tenantID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status[tenantID] == StatusActive, nil
}

// tenantEntity is the memo entity under which tenant answers are cached.
const tenantEntity = "status"

// CachedTenants memoizes another TenantStore's answers. Errors are never
// cached.
type CachedTenants struct {
	next TenantStore
	memo *cache.Memo
}

// NewCachedTenants wraps next with memo.
func NewCachedTenants(next TenantStore, memo *cache.Memo) *CachedTenants {
	return &CachedTenants{next: next, memo: memo}
}

func (c *CachedTenants) IsTenantActive(ctx context.Context, tenantID string) (bool, error) {
	if tenantID == "" {
		return false, nil
	}
	return c.memo.Do(ctx, tenantEntity, tenantID, func(ctx context.Context, _, tenant string) (bool, error) {
		return c.next.IsTenantActive(ctx, tenant)
	})
}

// Forget drops any cached answer for tenantID.
func (c *CachedTenants) Forget(ctx context.Context, tenantID string) error {
	if err := c.memo.Invalidate(ctx, tenantEntity, tenantID); err != nil && !errors.Is(err, cache.ErrNilCache) {
		return err
	}
	return nil
}
