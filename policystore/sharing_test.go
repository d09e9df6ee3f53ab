package policystore

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/jonwraymond/gatewayauthz/cache"
)

func TestNewSharingGrant_Keys(t *testing.T) {
	g := NewSharingGrant("doc-1", "tenant-b", StatusActive)
	if g.PK != "RESOURCE#doc-1" || g.SK != "SHARED_TO#tenant-b" {
		t.Errorf("grant keys = %q/%q", g.PK, g.SK)
	}
}

func TestDynamoSharing_IsShared(t *testing.T) {
	ctx := context.Background()
	f := newFakeDynamo(t)
	s, err := NewDynamoSharing(newDynamoClient(t, f), "SharingTable", fastExecutor(nil))
	if err != nil {
		t.Fatalf("NewDynamoSharing() error = %v", err)
	}

	if err := s.Grant(ctx, NewSharingGrant("doc-1", "tenant-b", StatusActive)); err != nil {
		t.Fatalf("Grant() error = %v", err)
	}
	if err := s.Grant(ctx, NewSharingGrant("doc-2", "tenant-b", StatusInactive)); err != nil {
		t.Fatalf("Grant() error = %v", err)
	}

	tests := []struct {
		resource, tenant string
		want             bool
	}{
		{"doc-1", "tenant-b", true},
		{"doc-1", "tenant-c", false},
		{"doc-2", "tenant-b", false},
		{"doc-3", "tenant-b", false},
		{"", "tenant-b", false},
		{"doc-1", "", false},
	}
	for _, tc := range tests {
		got, err := s.IsShared(ctx, tc.resource, tc.tenant)
		if err != nil {
			t.Fatalf("IsShared(%q, %q) error = %v", tc.resource, tc.tenant, err)
		}
		if got != tc.want {
			t.Errorf("IsShared(%q, %q) = %v, want %v", tc.resource, tc.tenant, got, tc.want)
		}
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestDynamoSharing_ErrorIsNotShared(t *testing.T) {
	f := newFakeDynamo(t)
	s, err := NewDynamoSharing(newDynamoClient(t, f), "SharingTable", fastExecutor(nil))
	if err != nil {
		t.Fatal(err)
	}
	f.fail("GetItem", "AccessDeniedException")
	shared, err := s.IsShared(context.Background(), "doc-1", "tenant-b")
	if shared || !errors.Is(err, ErrUnavailable) {
		t.Errorf("IsShared() = %v, %v; want false, ErrUnavailable", shared, err)
	}
}

func TestMemorySharing(t *testing.T) {
	m := NewMemorySharing(NewSharingGrant("doc-1", "tenant-b", StatusActive))
	ctx := context.Background()
	if ok, _ := m.IsShared(ctx, "doc-1", "tenant-b"); !ok {
		t.Error("expected active grant to be shared")
	}
	m.Set("doc-1", "tenant-b", StatusInactive)
	if ok, _ := m.IsShared(ctx, "doc-1", "tenant-b"); ok {
		t.Error("expected inactive grant to be unshared")
	}
}

type countingSharing struct {
	calls  atomic.Int32
	shared bool
	err    error
}

func (c *countingSharing) IsShared(context.Context, string, string) (bool, error) {
	c.calls.Add(1)
	return c.shared, c.err
}

func TestCachedSharing(t *testing.T) {
	ctx := context.Background()

	t.Run("caches positive and negative answers", func(t *testing.T) {
		for _, shared := range []bool{true, false} {
			next := &countingSharing{shared: shared}
			c := NewCachedSharing(next, cache.NewMemo(cache.NewMemoryCache(), nil, cache.DefaultPolicy()))
			for range 3 {
				got, err := c.IsShared(ctx, "doc-1", "tenant-b")
				if err != nil || got != shared {
					t.Fatalf("IsShared() = %v, %v; want %v", got, err, shared)
				}
			}
			if n := next.calls.Load(); n != 1 {
				t.Errorf("shared=%v: backend calls = %d, want 1", shared, n)
			}
		}
	})

	t.Run("errors are not cached", func(t *testing.T) {
		next := &countingSharing{err: ErrUnavailable}
		c := NewCachedSharing(next, cache.NewMemo(cache.NewMemoryCache(), nil, cache.DefaultPolicy()))
		for range 2 {
			if _, err := c.IsShared(ctx, "doc-1", "tenant-b"); !errors.Is(err, ErrUnavailable) {
				t.Fatalf("IsShared() error = %v", err)
			}
		}
		if n := next.calls.Load(); n != 2 {
			t.Errorf("backend calls = %d, want 2", n)
		}
	})

	t.Run("revoke forces a reload", func(t *testing.T) {
		next := &countingSharing{shared: true}
		c := NewCachedSharing(next, cache.NewMemo(cache.NewMemoryCache(), nil, cache.DefaultPolicy()))
		_, _ = c.IsShared(ctx, "doc-1", "tenant-b")
		if err := c.Revoke(ctx, "doc-1", "tenant-b"); err != nil {
			t.Fatalf("Revoke() error = %v", err)
		}
		next.shared = false
		got, _ := c.IsShared(ctx, "doc-1", "tenant-b")
		if got {
			t.Error("expected reload after revoke")
		}
		if n := next.calls.Load(); n != 2 {
			t.Errorf("backend calls = %d, want 2", n)
		}
	})

	t.Run("nil memo passes through", func(t *testing.T) {
		next := &countingSharing{shared: true}
		c := NewCachedSharing(next, nil)
		_, _ = c.IsShared(ctx, "doc-1", "tenant-b")
		_, _ = c.IsShared(ctx, "doc-1", "tenant-b")
		if n := next.calls.Load(); n != 2 {
			t.Errorf("backend calls = %d, want 2", n)
		}
		if err := c.Revoke(ctx, "doc-1", "tenant-b"); err != nil {
			t.Errorf("Revoke() error = %v", err)
		}
	})
}
