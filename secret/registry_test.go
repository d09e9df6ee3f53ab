package secret

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestRegistry_RegisterAndCreate(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register("stub", func(_ context.Context, cfg map[string]any) (Provider, error) {
		return &stubProvider{name: cfg["name"].(string)}, nil
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	p, err := reg.Create(context.Background(), "stub", map[string]any{"name": "stub"})
	if err != nil || p.Name() != "stub" {
		t.Fatalf("Create() = %v, %v", p, err)
	}
}

func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry()
	factory := func(context.Context, map[string]any) (Provider, error) { return &stubProvider{}, nil }

	if err := reg.Register(" ", factory); err == nil {
		t.Error("expected error for blank name")
	}
	if err := reg.Register("x", nil); err == nil {
		t.Error("expected error for nil factory")
	}
	_ = reg.Register("x", factory)
	if err := reg.Register("x", factory); err == nil {
		t.Error("expected duplicate registration error")
	}
	if _, err := reg.Create(context.Background(), "missing", nil); !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("Create(missing) error = %v", err)
	}
}

func TestNewDefaultRegistry(t *testing.T) {
	reg := NewDefaultRegistry()
	if got, want := reg.List(), []string{"awssm", "env"}; !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
	p, err := reg.Create(context.Background(), "env", nil)
	if err != nil || p.Name() != "env" {
		t.Fatalf("Create(env) = %v, %v", p, err)
	}
}
