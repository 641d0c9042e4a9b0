package factory

import (
	"errors"
	"strings"
	"testing"
	"time"
)

type sample struct {
	A     int
	Every time.Duration
}

type sampleConf struct {
	A     int           `json:"a"`
	Every time.Duration `json:"every"`
}

// Test registry registration and instantiation using Decode.
func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*sample]("sample")
	if err := reg.Register("s", func(conf map[string]any) (*sample, error) {
		var c sampleConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &sample{A: c.A, Every: c.Every}, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	inst, err := reg.Create(ModuleConfig{Type: "s", Conf: map[string]any{"a": "3", "every": "15m"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inst.A != 3 || inst.Every != 15*time.Minute {
		t.Fatalf("unexpected instance %+v", inst)
	}
}

// Test duplicate registration and unknown type errors.
func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]("number")
	if err := reg.Register("x", func(map[string]any) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("x", func(map[string]any) (int, error) { return 2, nil }); err == nil {
		t.Fatal("expected duplicate error")
	}
	if err := reg.Register("z", nil); err == nil {
		t.Fatal("expected nil factory error")
	}
	_, err := reg.Create(ModuleConfig{Type: "y"})
	if err == nil || !strings.Contains(err.Error(), "unknown number type") {
		t.Fatalf("expected unknown type error, got %v", err)
	}
}

func TestRegistry_WrapsFactoryError(t *testing.T) {
	boom := errors.New("boom")
	reg := NewRegistry[int]("number")
	_ = reg.Register("bad", func(map[string]any) (int, error) { return 0, boom })
	_ = reg.Register("good", func(map[string]any) (int, error) { return 1, nil })
	if _, err := reg.Create(ModuleConfig{Type: "bad"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if got := reg.Types(); len(got) != 2 || got[0] != "bad" || got[1] != "good" {
		t.Fatalf("unexpected types %v", got)
	}
}
