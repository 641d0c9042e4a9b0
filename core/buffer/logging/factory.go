package logging

import (
	"fmt"
	"strings"

	"github.com/kilianp07/hems/core/factory"
)

// Backend pairs the event log with the mode state store of one backend.
type Backend struct {
	Events LogStore
	State  StateStore
}

// Close releases the event log.
func (b Backend) Close() error {
	if b.Events == nil {
		return nil
	}
	return b.Events.Close()
}

type fileConf struct {
	Path string `json:"path"`
	// StatePath defaults to the event log path with a .state.json suffix.
	StatePath  string `json:"state_path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

func (c fileConf) statePath() string {
	if c.StatePath != "" {
		return c.StatePath
	}
	return strings.TrimSuffix(c.Path, ".jsonl") + ".state.json"
}

var backends = factory.NewRegistry[Backend]("buffer store")

func init() {
	_ = backends.Register("memory", func(map[string]any) (Backend, error) {
		m := NewMemoryStore()
		return Backend{Events: m, State: m}, nil
	})
	_ = backends.Register("jsonl", func(conf map[string]any) (Backend, error) {
		var c fileConf
		if err := decodeFile(conf, &c); err != nil {
			return Backend{}, err
		}
		s, err := NewJSONLStore(c.Path)
		if err != nil {
			return Backend{}, err
		}
		return Backend{Events: s, State: NewFileStateStore(c.statePath())}, nil
	})
	_ = backends.Register("rotating", func(conf map[string]any) (Backend, error) {
		var c fileConf
		if err := decodeFile(conf, &c); err != nil {
			return Backend{}, err
		}
		s, err := NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
		if err != nil {
			return Backend{}, err
		}
		return Backend{Events: s, State: NewFileStateStore(c.statePath())}, nil
	})
	_ = backends.Register("sqlite", func(conf map[string]any) (Backend, error) {
		var c fileConf
		if err := decodeFile(conf, &c); err != nil {
			return Backend{}, err
		}
		s, err := NewSQLiteStore(c.Path)
		if err != nil {
			return Backend{}, err
		}
		return Backend{Events: s, State: s}, nil
	})
}

func decodeFile(conf map[string]any, c *fileConf) error {
	if err := factory.Decode(conf, c); err != nil {
		return err
	}
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// NewBackend builds the configured store. An empty type keeps events in
// memory.
func NewBackend(cfg factory.ModuleConfig) (Backend, error) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	return backends.Create(cfg)
}

// BackendTypes lists the registered store types.
func BackendTypes() []string { return backends.Types() }
