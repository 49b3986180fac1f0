package configstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/loykin/svcwatch/internal/policy"
)

// fileStore keeps the whole config in one JSON document and rewrites it
// atomically on every mutation.
type fileStore struct {
	mu   sync.Mutex
	path string
}

// OpenFile returns a JSON-file backed store at path. The file is created on
// first save; a missing file loads as an empty config.
func OpenFile(path string) (Store, error) {
	if path == "" {
		return nil, errors.New("configstore: empty file path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("configstore: create dir %s: %w", dir, err)
		}
	}
	return &fileStore{path: path}, nil
}

func (f *fileStore) Load() (PersistedConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadLocked()
}

func (f *fileStore) loadLocked() (PersistedConfig, error) {
	cfg := PersistedConfig{Policies: map[string]policy.Policy{}}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("configstore: read %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("configstore: parse %s: %w", f.path, err)
	}
	if cfg.Policies == nil {
		cfg.Policies = map[string]policy.Policy{}
	}
	return cfg, nil
}

func (f *fileStore) saveLocked(cfg PersistedConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("configstore: marshal: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("configstore: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("configstore: rename %s: %w", tmp, err)
	}
	return nil
}

func (f *fileStore) SavePolicy(name string, p policy.Policy) error {
	if name == "" {
		return errors.New("configstore: empty service name")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, err := f.loadLocked()
	if err != nil {
		return err
	}
	cfg.Policies[name] = p
	return f.saveLocked(cfg)
}

func (f *fileStore) DeletePolicy(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, err := f.loadLocked()
	if err != nil {
		return err
	}
	if _, ok := cfg.Policies[name]; !ok {
		return nil
	}
	delete(cfg.Policies, name)
	return f.saveLocked(cfg)
}

func (f *fileStore) PolicyByName(name string) (policy.Policy, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, err := f.loadLocked()
	if err != nil {
		return policy.Policy{}, false
	}
	p, ok := cfg.Policies[name]
	return p, ok
}

func (f *fileStore) SaveFolderPath(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, err := f.loadLocked()
	if err != nil {
		return err
	}
	cfg.FolderPath = path
	return f.saveLocked(cfg)
}

func (f *fileStore) Close() error { return nil }
