package configstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/loykin/svcwatch/internal/policy"
)

// sqliteStore keeps policies and settings in an embedded database. One row
// per service name; the restarting flag is runtime-only and never stored.
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite returns a sqlite-backed store at path (":memory:" works for
// tests). The schema is created if missing.
func OpenSQLite(path string) (Store, error) {
	if path == "" {
		return nil, errors.New("configstore: empty sqlite path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("configstore: open sqlite %s: %w", path, err)
	}
	s := &sqliteStore{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqliteStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS restart_policies(
			name TEXT PRIMARY KEY,
			enabled BOOLEAN NOT NULL,
			cpu_threshold REAL NOT NULL,
			memory_threshold_mb REAL NOT NULL,
			queue_threshold INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS settings(
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("configstore: ensure schema: %w", err)
		}
	}
	return nil
}

func (s *sqliteStore) Load() (PersistedConfig, error) {
	cfg := PersistedConfig{Policies: map[string]policy.Policy{}}

	rows, err := s.db.Query(`SELECT name, enabled, cpu_threshold, memory_threshold_mb, queue_threshold FROM restart_policies`)
	if err != nil {
		return cfg, fmt.Errorf("configstore: load policies: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			name string
			p    policy.Policy
		)
		if err := rows.Scan(&name, &p.Enabled, &p.CPUThreshold, &p.MemoryThresholdMB, &p.QueueThreshold); err != nil {
			return cfg, fmt.Errorf("configstore: scan policy: %w", err)
		}
		p.ServiceName = name
		cfg.Policies[name] = p
	}
	if err := rows.Err(); err != nil {
		return cfg, fmt.Errorf("configstore: load policies: %w", err)
	}

	var folder string
	err = s.db.QueryRow(`SELECT value FROM settings WHERE key = 'folder_path'`).Scan(&folder)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return cfg, fmt.Errorf("configstore: load folder path: %w", err)
	}
	cfg.FolderPath = folder
	return cfg, nil
}

func (s *sqliteStore) SavePolicy(name string, p policy.Policy) error {
	if name == "" {
		return errors.New("configstore: empty service name")
	}
	_, err := s.db.Exec(`
		INSERT INTO restart_policies(name, enabled, cpu_threshold, memory_threshold_mb, queue_threshold)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			enabled = excluded.enabled,
			cpu_threshold = excluded.cpu_threshold,
			memory_threshold_mb = excluded.memory_threshold_mb,
			queue_threshold = excluded.queue_threshold;`,
		name, p.Enabled, p.CPUThreshold, p.MemoryThresholdMB, p.QueueThreshold)
	if err != nil {
		return fmt.Errorf("configstore: save policy %s: %w", name, err)
	}
	return nil
}

func (s *sqliteStore) DeletePolicy(name string) error {
	if _, err := s.db.Exec(`DELETE FROM restart_policies WHERE name = ?`, name); err != nil {
		return fmt.Errorf("configstore: delete policy %s: %w", name, err)
	}
	return nil
}

func (s *sqliteStore) PolicyByName(name string) (policy.Policy, bool) {
	var p policy.Policy
	err := s.db.QueryRow(`
		SELECT enabled, cpu_threshold, memory_threshold_mb, queue_threshold
		FROM restart_policies WHERE name = ?`, name).
		Scan(&p.Enabled, &p.CPUThreshold, &p.MemoryThresholdMB, &p.QueueThreshold)
	if err != nil {
		return policy.Policy{}, false
	}
	p.ServiceName = name
	return p, true
}

func (s *sqliteStore) SaveFolderPath(path string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings(key, value) VALUES('folder_path', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value;`, path)
	if err != nil {
		return fmt.Errorf("configstore: save folder path: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }
