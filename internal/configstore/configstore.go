// Package configstore persists named restart policies and the managed folder
// path so they survive supervisor restarts. Two backends exist: a JSON file
// and an embedded sqlite database, selected by DSN.
package configstore

import (
	"strings"

	"github.com/loykin/svcwatch/internal/policy"
)

// PersistedConfig is the durable state carried across supervisor restarts.
// Policies are keyed by stable service name, never by pid.
type PersistedConfig struct {
	Policies   map[string]policy.Policy `json:"auto_restart"`
	FolderPath string                   `json:"folder_path,omitempty"`
}

// Store is the durable policy backend. Implementations must be safe for
// concurrent use.
type Store interface {
	Load() (PersistedConfig, error)
	SavePolicy(name string, p policy.Policy) error
	DeletePolicy(name string) error
	PolicyByName(name string) (policy.Policy, bool)
	SaveFolderPath(path string) error
	Close() error
}

// Open selects a backend by DSN: "sqlite://<path>" opens the embedded
// database, anything else is treated as a JSON file path.
func Open(dsn string) (Store, error) {
	if rest, ok := strings.CutPrefix(dsn, "sqlite://"); ok {
		return OpenSQLite(rest)
	}
	return OpenFile(dsn)
}
