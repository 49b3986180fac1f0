package queue

import (
	"path/filepath"
	"strings"
)

// SimpleName reduces a raw queue name to a bare identifier.
// MSMQ reports names like "computername\private$\queuename" or
// "private$/queuename"; the simple name is the last path segment with the
// private$/public$ markers and any remaining '$' stripped.
func SimpleName(raw string) string {
	if raw == "" {
		return ""
	}
	name := strings.ReplaceAll(raw, `private$\`, "")
	name = strings.ReplaceAll(name, `public$\`, "")
	name = strings.ReplaceAll(name, "private$/", "")
	name = strings.ReplaceAll(name, "public$/", "")

	for _, sep := range []string{`\`, "/"} {
		if !strings.Contains(name, sep) {
			continue
		}
		parts := strings.Split(name, sep)
		picked := parts[len(parts)-1]
		for i := len(parts) - 1; i >= 0; i-- {
			p := parts[i]
			if p == "" {
				continue
			}
			if lp := strings.ToLower(p); lp == "private$" || lp == "public$" {
				continue
			}
			picked = p
			break
		}
		name = picked
	}

	name = strings.ReplaceAll(name, "$", "")
	return strings.TrimSpace(name)
}

// MatchExecutable links a queue to one of the given executable file names
// or paths. The match is the simple queue name compared case-insensitively
// against the executable's base name without extension. Ties resolve to the
// first match in enumeration order; callers must not rely on ordering among
// multiple equally-qualified candidates.
func MatchExecutable(queueName string, executables []string) (string, bool) {
	simple := SimpleName(queueName)
	if simple == "" {
		return "", false
	}
	simple = strings.TrimSuffix(simple, filepath.Ext(simple))
	for _, exe := range executables {
		base := filepath.Base(exe)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		if strings.EqualFold(stem, simple) {
			return exe, true
		}
	}
	return "", false
}
