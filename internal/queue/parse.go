package queue

import (
	"encoding/json"
	"fmt"
	"strings"
)

// powershellQueue matches the object shape the MSMQ scripts emit.
type powershellQueue struct {
	Name         string `json:"Name"`
	MessageCount int64  `json:"MessageCount"`
	Path         string `json:"Path"`
}

// parseQueueJSON decodes ConvertTo-Json output. A single result comes back
// as a bare object, multiple results as an array.
func parseQueueJSON(out string) ([]Queue, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}
	var raw []powershellQueue
	if strings.HasPrefix(out, "{") {
		var one powershellQueue
		if err := json.Unmarshal([]byte(out), &one); err != nil {
			return nil, fmt.Errorf("parse queue output: %w", err)
		}
		raw = append(raw, one)
	} else if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return nil, fmt.Errorf("parse queue output: %w", err)
	}
	queues := make([]Queue, 0, len(raw))
	for _, q := range raw {
		queues = append(queues, Queue{Name: q.Name, MessageCount: q.MessageCount, Path: q.Path})
	}
	return queues, nil
}
