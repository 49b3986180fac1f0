package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/svcwatch/internal/history"
)

func TestSQLiteSinkSend(t *testing.T) {
	sink, err := New(":memory:")
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()

	events := []history.Event{
		{
			Type:       history.EventBreach,
			OccurredAt: now,
			Record: history.Record{
				Name:       "orders.jar",
				OldPID:     4242,
				Cause:      "cpu",
				CPUPercent: 97.5,
				MemoryMB:   812,
			},
		},
		{
			Type:       history.EventRestartSuccess,
			OccurredAt: now.Add(time.Second),
			Record: history.Record{
				Name:   "orders.jar",
				OldPID: 4242,
				NewPID: 4300,
				Cause:  "cpu",
			},
		},
		{
			Type:       history.EventRestartFailure,
			OccurredAt: now.Add(2 * time.Second),
			Record: history.Record{
				Name:   "billing.jar",
				OldPID: 5000,
				Cause:  "queue",
				Err:    "start billing.jar: no such file",
			},
		},
	}
	for _, e := range events {
		require.NoError(t, sink.Send(ctx, e))
	}

	var count int
	require.NoError(t, sink.db.QueryRow(`SELECT COUNT(*) FROM restart_history`).Scan(&count))
	assert.Equal(t, 3, count)

	var event, cause, errText string
	var newPID int32
	require.NoError(t, sink.db.QueryRow(
		`SELECT event, cause, new_pid, COALESCE(error, '') FROM restart_history WHERE name = 'billing.jar'`).
		Scan(&event, &cause, &newPID, &errText))
	assert.Equal(t, "restart_failure", event)
	assert.Equal(t, "queue", cause)
	assert.Equal(t, int32(0), newPID)
	assert.Contains(t, errText, "no such file")
}

func TestSQLiteSinkEmptyDSN(t *testing.T) {
	_, err := New("  ")
	assert.Error(t, err)
}
