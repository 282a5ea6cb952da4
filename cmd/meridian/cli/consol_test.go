package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/meridian-fin/meridian/jobs"
)

func TestTriggerRefreshEnqueuesTask(t *testing.T) {
	mr := miniredis.RunT(t)

	cli, err := NewConsolOpsCLI(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cli.Close() })

	info, err := cli.TriggerRefresh(context.Background(), jobs.ConsolidateRefreshPayload{
		Period:                "2024-Q4",
		EliminateIntercompany: true,
	})
	require.NoError(t, err)
	require.Equal(t, jobs.TaskConsolidateRefresh, info.Type)
	require.Equal(t, jobs.QueueDefault, info.Queue)

	var payload jobs.ConsolidateRefreshPayload
	require.NoError(t, json.Unmarshal(info.Payload, &payload))
	require.Equal(t, "2024-Q4", payload.Period)
	require.True(t, payload.EliminateIntercompany)
}

func TestTriggerRefreshRequiresClient(t *testing.T) {
	var cli *ConsolOpsCLI
	_, err := cli.TriggerRefresh(context.Background(), jobs.ConsolidateRefreshPayload{Period: "2024-Q4"})
	require.Error(t, err)
}
