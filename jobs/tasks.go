package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskConsolidateRefresh schedules the consolidation refresh routine.
	TaskConsolidateRefresh = "consol:refresh"
)

// ConsolidateRefreshPayload configures the scope of the consolidation refresh job.
type ConsolidateRefreshPayload struct {
	Period                    string `json:"period"`
	Method                    string `json:"method,omitempty"`
	EliminateIntercompany     bool   `json:"eliminate_intercompany"`
	CalculateMinorityInterest bool   `json:"calculate_minority_interest"`
}

// NewConsolidateRefreshTask creates an Asynq task for rebuilding a consolidation run.
func NewConsolidateRefreshTask(payload ConsolidateRefreshPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskConsolidateRefresh, body, asynq.Queue(QueueDefault)), nil
}
