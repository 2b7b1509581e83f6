package tasks

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeQueryRun      = "query:run"
	TypeLinkReconcile = "links:reconcile"
	TypeSessionSweep  = "sessions:sweep"
	TypeRefreshTick   = "refresh:tick"
)

// QueryRunPayload identifies a query to execute against the warehouse.
// RequestedBy is the user who triggered the run, or nil for scheduled runs.
type QueryRunPayload struct {
	QueryID     uuid.UUID `json:"query_id"`
	RequestedBy uuid.UUID `json:"requested_by"`
}

func NewQueryRunTask(payload QueryRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeQueryRun, data), nil
}

// LinkReconcilePayload scopes a reconciliation pass. A nil project ID means
// every project.
type LinkReconcilePayload struct {
	ProjectID uuid.UUID `json:"project_id"`
}

func NewLinkReconcileTask(payload LinkReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeLinkReconcile, data), nil
}

func NewSessionSweepTask() *asynq.Task {
	return asynq.NewTask(TypeSessionSweep, nil)
}

func NewRefreshTickTask() *asynq.Task {
	return asynq.NewTask(TypeRefreshTick, nil)
}
