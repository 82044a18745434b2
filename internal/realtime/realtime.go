package realtime

import "time"

// ProgressEvent is the wire shape published while a batch moves through the
// pipeline, letting an operator UI follow long imports without polling.
type ProgressEvent struct {
	BatchID  string    `json:"batch_id"`
	Stage    string    `json:"stage"`
	Status   string    `json:"status"`
	Total    int       `json:"total"`
	Accepted int       `json:"accepted"`
	Errors   int       `json:"errors"`
	Skipped  int       `json:"skipped"`
	Message  string    `json:"message,omitempty"`
	At       time.Time `json:"at"`
}

const (
	StageStaged       = "staged"
	StageProcessed    = "processed"
	StageMaterialized = "materialized"
	StageRetried      = "retried"
)
