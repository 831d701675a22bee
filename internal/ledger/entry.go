package ledger

import "time"

// Status values recorded for a request.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Entry is the audit record of one media request.
type Entry struct {
	RequestID   string    `json:"request_id"`
	Route       string    `json:"route"`
	Operation   string    `json:"operation,omitempty"`
	Status      string    `json:"status"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	Strategy    string    `json:"strategy,omitempty"`
	Inputs      []string  `json:"inputs"`
	Artifact    string    `json:"artifact,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// LatencyMillis is the request's wall time.
func (e Entry) LatencyMillis() int64 {
	if e.CompletedAt.IsZero() {
		return 0
	}
	return e.CompletedAt.Sub(e.CreatedAt).Milliseconds()
}
