package models

// ExecutionResult holds the outcome of running one validated query
// against a target database. Rows preserve result column order via
// Columns; duplicate column labels overwrite within a row map.
type ExecutionResult struct {
	Success   bool             `json:"success"`
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	ElapsedMs int64            `json:"elapsed_ms"`
}

// Truncated returns a copy of the result limited to at most n rows.
// The engine itself returns everything the driver streamed; callers
// apply the display cap.
func (r *ExecutionResult) Truncated(n int) *ExecutionResult {
	if n < 0 || len(r.Rows) <= n {
		return r
	}
	out := *r
	out.Rows = r.Rows[:n]
	return &out
}
