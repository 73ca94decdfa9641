package pipeline

import "time"

// Report is the aggregated result of one full-pipeline run. It is created at
// run start, fully populated by run end, and then handed to the caller; the
// orchestrator keeps no history across runs.
type Report struct {
	RunID     string    `json:"run_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	DataCollection bool               `json:"data_collection"`
	Training       bool               `json:"training"`
	Evaluation     map[string]float64 `json:"evaluation"`
	Deployment     bool               `json:"deployment"`

	// Success is the AND of all four stage outcomes (evaluation counts as
	// truthy iff its map is non-empty). A stage disabled in config keeps its
	// falsy zero value, so disabling any stage makes Success unreachable.
	// That is deliberate: a run counts as successful only when the whole
	// declared chain actually executed end to end.
	Success bool `json:"success"`
}

func (r *Report) finish() {
	r.EndTime = time.Now()
	r.Success = r.DataCollection && r.Training && len(r.Evaluation) > 0 && r.Deployment
}
