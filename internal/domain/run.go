package domain

import "time"

// Trigger identifies what started a run.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

// Stage enumerates pipeline steps in execution order.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageDedup     Stage = "dedup"
	StageRelevance Stage = "relevance"
	StageSummarize Stage = "summarize"
	StageNotify    Stage = "notify"
)

// RunResult is the single observable record every run produces.
type RunResult struct {
	RunID      string
	Trigger    Trigger
	StartedAt  time.Time
	FinishedAt time.Time

	Fetched    int
	New        int
	Skipped    int
	Relevant   int
	Summarized int

	Sent          bool
	ArticlesCount int
	MessageID     string
	Message       string
	Err           error
}

// Duration reports how long the run took.
func (r RunResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
