package task

import (
	"time"
)

type State string

const (
	StateQueued     State = "queued"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateError      State = "error"
)

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateError
}

type ErrorKind string

const (
	ErrorKindNetwork  ErrorKind = "network_error"
	ErrorKindParse    ErrorKind = "parse_error"
	ErrorKindAnalysis ErrorKind = "analysis_error"
	ErrorKindTimeout  ErrorKind = "timeout"
)

// Result holds the structured output of a completed analysis.
type Result struct {
	Title    string
	Keywords []string
	Summary  string
	Hashtags []string
	FullText string
}

type ErrorDetail struct {
	Kind    ErrorKind
	Message string
}

// Task tracks one URL's processing lifecycle. Instances are owned by the
// Registry; everything handed out is a copy.
type Task struct {
	ID           string
	URL          string
	State        State
	ProgressHint string
	CreatedAt    time.Time
	StartedAt    *time.Time
	FinishedAt   *time.Time
	Result       *Result
	ErrorDetail  *ErrorDetail
	SavePath     string
}

func (t *Task) clone() Task {
	c := *t
	if t.StartedAt != nil {
		startedAt := *t.StartedAt
		c.StartedAt = &startedAt
	}
	if t.FinishedAt != nil {
		finishedAt := *t.FinishedAt
		c.FinishedAt = &finishedAt
	}
	if t.Result != nil {
		result := *t.Result
		result.Keywords = append([]string(nil), t.Result.Keywords...)
		result.Hashtags = append([]string(nil), t.Result.Hashtags...)
		c.Result = &result
	}
	if t.ErrorDetail != nil {
		detail := *t.ErrorDetail
		c.ErrorDetail = &detail
	}
	return c
}
