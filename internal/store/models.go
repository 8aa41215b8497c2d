package store

import "time"

// Run is one execution of a compiled plan.
type Run struct {
	ID         string    `json:"id"`
	Command    string    `json:"command"`
	TotalSteps int       `json:"total_steps"`
	Status     string    `json:"status"` // running, success, failure
	Message    string    `json:"message"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// StepRecord is the recorded outcome of one attempted step of a run.
type StepRecord struct {
	RunID       string `json:"run_id"`
	Index       int    `json:"index"`
	Action      string `json:"action"`
	Target      string `json:"target"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}
