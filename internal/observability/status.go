package observability

import (
	"sync"
	"time"
)

type Phase string

const (
	PhaseIdle      Phase = "IDLE"
	PhaseParsing   Phase = "PARSING"
	PhaseExecuting Phase = "EXECUTING"
)

// RunStatus describes the run in flight and the totals of finished runs.
type RunStatus struct {
	Phase       Phase
	RunID       string
	Command     string
	Step        int // 1-based step being executed, 0 while parsing
	TotalSteps  int
	Description string

	Finished int
	Failed   int
}

var (
	statusMu      sync.RWMutex
	status        = RunStatus{Phase: PhaseIdle}
	lastHeartbeat = time.Now()
)

// BeginRun marks a run as started and being parsed.
func BeginRun(runID, command string) {
	statusMu.Lock()
	defer statusMu.Unlock()
	status.Phase = PhaseParsing
	status.RunID = runID
	status.Command = command
	status.Step, status.TotalSteps, status.Description = 0, 0, ""
}

// Progress records that step (1-based) of total is being executed.
func Progress(step, total int, description string) {
	statusMu.Lock()
	defer statusMu.Unlock()
	status.Phase = PhaseExecuting
	status.Step = step
	status.TotalSteps = total
	status.Description = description
}

// EndRun returns to idle and counts the finished run.
func EndRun(succeeded bool) {
	statusMu.Lock()
	defer statusMu.Unlock()
	status = RunStatus{Phase: PhaseIdle, Finished: status.Finished + 1, Failed: status.Failed}
	if !succeeded {
		status.Failed++
	}
}

// Status returns a copy of the current run status.
func Status() RunStatus {
	statusMu.RLock()
	defer statusMu.RUnlock()
	return status
}

// Heartbeat updates the last heartbeat time.
func Heartbeat() {
	statusMu.Lock()
	defer statusMu.Unlock()
	lastHeartbeat = time.Now()
}

func LastHeartbeat() time.Time {
	statusMu.RLock()
	defer statusMu.RUnlock()
	return lastHeartbeat
}
