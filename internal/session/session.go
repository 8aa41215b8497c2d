package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rahul/crazyagent/internal/action"
	"github.com/rahul/crazyagent/internal/agent"
	"github.com/rahul/crazyagent/internal/observability"
	"github.com/rahul/crazyagent/internal/store"
)

// NotUnderstoodMessage is shown when a command compiles to an empty plan.
const NotUnderstoodMessage = "Could not understand command. Please try again."

var (
	ErrEmptyCommand  = errors.New("empty command")
	ErrNotUnderstood = errors.New("could not understand command")
	ErrBusy          = errors.New("a command is already running")
)

// Phase is the lifecycle stage of the session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseParsing
	PhaseExecuting
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseParsing:
		return "parsing"
	case PhaseExecuting:
		return "executing"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// State is a snapshot of the session for display.
type State struct {
	Phase       Phase
	CurrentStep int
	TotalSteps  int
	Description string
	Message     string
}

// Journal records runs for later inspection.
type Journal interface {
	BeginRun(ctx context.Context, runID, command string, totalSteps int) error
	RecordStep(ctx context.Context, rec store.StepRecord) error
	FinishRun(ctx context.Context, runID, status, message string) error
}

type Option func(*Session)

func WithJournal(j Journal) Option {
	return func(s *Session) { s.journal = j }
}

func WithLogger(l *observability.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// Session accepts one instruction at a time, compiles it and executes the
// resulting plan. Callers must not submit while a run is in progress; doing
// so returns ErrBusy.
type Session struct {
	planner  *agent.PlanBuilder
	executor *action.Executor
	journal  Journal
	logger   *observability.Logger

	running atomic.Bool

	mu       sync.RWMutex
	state    State
	executed []action.StepExecution
}

func New(planner *agent.PlanBuilder, executor *action.Executor, opts ...Option) *Session {
	s := &Session{planner: planner, executor: executor}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Preview compiles a command without executing it.
func (s *Session) Preview(command string) agent.Plan {
	return s.planner.BuildPlan(command)
}

// InProgress reports whether a run is currently executing.
func (s *Session) InProgress() bool {
	return s.running.Load()
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Executed returns the step executions of the current or last run.
func (s *Session) Executed() []action.StepExecution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]action.StepExecution, len(s.executed))
	copy(out, s.executed)
	return out
}

// Reset returns the session to idle.
func (s *Session) Reset() error {
	if s.running.Load() {
		return ErrBusy
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{Phase: PhaseIdle}
	s.executed = nil
	return nil
}

// Submit compiles and executes command. onStep, if non-nil, receives every
// step execution in order. A command that compiles to an empty plan is
// rejected with ErrNotUnderstood before anything runs; otherwise the terminal
// result of the run is returned with a nil error.
func (s *Session) Submit(ctx context.Context, command string, onStep action.Observer) (result action.Result, err error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return action.Result{}, ErrEmptyCommand
	}
	if !s.running.CompareAndSwap(false, true) {
		return action.Result{}, ErrBusy
	}
	defer s.running.Store(false)

	runID := uuid.NewString()
	observability.BeginRun(runID, command)
	defer func() { observability.EndRun(err == nil && result.Succeeded()) }()

	s.mu.Lock()
	s.executed = nil
	s.state = State{Phase: PhaseParsing}
	s.mu.Unlock()

	plan := s.planner.BuildPlan(command)
	ctx = observability.WithRunID(ctx, runID)
	// Journal writes outlive cancellation so cancelled runs are still recorded.
	jctx := context.WithoutCancel(ctx)
	s.logger.LogPlan(runID, command, plan.Len(), string(plan.Intent()), plan.Degraded())

	if plan.IsEmpty() {
		s.setState(State{Phase: PhaseError, Message: NotUnderstoodMessage})
		return action.Failure(action.ReasonUnresolved, NotUnderstoodMessage), ErrNotUnderstood
	}

	total := plan.Len()
	s.setState(State{Phase: PhaseExecuting, TotalSteps: total, Description: plan.At(0).Description})
	observability.Progress(1, total, plan.At(0).Description)
	s.journalDo(func(j Journal) error { return j.BeginRun(jctx, runID, command, total) })

	start := time.Now()
	result = s.executor.ExecutePlan(ctx, plan, func(se action.StepExecution) {
		s.record(jctx, runID, plan, se)
		if onStep != nil {
			onStep(se)
		}
	})

	if result.Failed() {
		s.setState(State{Phase: PhaseError, TotalSteps: total, CurrentStep: s.State().CurrentStep, Message: result.Message})
	} else {
		s.setState(State{Phase: PhaseSuccess, TotalSteps: total, CurrentStep: total})
	}
	s.journalDo(func(j Journal) error { return j.FinishRun(jctx, runID, result.Status.String(), result.Message) })
	s.logger.LogResult(runID, result.Status.String(), result.Message, time.Since(start))

	return result, nil
}

func (s *Session) record(ctx context.Context, runID string, plan agent.Plan, se action.StepExecution) {
	s.mu.Lock()
	s.executed = append(s.executed, se)
	if !se.Result.Failed() && se.Index < plan.Len()-1 {
		next := plan.At(se.Index + 1)
		s.state = State{Phase: PhaseExecuting, CurrentStep: se.Index + 1, TotalSteps: plan.Len(), Description: next.Description}
		observability.Progress(se.Index+2, plan.Len(), next.Description)
	} else {
		s.state.CurrentStep = se.Index
	}
	s.mu.Unlock()

	s.logger.LogStep(runID, se.Index, string(se.Step.Action), se.Step.Target, se.Step.Description,
		se.Result.Status.String(), se.Result.Message)
	s.journalDo(func(j Journal) error {
		return j.RecordStep(ctx, store.StepRecord{
			RunID:       runID,
			Index:       se.Index,
			Action:      string(se.Step.Action),
			Target:      se.Step.Target,
			Value:       se.Step.Value,
			Description: se.Step.Description,
			Status:      se.Result.Status.String(),
			Message:     se.Result.Message,
		})
	})
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// journalDo runs fn against the journal. Journal errors never affect a run.
func (s *Session) journalDo(fn func(Journal) error) {
	if s.journal == nil {
		return
	}
	if err := fn(s.journal); err != nil {
		s.logger.LogFault("", "journal", err)
	}
}
