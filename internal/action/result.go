package action

import (
	"errors"
	"fmt"

	"github.com/rahul/crazyagent/internal/agent"
)

// Status is the variant of a Result.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusInProgress
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusInProgress:
		return "in_progress"
	default:
		return "unknown"
	}
}

// Reason classifies a failure.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonUnresolved
	ReasonNotFound
	ReasonActionFailed
	ReasonUnavailable
	ReasonUnexpected
	ReasonCancelled
	ReasonDenied
)

var (
	ErrUnresolved   = errors.New("command not understood")
	ErrNotFound     = errors.New("element not found")
	ErrActionFailed = errors.New("action rejected")
	ErrUnavailable  = errors.New("ui tree provider unavailable")
	ErrUnexpected   = errors.New("unexpected fault")
	ErrCancelled    = errors.New("execution cancelled")
	ErrDenied       = errors.New("denied by policy")
)

var reasonErrors = map[Reason]error{
	ReasonUnresolved:   ErrUnresolved,
	ReasonNotFound:     ErrNotFound,
	ReasonActionFailed: ErrActionFailed,
	ReasonUnavailable:  ErrUnavailable,
	ReasonUnexpected:   ErrUnexpected,
	ReasonCancelled:    ErrCancelled,
	ReasonDenied:       ErrDenied,
}

// Result is the outcome of executing a step or a whole plan. It is one of
// Success(message), Failure(error) or InProgress(status).
type Result struct {
	Status  Status
	Message string
	Reason  Reason
}

func Success(message string) Result {
	if message == "" {
		message = "Action completed successfully"
	}
	return Result{Status: StatusSuccess, Message: message}
}

func Failure(reason Reason, message string) Result {
	return Result{Status: StatusFailure, Message: message, Reason: reason}
}

func InProgress(status string) Result {
	return Result{Status: StatusInProgress, Message: status}
}

func (r Result) Succeeded() bool { return r.Status == StatusSuccess }
func (r Result) Failed() bool    { return r.Status == StatusFailure }

// Err returns nil unless r is a failure, in which case the error wraps the
// sentinel for its reason.
func (r Result) Err() error {
	if !r.Failed() {
		return nil
	}
	if sentinel, ok := reasonErrors[r.Reason]; ok {
		return fmt.Errorf("%w: %s", sentinel, r.Message)
	}
	return errors.New(r.Message)
}

func (r Result) String() string {
	return fmt.Sprintf("%s: %s", r.Status, r.Message)
}

// StepExecution pairs a step with its result and 0-based position.
type StepExecution struct {
	Index  int
	Step   agent.Step
	Result Result
}
