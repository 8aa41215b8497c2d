package action

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rahul/crazyagent/internal/agent"
	"github.com/rahul/crazyagent/internal/governance"
	"github.com/rahul/crazyagent/internal/observability"
	"github.com/rahul/crazyagent/internal/uitree"
)

const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultWait        = 1000 * time.Millisecond
)

// Delay suspends the caller for d or until ctx is done.
type Delay func(ctx context.Context, d time.Duration) error

// Sleep is the default Delay.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Source returns the UI tree provider that is currently active, or nil.
type Source interface {
	Current() uitree.Provider
}

// Observer is notified once per attempted step, right after it completes.
type Observer func(StepExecution)

type Option func(*Executor)

func WithPolicy(p governance.PolicyEngine) Option {
	return func(e *Executor) { e.policy = p }
}

func WithLogger(l *observability.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

func WithDelay(d Delay) Option {
	return func(e *Executor) { e.delay = d }
}

// WithRetry sets the attempt budget and the pause between attempts used by
// find, click and type steps.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(e *Executor) {
		if maxAttempts > 0 {
			e.maxAttempts = maxAttempts
		}
		if delay >= 0 {
			e.retryDelay = delay
		}
	}
}

// WithDefaultWait sets the pause used when a wait step has an unparsable target.
func WithDefaultWait(d time.Duration) Option {
	return func(e *Executor) { e.defaultWait = d }
}

// Executor executes plan steps against the UI tree provider.
type Executor struct {
	source   Source
	launcher uitree.Launcher
	policy   governance.PolicyEngine
	logger   *observability.Logger
	delay    Delay

	maxAttempts int
	retryDelay  time.Duration
	defaultWait time.Duration
}

func NewExecutor(source Source, launcher uitree.Launcher, opts ...Option) *Executor {
	e := &Executor{
		source:      source,
		launcher:    launcher,
		delay:       Sleep,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		defaultWait: DefaultWait,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) provider() uitree.Provider {
	if e.source == nil {
		return nil
	}
	return e.source.Current()
}

func serviceNotEnabled() Result {
	return Failure(ReasonUnavailable, "service not enabled")
}

// ExecutePlan runs the steps strictly in order and stops at the first
// failure, which becomes the result of the run. observer is called once per
// attempted step.
func (e *Executor) ExecutePlan(ctx context.Context, plan agent.Plan, observer Observer) Result {
	if e.provider() == nil {
		return serviceNotEnabled()
	}

	for i, step := range plan.All() {
		result := e.ExecuteStep(ctx, step)
		if observer != nil {
			observer(StepExecution{Index: i, Step: step, Result: result})
		}
		if result.Failed() {
			return result
		}
	}

	return Success("All steps completed successfully")
}

// ExecuteStep executes a single step. Faults raised by the provider are
// converted into Unexpected failures.
func (e *Executor) ExecuteStep(ctx context.Context, step agent.Step) (result Result) {
	p := e.provider()
	if p == nil {
		return serviceNotEnabled()
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.LogFault(observability.RunID(ctx), step.Description, r)
			result = Failure(ReasonUnexpected, fmt.Sprintf("Error: %v", r))
		}
	}()

	if ctx.Err() != nil {
		return cancelled()
	}

	if denied, ok := e.checkPolicy(ctx, step); !ok {
		return denied
	}

	switch step.Action {
	case agent.ActionOpenApp:
		return e.openApp(ctx, step.Target)
	case agent.ActionFindElement:
		return e.findElement(ctx, p, step.Target)
	case agent.ActionClick:
		return e.clickElement(ctx, p, step.Target)
	case agent.ActionTypeText:
		return e.typeText(ctx, p, step.Target, step.Value)
	case agent.ActionSearch:
		return e.search(ctx, p, step.Value)
	case agent.ActionWait:
		return e.wait(ctx, step.Target)
	case agent.ActionNavigateBack:
		return e.navigateBack(ctx, p)
	default:
		return Failure(ReasonUnexpected, fmt.Sprintf("Error: unsupported action %q", step.Action))
	}
}

func (e *Executor) checkPolicy(ctx context.Context, step agent.Step) (Result, bool) {
	if e.policy == nil {
		return Result{}, true
	}
	res, err := e.policy.Evaluate(ctx, governance.Request{
		Action: string(step.Action),
		Target: step.Target,
		Value:  step.Value,
	})
	if err != nil {
		return Failure(ReasonUnexpected, fmt.Sprintf("Error: policy evaluation failed: %v", err)), false
	}
	if res.Effect == governance.EffectDeny {
		e.logger.LogPolicyCheck(observability.RunID(ctx), string(step.Action), step.Target, string(res.Effect), res.Reason)
		return Failure(ReasonDenied, res.Reason), false
	}
	return Result{}, true
}

// call returns a context for a single provider call. Cancellation is only
// honored between calls, so a dispatched call always runs to completion.
func call(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func cancelled() Result {
	return Failure(ReasonCancelled, "Execution cancelled")
}

func unexpected(err error) Result {
	return Failure(ReasonUnexpected, fmt.Sprintf("Error: %v", err))
}

// isCancellation reports whether err stems from the run itself being
// cancelled, as opposed to a provider timing out on its own.
func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

// poll runs lookup until it yields a node, pausing between attempts. It
// returns uitree.ErrNoMatch once the attempt budget is spent.
func (e *Executor) poll(ctx context.Context, lookup func(context.Context) (uitree.Node, error)) (uitree.Node, error) {
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		node, err := lookup(call(ctx))
		if err == nil && node != nil {
			return node, nil
		}
		if err != nil && !errors.Is(err, uitree.ErrNoMatch) {
			return nil, err
		}

		if attempt < e.maxAttempts-1 {
			if err := e.delay(ctx, e.retryDelay); err != nil {
				return nil, err
			}
		}
	}
	return nil, uitree.ErrNoMatch
}

// lookupFailure maps a poll error onto a Result.
func lookupFailure(ctx context.Context, err error, notFound string) Result {
	switch {
	case errors.Is(err, uitree.ErrNoMatch):
		return Failure(ReasonNotFound, notFound)
	case isCancellation(ctx, err):
		return cancelled()
	default:
		return unexpected(err)
	}
}

func (e *Executor) openApp(ctx context.Context, packageID string) Result {
	if e.launcher == nil {
		return Failure(ReasonUnavailable, "app launcher not available")
	}
	err := e.launcher.LaunchApp(call(ctx), packageID)
	switch {
	case err == nil:
		return Success("Opened app")
	case errors.Is(err, uitree.ErrNotInstalled):
		return Failure(ReasonActionFailed, fmt.Sprintf("App not installed: %s", packageID))
	default:
		return Failure(ReasonActionFailed, fmt.Sprintf("Failed to open app: %v", err))
	}
}

func (e *Executor) findElement(ctx context.Context, p uitree.Provider, text string) Result {
	_, err := e.poll(ctx, func(ctx context.Context) (uitree.Node, error) {
		return p.FindByText(ctx, text, false)
	})
	if err != nil {
		return lookupFailure(ctx, err, fmt.Sprintf("Element not found: %s", text))
	}
	return Success(fmt.Sprintf("Found element: %s", text))
}

func (e *Executor) clickElement(ctx context.Context, p uitree.Provider, text string) Result {
	node, err := e.poll(ctx, func(ctx context.Context) (uitree.Node, error) {
		return p.FindByText(ctx, text, false)
	})
	if err != nil {
		return lookupFailure(ctx, err, fmt.Sprintf("Element not found to click: %s", text))
	}

	clicked, err := p.Click(call(ctx), node)
	if err != nil {
		return unexpected(err)
	}
	if !clicked {
		return Failure(ReasonActionFailed, fmt.Sprintf("Failed to click: %s", text))
	}
	return Success(fmt.Sprintf("Clicked: %s", text))
}

func (e *Executor) typeText(ctx context.Context, p uitree.Provider, fieldHint, text string) Result {
	node, err := e.poll(ctx, func(ctx context.Context) (uitree.Node, error) {
		return p.FindEditable(ctx, fieldHint)
	})
	if err != nil {
		return lookupFailure(ctx, err, fmt.Sprintf("Input field not found: %s", fieldHint))
	}

	typed, err := p.SetText(call(ctx), node, text)
	if err != nil {
		return unexpected(err)
	}
	if !typed {
		return Failure(ReasonActionFailed, "Failed to type text")
	}
	return Success(fmt.Sprintf("Typed text: %s", text))
}

// search makes a single attempt, unlike the polling steps.
func (e *Executor) search(ctx context.Context, p uitree.Provider, query string) Result {
	field, err := p.FindEditable(call(ctx), "search")
	if err != nil || field == nil {
		if err != nil && !errors.Is(err, uitree.ErrNoMatch) {
			return unexpected(err)
		}
		return Failure(ReasonNotFound, "Search field not found")
	}

	typed, err := p.SetText(call(ctx), field, query)
	if err != nil {
		return unexpected(err)
	}
	if !typed {
		return Failure(ReasonActionFailed, "Failed to search")
	}
	return Success(fmt.Sprintf("Searched for: %s", query))
}

func (e *Executor) wait(ctx context.Context, target string) Result {
	d := e.defaultWait
	if ms, err := strconv.ParseInt(target, 10, 64); err == nil {
		d = time.Duration(ms) * time.Millisecond
	}
	if err := e.delay(ctx, d); err != nil {
		return cancelled()
	}
	return Success(fmt.Sprintf("Waited %dms", d.Milliseconds()))
}

func (e *Executor) navigateBack(ctx context.Context, p uitree.Provider) Result {
	ok, err := p.PressBack(call(ctx))
	if err != nil {
		return unexpected(err)
	}
	if !ok {
		return Failure(ReasonActionFailed, "Failed to navigate back")
	}
	return Success("Navigated back")
}
