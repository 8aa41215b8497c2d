package session

import (
	"fmt"
	"strings"

	"github.com/rahul/crazyagent/internal/action"
	"github.com/rahul/crazyagent/internal/agent"
)

// FormatPlan renders a plan as a numbered list, one step per line.
func FormatPlan(plan agent.Plan) string {
	if plan.IsEmpty() {
		return NotUnderstoodMessage
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Plan (%d steps)", plan.Len())
	if plan.Degraded() {
		b.WriteString(" [partial]")
	}
	b.WriteString(":\n")
	for i, step := range plan.All() {
		fmt.Fprintf(&b, "%2d. %-14s %s\n", i+1, step.Action, step.Description)
	}
	return b.String()
}

// FormatExecution renders one step execution as a single status line.
func FormatExecution(se action.StepExecution) string {
	mark := "✓"
	switch se.Result.Status {
	case action.StatusFailure:
		mark = "✗"
	case action.StatusInProgress:
		mark = "…"
	}
	return fmt.Sprintf("%s %d. %s: %s", mark, se.Index+1, se.Step.Description, se.Result.Message)
}

// FormatState renders a progress summary such as "Step 3/14: Waiting for app to load".
func FormatState(st State) string {
	switch st.Phase {
	case PhaseExecuting:
		return fmt.Sprintf("Step %d/%d: %s", st.CurrentStep+1, st.TotalSteps, st.Description)
	case PhaseSuccess:
		return "All steps completed successfully"
	case PhaseError:
		return "Error: " + st.Message
	default:
		return st.Phase.String()
	}
}
