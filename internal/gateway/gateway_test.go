package gateway

import (
	"context"
	"testing"

	"github.com/rahul/crazyagent/internal/action"
	"github.com/rahul/crazyagent/internal/agent"
	"github.com/rahul/crazyagent/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	submitted []string
	result    action.Result
	err       error
	resetErr  error
	resets    int
}

func (f *fakeRunner) Submit(ctx context.Context, command string, onStep action.Observer) (action.Result, error) {
	f.submitted = append(f.submitted, command)
	if f.err != nil {
		return action.Result{}, f.err
	}
	onStep(action.StepExecution{
		Index:  0,
		Step:   agent.Step{Action: agent.ActionOpenApp, Target: "com.whatsapp", Description: "Opening WhatsApp"},
		Result: action.Success("Opened app"),
	})
	return f.result, nil
}

func (f *fakeRunner) Preview(command string) agent.Plan {
	return agent.NewPlanBuilder(nil).BuildPlan(command)
}

func (f *fakeRunner) Reset() error {
	f.resets++
	return f.resetErr
}

func TestHandle_SubmitsSanitizedInstruction(t *testing.T) {
	runner := &fakeRunner{result: action.Success("All steps completed successfully")}
	h := NewHandler(runner, nil)

	reply := h.Handle(context.Background(), "telegram", "42", `<b>Open WhatsApp</b> and send message to Crazy saying "see you & bye"`)

	require.Len(t, runner.submitted, 1)
	assert.Equal(t, `Open WhatsApp and send message to Crazy saying "see you & bye"`, runner.submitted[0])
	assert.Equal(t, "✓ 1. Opening WhatsApp: Opened app\nDone: All steps completed successfully", reply)
}

func TestHandle_ReportsFailure(t *testing.T) {
	runner := &fakeRunner{result: action.Failure(action.ReasonNotFound, "Element not found: Send")}
	reply := NewHandler(runner, nil).Handle(context.Background(), "telegram", "42", "Open WhatsApp and send message to Crazy")
	assert.Contains(t, reply, "Failed: Element not found: Send")
}

func TestHandle_SessionErrors(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{session.ErrBusy, busyText},
		{session.ErrNotUnderstood, session.NotUnderstoodMessage},
		{session.ErrEmptyCommand, helpText},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			runner := &fakeRunner{err: tt.err}
			assert.Equal(t, tt.want, NewHandler(runner, nil).Handle(context.Background(), "telegram", "1", "whatever"))
		})
	}
}

func TestHandle_Commands(t *testing.T) {
	runner := &fakeRunner{}
	h := NewHandler(runner, nil)
	ctx := context.Background()

	assert.Equal(t, helpText, h.Handle(ctx, "telegram", "1", "/start"))
	assert.Equal(t, helpText, h.Handle(ctx, "telegram", "1", "  "))

	plan := h.Handle(ctx, "telegram", "1", "/plan Open YouTube and search for Despacito")
	assert.Contains(t, plan, "Plan (9 steps):")
	assert.Contains(t, plan, "Playing video")

	assert.Equal(t, "Ready.", h.Handle(ctx, "telegram", "1", "/reset"))
	runner.resetErr = session.ErrBusy
	assert.Equal(t, busyText, h.Handle(ctx, "telegram", "1", "/reset"))
	assert.Equal(t, 2, runner.resets)
	assert.Empty(t, runner.submitted)
}

func TestTelegramGateway_AllowedChats(t *testing.T) {
	open := &TelegramGateway{}
	assert.True(t, open.accepts(7))

	restricted := &TelegramGateway{allowed: map[int64]bool{7: true}}
	assert.True(t, restricted.accepts(7))
	assert.False(t, restricted.accepts(8))
}
