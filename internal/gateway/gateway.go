package gateway

import (
	"context"
	"errors"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rahul/crazyagent/internal/action"
	"github.com/rahul/crazyagent/internal/agent"
	"github.com/rahul/crazyagent/internal/observability"
	"github.com/rahul/crazyagent/internal/session"
)

// Messenger defines the interface for communication gateways.
type Messenger interface {
	// Start runs the message loop until ctx is cancelled.
	Start(ctx context.Context) error
	// Send sends a message to a specific chat
	Send(chatID string, text string) error
	// Stop gracefully shuts down the gateway
	Stop() error
}

// Runner executes instructions. *session.Session satisfies it.
type Runner interface {
	Submit(ctx context.Context, command string, onStep action.Observer) (action.Result, error)
	Preview(command string) agent.Plan
	Reset() error
}

const (
	helpText = "Send me an instruction such as \"Open WhatsApp and send message to Crazy\".\n" +
		"/plan <instruction> shows the steps without running them.\n" +
		"/reset clears the last run."
	busyText = "A command is already running. Please wait for it to finish."
)

// Handler turns chat messages into session calls and renders the replies.
type Handler struct {
	runner    Runner
	logger    *observability.Logger
	sanitizer *bluemonday.Policy
}

func NewHandler(runner Runner, logger *observability.Logger) *Handler {
	return &Handler{
		runner:    runner,
		logger:    logger,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Sanitize strips markup from incoming text.
func (h *Handler) Sanitize(text string) string {
	return strings.TrimSpace(html.UnescapeString(h.sanitizer.Sanitize(text)))
}

// Handle processes one message from chatID and returns the reply.
func (h *Handler) Handle(ctx context.Context, gateway, chatID, text string) string {
	text = h.Sanitize(text)
	h.logger.LogGateway(gateway, chatID, text)

	command, arg, _ := strings.Cut(text, " ")
	switch strings.ToLower(command) {
	case "", "/start", "/help":
		return helpText
	case "/plan":
		return session.FormatPlan(h.runner.Preview(strings.TrimSpace(arg)))
	case "/reset":
		if err := h.runner.Reset(); err != nil {
			return busyText
		}
		return "Ready."
	}

	var lines []string
	result, err := h.runner.Submit(ctx, text, func(se action.StepExecution) {
		lines = append(lines, session.FormatExecution(se))
	})
	switch {
	case errors.Is(err, session.ErrBusy):
		return busyText
	case errors.Is(err, session.ErrNotUnderstood):
		return session.NotUnderstoodMessage
	case errors.Is(err, session.ErrEmptyCommand):
		return helpText
	case err != nil:
		return "Error: " + err.Error()
	}

	if result.Failed() {
		lines = append(lines, "Failed: "+result.Message)
	} else {
		lines = append(lines, "Done: "+result.Message)
	}
	return strings.Join(lines, "\n")
}
