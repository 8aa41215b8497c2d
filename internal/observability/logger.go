package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypePlan        EventType = "plan"
	EventTypeStep        EventType = "step"
	EventTypeResult      EventType = "result"
	EventTypePolicyCheck EventType = "policy_check"
	EventTypeFault       EventType = "fault"
	EventTypeHeartbeat   EventType = "heartbeat"
	EventTypeGateway     EventType = "gateway"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging. A nil *Logger discards everything.
type Logger struct {
	mu   sync.Mutex
	out  io.Writer
	file io.WriteCloser
}

// NewLogger returns a logger writing JSON lines to out. out may be nil.
func NewLogger(out io.Writer) *Logger {
	return &Logger{out: out}
}

// NewStdoutLogger writes events to stdout.
func NewStdoutLogger() *Logger {
	return NewLogger(os.Stdout)
}

// WithFile mirrors every event into a size-rotated file at path.
func (l *Logger) WithFile(path string, maxSizeMB, maxBackups int) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.file = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}
	return l
}

// Close closes the rotated log file if any.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Log emits a structured JSON event.
func (l *Logger) Log(evt Event) {
	if l == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"error": "failed to marshal event: %v"}`, err))
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out != nil {
		_, _ = l.out.Write(data)
	}
	if l.file != nil {
		_, _ = l.file.Write(data)
	}
}

// Helper methods for common events

func (l *Logger) LogPlan(runID, command string, steps int, intent string, degraded bool) {
	l.Log(Event{
		Type:  EventTypePlan,
		RunID: runID,
		Data: map[string]any{
			"command":  command,
			"steps":    steps,
			"intent":   intent,
			"degraded": degraded,
		},
	})
}

func (l *Logger) LogStep(runID string, index int, action, target, description, status, message string) {
	l.Log(Event{
		Type:  EventTypeStep,
		RunID: runID,
		Data: map[string]any{
			"index":       index,
			"action":      action,
			"target":      target,
			"description": description,
			"status":      status,
			"message":     message,
		},
	})
}

func (l *Logger) LogResult(runID, status, message string, elapsed time.Duration) {
	l.Log(Event{
		Type:  EventTypeResult,
		RunID: runID,
		Data: map[string]any{
			"status":     status,
			"message":    message,
			"elapsed_ms": elapsed.Milliseconds(),
		},
	})
}

func (l *Logger) LogPolicyCheck(runID, action, target, effect, reason string) {
	l.Log(Event{
		Type:  EventTypePolicyCheck,
		RunID: runID,
		Data: map[string]string{
			"action": action,
			"target": target,
			"effect": effect,
			"reason": reason,
		},
	})
}

func (l *Logger) LogFault(runID, description string, fault any) {
	l.Log(Event{
		Type:  EventTypeFault,
		RunID: runID,
		Data: map[string]string{
			"step":  description,
			"fault": fmt.Sprint(fault),
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

func (l *Logger) LogGateway(gateway, chatID, text string) {
	l.Log(Event{
		Type: EventTypeGateway,
		Data: map[string]string{
			"gateway": gateway,
			"chat_id": chatID,
			"text":    text,
		},
	})
}

type runIDKey struct{}

// WithRunID tags ctx with the identifier of the current plan run.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID returns the run identifier stored in ctx, if any.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
