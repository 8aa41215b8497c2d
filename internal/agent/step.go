package agent

import (
	"iter"
	"slices"
)

// ActionType is the closed set of atomic automation actions.
type ActionType string

const (
	ActionOpenApp      ActionType = "open_app"
	ActionFindElement  ActionType = "find_element"
	ActionClick        ActionType = "click"
	ActionTypeText     ActionType = "type_text"
	ActionSearch       ActionType = "search"
	ActionWait         ActionType = "wait"
	ActionNavigateBack ActionType = "navigate_back"
)

// Step represents a single atomic instruction in an execution plan.
// The meaning of Target depends on Action: a package id for open_app, a
// millisecond count for wait, the text to look for otherwise.
type Step struct {
	Action      ActionType `json:"action"`
	Target      string     `json:"target"`
	Value       string     `json:"value,omitempty"`
	Description string     `json:"description"`
}

// Intent is the classified purpose of an instruction.
type Intent string

const (
	IntentNone        Intent = "none"
	IntentSendMessage Intent = "send_message"
	IntentSearch      Intent = "search"
)

// Plan is an ordered, immutable sequence of steps compiled from one command.
type Plan struct {
	command  string
	intent   Intent
	degraded bool
	steps    []Step
}

// NewPlan copies steps into a new plan.
func NewPlan(command string, intent Intent, steps []Step) Plan {
	return Plan{command: command, intent: intent, steps: slices.Clone(steps)}
}

func (p Plan) Command() string { return p.command }
func (p Plan) Intent() Intent  { return p.intent }
func (p Plan) Len() int        { return len(p.steps) }
func (p Plan) IsEmpty() bool   { return len(p.steps) == 0 }

// Degraded reports whether an intent was detected but its template could not
// be expanded, leaving only the open and wait prefix.
func (p Plan) Degraded() bool { return p.degraded }

// At returns the step at index i.
func (p Plan) At(i int) Step { return p.steps[i] }

// Steps returns a copy of the steps.
func (p Plan) Steps() []Step { return slices.Clone(p.steps) }

// All iterates over the steps in order with their 0-based index.
func (p Plan) All() iter.Seq2[int, Step] {
	return func(yield func(int, Step) bool) {
		for i, s := range p.steps {
			if !yield(i, s) {
				return
			}
		}
	}
}

// Entities holds the facts extracted from one instruction. Empty strings mean
// the fact could not be found.
type Entities struct {
	AppName        string
	PackageID      string
	ContactName    string
	MessageContent string
	SearchQuery    string
	SendMessage    bool
	Search         bool
}
