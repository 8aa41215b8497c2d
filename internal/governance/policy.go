package governance

import (
	"context"
	"fmt"
	"regexp"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request describes a plan step about to be dispatched.
type Request struct {
	Action string
	Target string
	Value  string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine evaluates steps against a set of rules.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DefaultPolicyEngine is a basic implementation of PolicyEngine.
type DefaultPolicyEngine struct {
	DeniedActions  map[string]bool
	DeniedPackages map[string]bool
	DeniedText     []*regexp.Regexp
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		DeniedActions:  make(map[string]bool),
		DeniedPackages: make(map[string]bool),
		DeniedText:     make([]*regexp.Regexp, 0),
	}
}

// DenyAction blocks every step of the given action kind.
func (e *DefaultPolicyEngine) DenyAction(action string) {
	e.DeniedActions[action] = true
}

// DenyPackage blocks launching the app with the given package identifier.
func (e *DefaultPolicyEngine) DenyPackage(packageID string) {
	e.DeniedPackages[packageID] = true
}

// DenyText blocks typing or searching for values matching pattern.
func (e *DefaultPolicyEngine) DenyText(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.DeniedText = append(e.DeniedText, re)
	return nil
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	if e.DeniedActions[req.Action] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Action '%s' is restricted by system policy", req.Action),
		}, nil
	}

	if req.Action == "open_app" && e.DeniedPackages[req.Target] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("App '%s' is restricted by system policy", req.Target),
		}, nil
	}

	if req.Value != "" {
		for _, re := range e.DeniedText {
			if re.MatchString(req.Value) {
				return Result{
					Effect: EffectDeny,
					Reason: fmt.Sprintf("Text matches restricted pattern: %s", re.String()),
				}, nil
			}
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
	}, nil
}
