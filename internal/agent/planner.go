package agent

import "fmt"

// PlanBuilder compiles natural language commands into execution plans.
type PlanBuilder struct {
	parser *CommandParser
}

func NewPlanBuilder(parser *CommandParser) *PlanBuilder {
	if parser == nil {
		parser = NewCommandParser()
	}
	return &PlanBuilder{parser: parser}
}

// Parser returns the entity extractor used by the builder.
func (b *PlanBuilder) Parser() *CommandParser {
	return b.parser
}

// Classify returns the intent of a command. Message sending is checked
// before searching, so a command with both cues is a message.
func (b *PlanBuilder) Classify(command string) Intent {
	switch {
	case b.parser.IsSendMessageCommand(command):
		return IntentSendMessage
	case b.parser.IsSearchCommand(command):
		return IntentSearch
	default:
		return IntentNone
	}
}

// BuildPlan turns a command into an ordered list of steps. The plan is empty
// when no registered app is named in the command.
func (b *PlanBuilder) BuildPlan(command string) Plan {
	name, ok := b.parser.ExtractAppName(command)
	if !ok {
		return Plan{command: command, intent: IntentNone}
	}
	app, ok := LookupApp(name)
	if !ok {
		return Plan{command: command, intent: IntentNone}
	}

	steps := []Step{
		{Action: ActionOpenApp, Target: app.PackageID, Description: fmt.Sprintf("Opening %s", app.DisplayName)},
		{Action: ActionWait, Target: appLoadWait, Description: "Waiting for app to load"},
	}

	intent := b.Classify(command)
	degraded := false

	switch intent {
	case IntentSendMessage:
		contact, found := b.parser.ExtractContactName(command)
		if !found {
			degraded = true
			break
		}
		message, found := b.parser.ExtractMessageContent(command)
		if !found {
			message = defaultMessage
		}
		steps = append(steps, messageSteps(app, contact, message)...)

	case IntentSearch:
		query, found := b.parser.ExtractSearchQuery(command)
		template, known := searchTemplates[app.Name]
		if !found || !known {
			degraded = true
			break
		}
		steps = append(steps, template(app, query)...)
	}

	plan := NewPlan(command, intent, steps)
	plan.degraded = degraded
	return plan
}
