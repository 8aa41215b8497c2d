package agent

import "fmt"

// Wait durations in milliseconds.
const (
	appLoadWait       = "2000"
	contactSearchWait = "1500"
	chatOpenWait      = "1000"
	videoSearchWait   = "2000"

	defaultMessage = "Hi"
)

// conversationStarter is the control that opens a new conversation in a
// messaging app.
type conversationStarter struct {
	label     string
	findDesc  string
	clickDesc string
}

var conversationStarters = map[string]conversationStarter{
	"whatsapp":    {label: "New chat", findDesc: "Finding new chat button", clickDesc: "Opening new chat"},
	"google chat": {label: "Start chat", findDesc: "Finding start chat button", clickDesc: "Starting new chat"},
}

// searchTemplate expands a search query into app specific steps.
type searchTemplate func(app App, query string) []Step

var searchTemplates = map[string]searchTemplate{
	"youtube": videoSearchSteps,
}

func messageSteps(app App, contact, message string) []Step {
	var steps []Step

	if starter, ok := conversationStarters[app.Name]; ok {
		steps = append(steps,
			Step{Action: ActionFindElement, Target: starter.label, Description: starter.findDesc},
			Step{Action: ActionClick, Target: starter.label, Description: starter.clickDesc},
		)
	}

	return append(steps,
		Step{Action: ActionFindElement, Target: "Search", Description: "Finding search field"},
		Step{Action: ActionTypeText, Target: "Search", Value: contact, Description: fmt.Sprintf("Searching for %s", contact)},
		Step{Action: ActionWait, Target: contactSearchWait, Description: "Waiting for search results"},
		Step{Action: ActionFindElement, Target: contact, Description: fmt.Sprintf("Finding contact %s", contact)},
		Step{Action: ActionClick, Target: contact, Description: fmt.Sprintf("Opening chat with %s", contact)},
		Step{Action: ActionWait, Target: chatOpenWait, Description: "Waiting for chat to open"},
		Step{Action: ActionFindElement, Target: "message", Description: "Finding message input"},
		Step{Action: ActionTypeText, Target: "message", Value: message, Description: fmt.Sprintf("Typing message: %s", message)},
		Step{Action: ActionFindElement, Target: "Send", Description: "Finding send button"},
		Step{Action: ActionClick, Target: "Send", Description: "Sending message"},
	)
}

func videoSearchSteps(app App, query string) []Step {
	field := "Search " + app.DisplayName
	return []Step{
		{Action: ActionFindElement, Target: "Search", Description: "Finding search button"},
		{Action: ActionClick, Target: "Search", Description: "Opening search"},
		{Action: ActionFindElement, Target: field, Description: "Finding search field"},
		{Action: ActionTypeText, Target: field, Value: query, Description: fmt.Sprintf("Searching for: %s", query)},
		{Action: ActionWait, Target: videoSearchWait, Description: "Waiting for search results"},
		{Action: ActionFindElement, Target: query, Description: "Finding video"},
		{Action: ActionClick, Target: query, Description: "Playing video"},
	}
}
