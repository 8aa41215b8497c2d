package agent

import (
	"regexp"
	"strings"
)

var (
	quotedPattern = regexp.MustCompile(`['"]([^'"]+)['"]`)

	// Cue words are case-insensitive; the captured name must be capitalized.
	contactPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?i:to|find|message|contact)\s+(?:(?i:to)\s+)?([A-Z][A-Za-z]*)`),
		regexp.MustCompile(`\b(?i:send)\s+(?:(?i:message)\s+)?(?:(?i:to)\s+)?([A-Z][A-Za-z]*)`),
	}

	messagePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bsend\s+(?:him|her|them)\s+(.+)`),
		regexp.MustCompile(`(?i)\bmessage\s+(?:saying|with)\s+(.+)`),
		regexp.MustCompile(`(?i)\b(?:saying|that says)\s+(.+)`),
	}

	searchPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:search|find|play|look for)\s+(?:for\s+)?(.+)`),
	}

	trailingActionClause = regexp.MustCompile(`(?i)\s+and\s+(?:look|open|play|watch|start)\b.*$`)
	trailingPlaceClause  = regexp.MustCompile(`(?i)\s+(?:on|in)\s+\w+$`)

	sendCues   = []string{"send", "message", "text"}
	searchCues = []string{"search", "find", "play", "look for"}
)

// CommandParser extracts entities like app names, contacts and message text
// from a natural language command. It never fails: missing facts are reported
// through the boolean results.
type CommandParser struct{}

func NewCommandParser() *CommandParser {
	return &CommandParser{}
}

// Extract runs every extractor over the command.
func (p *CommandParser) Extract(command string) Entities {
	var e Entities
	if name, ok := p.ExtractAppName(command); ok {
		e.AppName = name
		e.PackageID, _ = p.PackageName(name)
	}
	e.ContactName, _ = p.ExtractContactName(command)
	e.MessageContent, _ = p.ExtractMessageContent(command)
	e.SearchQuery, _ = p.ExtractSearchQuery(command)
	e.SendMessage = p.IsSendMessageCommand(command)
	e.Search = p.IsSearchCommand(command)
	return e
}

// ExtractAppName returns the first registered app name contained in the
// command. Registry order breaks ties between overlapping names.
func (p *CommandParser) ExtractAppName(command string) (string, bool) {
	lower := strings.ToLower(command)
	for _, a := range apps {
		if strings.Contains(lower, a.Name) {
			return a.Name, true
		}
	}
	return "", false
}

// PackageName resolves an app name to its package identifier.
func (p *CommandParser) PackageName(appName string) (string, bool) {
	a, ok := LookupApp(appName)
	if !ok {
		return "", false
	}
	return a.PackageID, true
}

// ExtractContactName looks for a capitalized word after "to", "find",
// "message", "contact" or "send [message] [to]".
func (p *CommandParser) ExtractContactName(command string) (string, bool) {
	for _, re := range contactPatterns {
		if m := re.FindStringSubmatch(command); len(m) > 1 && m[1] != "" {
			return m[1], true
		}
	}
	return "", false
}

// ExtractMessageContent prefers quoted text, then text after
// "send him/her/them" or "message saying/with".
func (p *CommandParser) ExtractMessageContent(command string) (string, bool) {
	if q, ok := quoted(command); ok {
		return q, true
	}
	for _, re := range messagePatterns {
		if m := re.FindStringSubmatch(command); len(m) > 1 {
			if content := strings.TrimSpace(m[1]); content != "" {
				return content, true
			}
		}
	}
	return "", false
}

// ExtractSearchQuery prefers quoted text, then text after
// "search/find/play/look for" with trailing "and play ..." and
// "on <app>" clauses removed.
func (p *CommandParser) ExtractSearchQuery(command string) (string, bool) {
	if q, ok := quoted(command); ok {
		return q, true
	}
	for _, re := range searchPatterns {
		m := re.FindStringSubmatch(command)
		if len(m) < 2 {
			continue
		}
		query := strings.TrimSpace(m[1])
		query = trailingActionClause.ReplaceAllString(query, "")
		query = trailingPlaceClause.ReplaceAllString(query, "")
		query = strings.TrimSpace(query)
		if query != "" {
			return query, true
		}
	}
	return "", false
}

// IsSendMessageCommand detects if the command involves sending a message.
func (p *CommandParser) IsSendMessageCommand(command string) bool {
	return containsAny(strings.ToLower(command), sendCues)
}

// IsSearchCommand detects if the command involves searching or playing.
func (p *CommandParser) IsSearchCommand(command string) bool {
	return containsAny(strings.ToLower(command), searchCues)
}

func quoted(command string) (string, bool) {
	m := quotedPattern.FindStringSubmatch(command)
	if len(m) > 1 {
		return m[1], true
	}
	return "", false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
