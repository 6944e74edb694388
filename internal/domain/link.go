package domain

import "fmt"

// LinkType classifies a hyperlink target.
type LinkType string

const (
	LinkInternal LinkType = "internal"
	LinkExternal LinkType = "external"
	LinkAnchor   LinkType = "anchor"
	LinkInvalid  LinkType = "invalid"
)

// Severity is an ordered link-policy severity.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityWarning
	SeverityError
	SeverityBlocking
)

var severityNames = [...]string{"none", "warning", "error", "blocking"}

func (s Severity) String() string {
	if s < SeverityNone || s > SeverityBlocking {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	for i, name := range severityNames {
		if name == string(text) {
			*s = Severity(i)
			return nil
		}
	}
	return fmt.Errorf("unknown severity %q", string(text))
}

// LinkRule names the policy rule behind a link issue.
type LinkRule string

const (
	RuleBlockedSuffix    LinkRule = "blocked_suffix"
	RuleCompetitor       LinkRule = "competitor_domain"
	RuleUnlistedExternal LinkRule = "unlisted_external"
	RuleMalformed        LinkRule = "malformed_url"
)

// LinkIssue is one rule hit for a link.
type LinkIssue struct {
	URL     string   `json:"url"`
	Rule    LinkRule `json:"rule"`
	Message string   `json:"message"`
}

func (i LinkIssue) String() string {
	return i.Message
}

// LinkClassification is the verdict for a single extracted hyperlink.
type LinkClassification struct {
	URL      string      `json:"url"`
	Type     LinkType    `json:"type"`
	Severity Severity    `json:"severity"`
	Domain   string      `json:"domain,omitempty"`
	Issues   []LinkIssue `json:"issues"`
}

// Raise lifts the severity, never lowering it.
func (c *LinkClassification) Raise(s Severity) {
	if s > c.Severity {
		c.Severity = s
	}
}

// LinkScan aggregates the classifications of every hyperlink in a body.
type LinkScan struct {
	Links          []LinkClassification `json:"links"`
	IsCompliant    bool                 `json:"isCompliant"`
	InternalCount  int                  `json:"internalCount"`
	ExternalCount  int                  `json:"externalCount"`
	BlockingIssues []LinkIssue          `json:"blockingIssues"`
	Warnings       []LinkIssue          `json:"warnings"`
}

// CountSeverity returns how many links sit at exactly the given severity.
func (s LinkScan) CountSeverity(sev Severity) int {
	n := 0
	for _, link := range s.Links {
		if link.Severity == sev {
			n++
		}
	}
	return n
}
