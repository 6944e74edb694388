package domain

// CheckName identifies one of the fixed pre-publish checks.
type CheckName string

const (
	CheckAuthor     CheckName = "author"
	CheckLinks      CheckName = "links"
	CheckRisk       CheckName = "risk"
	CheckQuality    CheckName = "quality"
	CheckContent    CheckName = "content"
	CheckShortcodes CheckName = "shortcodes"
)

// IssueKind is the machine-readable category of a validation finding.
type IssueKind string

const (
	IssueNoAuthor             IssueKind = "no_author"
	IssueUnauthorizedAuthor   IssueKind = "unauthorized_author"
	IssueBlockedDomainLink    IssueKind = "blocked_domain_link"
	IssueCompetitorLink       IssueKind = "competitor_link"
	IssueUnlistedExternalLink IssueKind = "unlisted_external_link"
	IssueInvalidLink          IssueKind = "invalid_link"
	IssueCriticalRisk         IssueKind = "critical_risk"
	IssueHighRisk             IssueKind = "high_risk"
	IssueLowQuality           IssueKind = "low_quality"
	IssueThinContent          IssueKind = "thin_content"
	IssueFewFAQs              IssueKind = "few_faqs"
	IssueFewHeadings          IssueKind = "few_headings"
	IssueMissingShortcode     IssueKind = "missing_shortcode"
	IssueUnknownShortcode     IssueKind = "unknown_shortcode"
	IssueInvalidShortcode     IssueKind = "invalid_shortcode"
	IssueInvalidReference     IssueKind = "invalid_reference"
	IssueUnverifiedReference  IssueKind = "unverified_reference"
)

// Issue is a single blocking or advisory finding.
type Issue struct {
	Check   CheckName  `json:"check"`
	Kind    IssueKind  `json:"kind"`
	Class   ErrorClass `json:"class"`
	Message string     `json:"message"`
}

// CheckResult summarises one named check.
type CheckResult struct {
	Passed  bool   `json:"passed"`
	Summary string `json:"summary"`
}

// Checks is the fixed set of named checks every verdict reports.
type Checks struct {
	Author     CheckResult `json:"author"`
	Links      CheckResult `json:"links"`
	Risk       CheckResult `json:"risk"`
	Quality    CheckResult `json:"quality"`
	Content    CheckResult `json:"content"`
	Shortcodes CheckResult `json:"shortcodes"`
}

// Verdict is the unified gating decision. It is computed fresh on every call and never persisted.
type Verdict struct {
	CanPublish     bool      `json:"canPublish"`
	BlockingIssues []Issue   `json:"blockingIssues"`
	Warnings       []Issue   `json:"warnings"`
	RiskLevel      RiskLevel `json:"riskLevel"`
	RiskScore      int       `json:"riskScore"`
	QualityScore   int       `json:"qualityScore"`
	Checks         Checks    `json:"checks"`
}

// NewVerdict returns an empty verdict with non-nil issue lists.
func NewVerdict() Verdict {
	return Verdict{
		BlockingIssues: []Issue{},
		Warnings:       []Issue{},
	}
}

// Block records a policy violation.
func (v *Verdict) Block(check CheckName, kind IssueKind, message string) {
	v.BlockingIssues = append(v.BlockingIssues, Issue{Check: check, Kind: kind, Class: ClassPolicyViolation, Message: message})
}

// Warn records a quality advisory.
func (v *Verdict) Warn(check CheckName, kind IssueKind, message string) {
	v.Warnings = append(v.Warnings, Issue{Check: check, Kind: kind, Class: ClassQualityAdvisory, Message: message})
}

// Finalize derives CanPublish from the blocking list; nothing else may set it.
func (v *Verdict) Finalize() {
	v.CanPublish = len(v.BlockingIssues) == 0
}

// HasBlocking reports whether a blocking issue of the given kind is present.
func (v Verdict) HasBlocking(kind IssueKind) bool {
	return containsKind(v.BlockingIssues, kind)
}

// HasWarning reports whether a warning of the given kind is present.
func (v Verdict) HasWarning(kind IssueKind) bool {
	return containsKind(v.Warnings, kind)
}

func containsKind(issues []Issue, kind IssueKind) bool {
	for _, issue := range issues {
		if issue.Kind == kind {
			return true
		}
	}
	return false
}
