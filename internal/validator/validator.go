// Package validator runs every pre-publish check over a content record and folds them into one verdict.
package validator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"PublishGate/internal/authors"
	"PublishGate/internal/content"
	"PublishGate/internal/domain"
	"PublishGate/internal/linkpolicy"
	"PublishGate/internal/metrics"
	"PublishGate/internal/risk"
	"PublishGate/internal/shortcode"
)

// Policy selects which checks gate publication and how strictly.
type Policy struct {
	MinQualityScore        int  `json:"minQualityScore" yaml:"minQualityScore"`
	BlockHighRisk          bool `json:"blockHighRisk" yaml:"blockHighRisk"`
	EnforceAuthorAllowList bool `json:"enforceAuthorAllowList" yaml:"enforceAuthorAllowList"`
	CheckLinks             bool `json:"checkLinks" yaml:"checkLinks"`
	CheckShortcodes        bool `json:"checkShortcodes" yaml:"checkShortcodes"`
}

// DefaultPolicy enables every check with a minimum quality score of 70.
func DefaultPolicy() Policy {
	return Policy{
		MinQualityScore:        70,
		BlockHighRisk:          true,
		EnforceAuthorAllowList: true,
		CheckLinks:             true,
		CheckShortcodes:        true,
	}
}

// WithOptions applies the thresholds carried by publish options.
func (p Policy) WithOptions(opts domain.PublishOptions) Policy {
	p.MinQualityScore = opts.RequireMinQualityScore
	p.BlockHighRisk = opts.BlockHighRisk
	return p
}

// Floors are the structural minimums below which a warning is raised.
type Floors struct {
	Words    int `yaml:"words"`
	FAQs     int `yaml:"faqs"`
	Headings int `yaml:"headings"`
}

// DefaultFloors requires 1500 words, 3 FAQs and 3 section headings.
func DefaultFloors() Floors {
	return Floors{Words: 1500, FAQs: 3, Headings: 3}
}

// Deps are the evaluators the validator delegates to.
type Deps struct {
	Authors    *authors.Directory
	Links      *linkpolicy.Evaluator
	Shortcodes *shortcode.Evaluator
	Risk       *risk.Assessor
	Floors     Floors
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// Validator never mutates the record it is given.
type Validator struct {
	authors    *authors.Directory
	links      *linkpolicy.Evaluator
	shortcodes *shortcode.Evaluator
	risk       *risk.Assessor
	floors     Floors
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// New fills missing collaborators with empty-list defaults.
func New(deps Deps) *Validator {
	v := &Validator{
		authors:    deps.Authors,
		links:      deps.Links,
		shortcodes: deps.Shortcodes,
		risk:       deps.Risk,
		floors:     deps.Floors,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}
	if v.authors == nil {
		v.authors = authors.NewDirectory(nil)
	}
	if v.links == nil {
		v.links = linkpolicy.New(linkpolicy.Lists{})
	}
	if v.shortcodes == nil {
		v.shortcodes = shortcode.New(nil, shortcode.Options{BlockUnknown: true}, nil, deps.Logger)
	}
	if v.risk == nil {
		v.risk = risk.New(risk.DefaultWeights(), risk.DefaultBands())
	}
	if v.floors == (Floors{}) {
		v.floors = DefaultFloors()
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v
}

// Validate runs the synchronous checks. The result never depends on the identifier registry.
func (v *Validator) Validate(record domain.ContentRecord, policy Policy) domain.Verdict {
	return v.verdict(v.collect(record, policy))
}

// ValidateWithRegistry applies the synchronous checks and then confirms shortcode identifiers
// against the registry. Without a registry it returns the synchronous verdict unchanged.
func (v *Validator) ValidateWithRegistry(ctx context.Context, record domain.ContentRecord, policy Policy) domain.Verdict {
	f := v.collect(record, policy)
	if policy.CheckShortcodes && v.shortcodes.HasRegistry() {
		refs := v.shortcodes.VerifyReferences(ctx, f.shortcodes.Instances)
		f.refs = &refs
	}
	return v.verdict(f)
}

// AssessRisk returns the risk assessment the risk check would use.
func (v *Validator) AssessRisk(record domain.ContentRecord, policy Policy) risk.Assessment {
	f := v.collect(record, policy)
	signals := v.signals(f)
	return v.risk.Assess(record, &signals)
}

type findings struct {
	record domain.ContentRecord
	policy Policy

	authorMissing  bool
	authorApproved bool

	links      domain.LinkScan
	shortcodes shortcode.Report
	refs       *shortcode.ReferenceReport

	words    int
	faqs     int
	headings int

	assessment risk.Assessment
}

func (v *Validator) collect(record domain.ContentRecord, policy Policy) *findings {
	f := &findings{
		record:        record,
		policy:        policy,
		authorMissing: strings.TrimSpace(record.AuthorID) == "",
		faqs:          len(record.FAQs),
		headings:      content.Headings(record.Body),
		words:         record.WordCount,
	}
	f.authorApproved = !f.authorMissing && v.authors.Approved(record.AuthorID)
	if f.words <= 0 {
		f.words = content.WordCount(record.Body)
	}
	if policy.CheckLinks {
		f.links = v.links.Scan(record.Body)
	}
	if policy.CheckShortcodes {
		f.shortcodes = v.shortcodes.Evaluate(record.Body)
	}
	return f
}

func (v *Validator) verdict(f *findings) domain.Verdict {
	signals := v.signals(f)
	f.assessment = v.risk.Assess(f.record, &signals)

	verdict := domain.NewVerdict()
	verdict.RiskLevel = f.assessment.Level
	verdict.RiskScore = f.assessment.Score
	verdict.QualityScore = f.record.QualityScore

	verdict.Checks.Author = v.checkAuthor(&verdict, f)
	verdict.Checks.Links = v.checkLinks(&verdict, f)
	verdict.Checks.Risk = v.checkRisk(&verdict, f)
	verdict.Checks.Quality = v.checkQuality(&verdict, f)
	verdict.Checks.Content = v.checkContent(&verdict, f)
	verdict.Checks.Shortcodes = v.checkShortcodes(&verdict, f)
	verdict.Finalize()

	v.metrics.RecordValidation(verdict.CanPublish)
	v.logger.Debug("validated content",
		"article_id", f.record.ID,
		"can_publish", verdict.CanPublish,
		"blocking", len(verdict.BlockingIssues),
		"warnings", len(verdict.Warnings),
		"risk", verdict.RiskLevel.String(),
	)
	return verdict
}

func (v *Validator) signals(f *findings) risk.Signals {
	s := risk.Signals{
		AuthorMissing: f.authorMissing || (f.policy.EnforceAuthorAllowList && !f.authorApproved),
		LinkBlocking:  len(f.links.BlockingIssues),
	}
	for _, issue := range f.links.Warnings {
		if issue.Rule == domain.RuleMalformed {
			s.LinkErrors++
		} else {
			s.LinkWarnings++
		}
	}

	for _, violation := range f.shortcodes.Violations {
		if violation.Blocking {
			s.ShortcodeViolations++
		} else {
			s.Advisories++
		}
	}
	if f.refs != nil {
		s.ShortcodeViolations += len(f.refs.Invalid)
		s.Advisories += len(f.refs.Unverified)
	}
	if f.policy.CheckShortcodes && !f.shortcodes.Monetization.HasMonetization {
		s.Advisories++
	}

	if f.record.QualityScore < f.policy.MinQualityScore {
		s.Advisories++
	}
	if f.words < v.floors.Words {
		s.Advisories++
	}
	if f.faqs < v.floors.FAQs {
		s.Advisories++
	}
	if f.headings < v.floors.Headings {
		s.Advisories++
	}
	return s
}

func (v *Validator) checkAuthor(verdict *domain.Verdict, f *findings) domain.CheckResult {
	switch {
	case f.authorMissing:
		verdict.Block(domain.CheckAuthor, domain.IssueNoAuthor, "content has no author")
		return domain.CheckResult{Summary: "no author assigned"}
	case f.policy.EnforceAuthorAllowList && !f.authorApproved:
		verdict.Block(domain.CheckAuthor, domain.IssueUnauthorizedAuthor,
			fmt.Sprintf("author %q is not on the approved author list", f.record.AuthorID))
		return domain.CheckResult{Summary: fmt.Sprintf("author %q is not approved", f.record.AuthorID)}
	case !f.policy.EnforceAuthorAllowList:
		return domain.CheckResult{Passed: true, Summary: "author allow-list not enforced"}
	default:
		return domain.CheckResult{Passed: true, Summary: fmt.Sprintf("approved author %s", v.authors.DisplayName(f.record.AuthorID))}
	}
}

func (v *Validator) checkLinks(verdict *domain.Verdict, f *findings) domain.CheckResult {
	if !f.policy.CheckLinks {
		return domain.CheckResult{Passed: true, Summary: "link checking disabled"}
	}

	for _, issue := range f.links.BlockingIssues {
		kind := domain.IssueBlockedDomainLink
		if issue.Rule == domain.RuleCompetitor {
			kind = domain.IssueCompetitorLink
		}
		verdict.Block(domain.CheckLinks, kind, issue.Message)
	}
	for _, issue := range f.links.Warnings {
		kind := domain.IssueUnlistedExternalLink
		if issue.Rule == domain.RuleMalformed {
			kind = domain.IssueInvalidLink
		}
		verdict.Warn(domain.CheckLinks, kind, issue.Message)
	}

	return domain.CheckResult{
		Passed: f.links.IsCompliant,
		Summary: fmt.Sprintf("%d links (%d internal, %d external), %d blocking, %d warnings",
			len(f.links.Links), f.links.InternalCount, f.links.ExternalCount,
			len(f.links.BlockingIssues), len(f.links.Warnings)),
	}
}

func (v *Validator) checkRisk(verdict *domain.Verdict, f *findings) domain.CheckResult {
	a := f.assessment
	summary := fmt.Sprintf("risk %s (score %d, assigned %s)", a.Level, a.Score, a.Assigned)

	switch a.Level {
	case domain.RiskCritical:
		verdict.Block(domain.CheckRisk, domain.IssueCriticalRisk, "content risk is CRITICAL")
		return domain.CheckResult{Summary: summary}
	case domain.RiskHigh:
		if f.policy.BlockHighRisk {
			verdict.Block(domain.CheckRisk, domain.IssueHighRisk, "content risk is HIGH")
			return domain.CheckResult{Summary: summary}
		}
		verdict.Warn(domain.CheckRisk, domain.IssueHighRisk, "content risk is HIGH")
	case domain.RiskLow, domain.RiskMedium:
	}
	return domain.CheckResult{Passed: true, Summary: summary}
}

func (v *Validator) checkQuality(verdict *domain.Verdict, f *findings) domain.CheckResult {
	score, threshold := f.record.QualityScore, f.policy.MinQualityScore
	if score < threshold {
		verdict.Warn(domain.CheckQuality, domain.IssueLowQuality,
			fmt.Sprintf("quality score %d is below the minimum of %d", score, threshold))
		return domain.CheckResult{Summary: fmt.Sprintf("quality %d < %d", score, threshold)}
	}
	return domain.CheckResult{Passed: true, Summary: fmt.Sprintf("quality %d >= %d", score, threshold)}
}

func (v *Validator) checkContent(verdict *domain.Verdict, f *findings) domain.CheckResult {
	passed := true
	if f.words < v.floors.Words {
		passed = false
		verdict.Warn(domain.CheckContent, domain.IssueThinContent,
			fmt.Sprintf("%d words, at least %d recommended", f.words, v.floors.Words))
	}
	if f.faqs < v.floors.FAQs {
		passed = false
		verdict.Warn(domain.CheckContent, domain.IssueFewFAQs,
			fmt.Sprintf("%d FAQs, at least %d recommended", f.faqs, v.floors.FAQs))
	}
	if f.headings < v.floors.Headings {
		passed = false
		verdict.Warn(domain.CheckContent, domain.IssueFewHeadings,
			fmt.Sprintf("%d section headings, at least %d recommended", f.headings, v.floors.Headings))
	}
	return domain.CheckResult{
		Passed:  passed,
		Summary: fmt.Sprintf("%d words, %d FAQs, %d headings", f.words, f.faqs, f.headings),
	}
}

func (v *Validator) checkShortcodes(verdict *domain.Verdict, f *findings) domain.CheckResult {
	if !f.policy.CheckShortcodes {
		return domain.CheckResult{Passed: true, Summary: "shortcode checking disabled"}
	}

	passed := true
	for _, violation := range f.shortcodes.Violations {
		msg := fmt.Sprintf("%s: %s", violation.Shortcode.Raw, joinErrors(violation.Errors))
		if violation.Blocking {
			passed = false
			verdict.Block(domain.CheckShortcodes, violation.Kind, msg)
		} else {
			verdict.Warn(domain.CheckShortcodes, violation.Kind, msg)
		}
	}

	if f.refs != nil {
		for _, ref := range f.refs.Invalid {
			passed = false
			verdict.Block(domain.CheckShortcodes, domain.IssueInvalidReference, ref.Error())
		}
		for _, raw := range f.refs.Unverified {
			verdict.Warn(domain.CheckShortcodes, domain.IssueUnverifiedReference,
				fmt.Sprintf("%s: identifiers could not be verified", raw))
		}
	}

	presence := f.shortcodes.Monetization
	if !presence.HasMonetization {
		verdict.Warn(domain.CheckShortcodes, domain.IssueMissingShortcode,
			"no monetization shortcode present: "+presence.Recommendation)
	}

	return domain.CheckResult{
		Passed: passed,
		Summary: fmt.Sprintf("%d shortcodes, %d monetization, %d violations",
			len(f.shortcodes.Instances), presence.Count, len(f.shortcodes.Violations)),
	}
}

func joinErrors(errs []error) string {
	parts := make([]string, 0, len(errs))
	for _, err := range errs {
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "; ")
}
