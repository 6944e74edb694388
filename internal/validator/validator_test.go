package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PublishGate/internal/authors"
	"PublishGate/internal/domain"
	"PublishGate/internal/linkpolicy"
	"PublishGate/internal/metrics"
	"PublishGate/internal/shortcode"
)

type stubRegistry struct {
	missing map[int64]bool
	err     error
}

func (s stubRegistry) Exists(_ context.Context, _ domain.IdentifierKind, id int64) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return !s.missing[id], nil
}

func testLists() linkpolicy.Lists {
	return linkpolicy.Lists{
		InternalDomains:        []string{"degreeguide.example"},
		BlockedSuffixes:        []string{".edu"},
		CompetitorDomains:      []string{"rival-site.com", "rival-site.edu"},
		AllowedExternalDomains: []string{"bls.gov"},
	}
}

func newValidator() *Validator {
	return New(Deps{
		Authors: authors.NewDirectory([]domain.Author{{ID: "jdoe", DisplayName: "Jordan Doe"}}),
		Links:   linkpolicy.New(testLists()),
		Shortcodes: shortcode.New(
			shortcode.NewRegistry(shortcode.DefaultDefinitions()...),
			shortcode.Options{BlockUnknown: true}, nil, nil),
	})
}

func newRegistryValidator(reg stubRegistry) *Validator {
	return New(Deps{
		Authors: authors.NewDirectory([]domain.Author{{ID: "jdoe"}}),
		Links:   linkpolicy.New(testLists()),
		Shortcodes: shortcode.New(
			shortcode.NewRegistry(shortcode.DefaultDefinitions()...),
			shortcode.Options{BlockUnknown: true}, reg, nil),
	})
}

func body(extra string) string {
	return `<h2>Overview</h2><p>Nursing programs explained. See <a href="/programs">programs</a>
	and <a href="https://www.bls.gov/ooh/">BLS data</a>.</p>
	<h2>Costs</h2><p>Tuition varies.</p><h3>Financial aid</h3><p>Grants exist.</p>` + extra
}

func goodRecord() domain.ContentRecord {
	return domain.ContentRecord{
		ID:           "art-1",
		Title:        "Best Online Nursing Programs",
		Body:         body(`[degree_table category=4 level=2]`),
		AuthorID:     "jdoe",
		WordCount:    2000,
		QualityScore: 85,
		FAQs: []domain.FAQ{
			{Question: "q1", Answer: "a1"},
			{Question: "q2", Answer: "a2"},
			{Question: "q3", Answer: "a3"},
			{Question: "q4", Answer: "a4"},
		},
	}
}

func kinds(issues []domain.Issue) []domain.IssueKind {
	out := make([]domain.IssueKind, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.Kind)
	}
	return out
}

func TestValidateCleanRecordPasses(t *testing.T) {
	t.Parallel()

	verdict := newValidator().Validate(goodRecord(), DefaultPolicy())

	assert.True(t, verdict.CanPublish)
	assert.Empty(t, verdict.BlockingIssues)
	assert.Empty(t, verdict.Warnings)
	assert.Equal(t, domain.RiskLow, verdict.RiskLevel)
	assert.Equal(t, 85, verdict.QualityScore)

	checks := []domain.CheckResult{
		verdict.Checks.Author, verdict.Checks.Links, verdict.Checks.Risk,
		verdict.Checks.Quality, verdict.Checks.Content, verdict.Checks.Shortcodes,
	}
	for _, c := range checks {
		assert.True(t, c.Passed, c.Summary)
	}
}

func TestUnapprovedAuthorIsTheOnlyBlockingIssue(t *testing.T) {
	t.Parallel()

	record := goodRecord()
	record.AuthorID = "Unapproved"
	record.QualityScore = 85

	verdict := newValidator().Validate(record, DefaultPolicy())

	assert.False(t, verdict.CanPublish)
	assert.Equal(t, []domain.IssueKind{domain.IssueUnauthorizedAuthor}, kinds(verdict.BlockingIssues))
	assert.Equal(t, domain.ClassPolicyViolation, verdict.BlockingIssues[0].Class)
	assert.False(t, verdict.Checks.Author.Passed)
}

func TestMissingAuthorBlocksEvenWithoutAllowList(t *testing.T) {
	t.Parallel()

	record := goodRecord()
	record.AuthorID = "  "

	for _, enforce := range []bool{true, false} {
		policy := DefaultPolicy()
		policy.EnforceAuthorAllowList = enforce

		verdict := newValidator().Validate(record, policy)
		assert.False(t, verdict.CanPublish)
		assert.Equal(t, []domain.IssueKind{domain.IssueNoAuthor}, kinds(verdict.BlockingIssues))
	}
}

func TestUnlistedAuthorPassesWhenAllowListNotEnforced(t *testing.T) {
	t.Parallel()

	record := goodRecord()
	record.AuthorID = "guest-writer"
	policy := DefaultPolicy()
	policy.EnforceAuthorAllowList = false

	verdict := newValidator().Validate(record, policy)
	assert.True(t, verdict.CanPublish)
	assert.True(t, verdict.Checks.Author.Passed)
}

func TestEduCompetitorLinkRaisesBothRules(t *testing.T) {
	t.Parallel()

	record := goodRecord()
	record.QualityScore = 90
	record.Body = body(`<p><a href="https://rival-site.edu/mba">rankings</a></p>[degree_table category=4]`)

	verdict := newValidator().Validate(record, DefaultPolicy())

	assert.False(t, verdict.CanPublish)
	assert.True(t, verdict.HasBlocking(domain.IssueBlockedDomainLink))
	assert.True(t, verdict.HasBlocking(domain.IssueCompetitorLink))
	assert.False(t, verdict.Checks.Links.Passed)
}

func TestHighRiskIsWarningWhenPolicyAllows(t *testing.T) {
	t.Parallel()

	record := goodRecord()
	record.Body = body(`<a href="https://rival-site.edu/">x</a>[degree_table category=4]`)

	strict := newValidator().Validate(record, DefaultPolicy())
	assert.Equal(t, domain.RiskHigh, strict.RiskLevel)
	assert.True(t, strict.HasBlocking(domain.IssueHighRisk))

	lenient := DefaultPolicy()
	lenient.BlockHighRisk = false
	relaxed := newValidator().Validate(record, lenient)
	assert.False(t, relaxed.HasBlocking(domain.IssueHighRisk))
	assert.True(t, relaxed.HasWarning(domain.IssueHighRisk))
	assert.True(t, relaxed.Checks.Risk.Passed)
	assert.False(t, relaxed.CanPublish)
}

func TestAssignedCriticalRiskAlwaysBlocks(t *testing.T) {
	t.Parallel()

	record := goodRecord()
	record.RiskLevel = domain.RiskCritical

	policy := DefaultPolicy()
	policy.BlockHighRisk = false

	verdict := newValidator().Validate(record, policy)
	assert.False(t, verdict.CanPublish)
	assert.Equal(t, []domain.IssueKind{domain.IssueCriticalRisk}, kinds(verdict.BlockingIssues))
	assert.Equal(t, domain.RiskCritical, verdict.RiskLevel)
}

func TestMissingMonetizationIsTheOnlyWarning(t *testing.T) {
	t.Parallel()

	record := goodRecord()
	record.Body = body("")

	verdict := newValidator().Validate(record, DefaultPolicy())

	assert.True(t, verdict.CanPublish)
	assert.Empty(t, verdict.BlockingIssues)
	assert.Equal(t, []domain.IssueKind{domain.IssueMissingShortcode}, kinds(verdict.Warnings))
	assert.Equal(t, domain.ClassQualityAdvisory, verdict.Warnings[0].Class)
	assert.True(t, verdict.Checks.Shortcodes.Passed)
}

func TestQualityAndStructureOnlyWarn(t *testing.T) {
	t.Parallel()

	record := goodRecord()
	record.QualityScore = 40
	record.WordCount = 0
	record.FAQs = record.FAQs[:1]
	record.Body = `<h2>Only heading</h2><p>short body</p>[degree_table category=4]`

	verdict := newValidator().Validate(record, DefaultPolicy())

	assert.True(t, verdict.CanPublish)
	assert.Equal(t, []domain.IssueKind{
		domain.IssueLowQuality,
		domain.IssueThinContent,
		domain.IssueFewFAQs,
		domain.IssueFewHeadings,
	}, kinds(verdict.Warnings))
	assert.False(t, verdict.Checks.Quality.Passed)
	assert.False(t, verdict.Checks.Content.Passed)
	assert.Contains(t, verdict.Checks.Content.Summary, "6 words, 1 FAQs, 1 headings")
}

func TestPublishOptionsOverrideQualityThreshold(t *testing.T) {
	t.Parallel()

	record := goodRecord()
	record.QualityScore = 75

	opts := domain.DefaultPublishOptions()
	opts.RequireMinQualityScore = 80

	verdict := newValidator().Validate(record, DefaultPolicy().WithOptions(opts))
	assert.True(t, verdict.HasWarning(domain.IssueLowQuality))
}

func TestInvalidShortcodeBlocks(t *testing.T) {
	t.Parallel()

	record := goodRecord()
	record.Body = body(`[degree_table category=0][popup]`)

	verdict := newValidator().Validate(record, DefaultPolicy())

	assert.False(t, verdict.CanPublish)
	assert.True(t, verdict.HasBlocking(domain.IssueInvalidShortcode))
	assert.True(t, verdict.HasBlocking(domain.IssueUnknownShortcode))
	assert.False(t, verdict.Checks.Shortcodes.Passed)
	assert.Equal(t, domain.RiskCritical, verdict.RiskLevel)
}

func TestDisabledChecksAreStillReported(t *testing.T) {
	t.Parallel()

	record := goodRecord()
	record.Body = body(`<a href="https://rival-site.com/">x</a>[popup]`)

	policy := DefaultPolicy()
	policy.CheckLinks = false
	policy.CheckShortcodes = false

	verdict := newValidator().Validate(record, policy)
	assert.True(t, verdict.CanPublish)
	assert.Equal(t, "link checking disabled", verdict.Checks.Links.Summary)
	assert.Equal(t, "shortcode checking disabled", verdict.Checks.Shortcodes.Summary)
}

func TestEveryCheckReportsWhenEarlierChecksFail(t *testing.T) {
	t.Parallel()

	record := domain.ContentRecord{
		ID:           "bad",
		Body:         `<a href="https://rival-site.com/">x</a><a href="">y</a>[popup]`,
		QualityScore: 10,
	}

	verdict := newValidator().Validate(record, DefaultPolicy())

	assert.False(t, verdict.CanPublish)
	for _, c := range []domain.CheckResult{
		verdict.Checks.Author, verdict.Checks.Links, verdict.Checks.Risk,
		verdict.Checks.Quality, verdict.Checks.Content, verdict.Checks.Shortcodes,
	} {
		assert.NotEmpty(t, c.Summary)
		assert.False(t, c.Passed, c.Summary)
	}
	assert.True(t, verdict.HasBlocking(domain.IssueNoAuthor))
	assert.True(t, verdict.HasBlocking(domain.IssueCompetitorLink))
	assert.True(t, verdict.HasBlocking(domain.IssueCriticalRisk))
	assert.True(t, verdict.HasBlocking(domain.IssueUnknownShortcode))
	assert.True(t, verdict.HasWarning(domain.IssueInvalidLink))
}

func TestCanPublishMatchesBlockingIssues(t *testing.T) {
	t.Parallel()

	v := newValidator()
	extras := []string{
		"",
		`[degree_table category=1]`,
		`<a href="https://stateu.edu">x</a>`,
		`<a href="https://news.example.com">x</a>`,
		`[cta]`,
		`<a href="mailto:x@y.z">x</a>`,
	}
	authorIDs := []string{"jdoe", "", "Unapproved"}
	risks := []domain.RiskLevel{domain.RiskLow, domain.RiskMedium, domain.RiskHigh, domain.RiskCritical}

	for _, extra := range extras {
		for _, author := range authorIDs {
			for _, level := range risks {
				record := goodRecord()
				record.Body = body(extra)
				record.AuthorID = author
				record.RiskLevel = level

				verdict := v.Validate(record, DefaultPolicy())
				assert.Equal(t, len(verdict.BlockingIssues) == 0, verdict.CanPublish)
				assert.Equal(t, verdict, v.Validate(record, DefaultPolicy()))
			}
		}
	}
}

func TestValidateDoesNotMutateRecord(t *testing.T) {
	t.Parallel()

	record := goodRecord()
	record.WordCount = 0
	before := record
	before.FAQs = append([]domain.FAQ(nil), record.FAQs...)

	newValidator().Validate(record, DefaultPolicy())
	assert.Equal(t, before, record)
}

func TestValidateWithRegistry(t *testing.T) {
	t.Parallel()

	record := goodRecord()
	record.Body = body(`[degree_table category=4 level=9]`)

	v := newRegistryValidator(stubRegistry{missing: map[int64]bool{9: true}})

	sync := v.Validate(record, DefaultPolicy())
	assert.True(t, sync.CanPublish)

	full := v.ValidateWithRegistry(context.Background(), record, DefaultPolicy())
	assert.False(t, full.CanPublish)
	require.Len(t, full.BlockingIssues, 1)
	assert.Equal(t, domain.IssueInvalidReference, full.BlockingIssues[0].Kind)
	assert.Contains(t, full.BlockingIssues[0].Message, "level 9")
}

func TestValidateWithRegistryDegradesWhenUnavailable(t *testing.T) {
	t.Parallel()

	record := goodRecord()
	v := newRegistryValidator(stubRegistry{err: errors.New("dial tcp: connection refused")})

	verdict := v.ValidateWithRegistry(context.Background(), record, DefaultPolicy())
	assert.True(t, verdict.CanPublish)
	assert.Equal(t, []domain.IssueKind{domain.IssueUnverifiedReference}, kinds(verdict.Warnings))
}

func TestValidateWithRegistryWithoutRegistryMatchesSync(t *testing.T) {
	t.Parallel()

	v := newValidator()
	record := goodRecord()

	assert.Equal(t, v.Validate(record, DefaultPolicy()), v.ValidateWithRegistry(context.Background(), record, DefaultPolicy()))
}

func TestAssessRisk(t *testing.T) {
	t.Parallel()

	record := goodRecord()
	record.Body = body(`<a href="https://rival-site.com/">x</a>[degree_table category=4]`)

	a := newValidator().AssessRisk(record, DefaultPolicy())
	assert.Equal(t, 25, a.Score)
	assert.Equal(t, domain.RiskMedium, a.Level)
}

func TestValidateRecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	v := New(Deps{Metrics: metrics.New(reg)})

	v.Validate(goodRecord(), DefaultPolicy())

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "publishgate_validations_total", families[0].GetName())
}
