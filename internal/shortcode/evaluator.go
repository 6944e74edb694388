// Package shortcode extracts inline publishing directives and validates them against the registry.
package shortcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"PublishGate/internal/domain"
	"PublishGate/internal/ports"
)

var (
	shortcodeExpr = regexp.MustCompile(`\[([A-Za-z][\w-]*)((?:\s+[A-Za-z_][\w-]*\s*=\s*(?:"[^"]*"|'[^']*'|[^\s"'\]]+))*)\s*/?\]`)
	paramExpr     = regexp.MustCompile(`([A-Za-z_][\w-]*)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'\]]+))`)
)

// Options toggles evaluator policy.
type Options struct {
	BlockUnknown bool
}

// ParamValidation is the result of validating one shortcode's parameters.
type ParamValidation struct {
	Valid      bool
	Errors     []error
	Unverified bool
}

// Messages renders the errors for display.
func (p ParamValidation) Messages() []string {
	out := make([]string, 0, len(p.Errors))
	for _, err := range p.Errors {
		out = append(out, err.Error())
	}
	return out
}

// Presence summarises monetization shortcode usage.
type Presence struct {
	HasMonetization bool   `json:"hasMonetization"`
	Count           int    `json:"count"`
	Recommendation  string `json:"recommendation,omitempty"`
}

// Violation is a shortcode that failed validation.
type Violation struct {
	Shortcode domain.Shortcode
	Kind      domain.IssueKind
	Blocking  bool
	Errors    []error
}

// Report is the synchronous evaluation of a body.
type Report struct {
	Instances    []domain.Shortcode
	Violations   []Violation
	Monetization Presence
}

// BlockingCount counts violations that prevent publication.
func (r Report) BlockingCount() int {
	n := 0
	for _, v := range r.Violations {
		if v.Blocking {
			n++
		}
	}
	return n
}

// ReferenceReport is the outcome of the optional identifier-registry pass.
type ReferenceReport struct {
	Invalid    []*domain.InvalidReferenceError
	Unverified []string
}

// Evaluator applies the shortcode policy. The identifier registry is optional.
type Evaluator struct {
	registry     *Registry
	ids          ports.IdentifierRegistry
	blockUnknown bool
	logger       *slog.Logger
}

// New wires the tag registry and an optional identifier registry.
func New(registry *Registry, opts Options, ids ports.IdentifierRegistry, logger *slog.Logger) *Evaluator {
	if registry == nil {
		registry = NewRegistry(DefaultDefinitions()...)
	}
	return &Evaluator{
		registry:     registry,
		ids:          ids,
		blockUnknown: opts.BlockUnknown,
		logger:       logger,
	}
}

// HasRegistry reports whether identifier lookups are available.
func (e *Evaluator) HasRegistry() bool {
	return e.ids != nil
}

// Extract recovers every shortcode instance in order of appearance.
func (e *Evaluator) Extract(body string) []domain.Shortcode {
	matches := shortcodeExpr.FindAllStringSubmatchIndex(body, -1)
	out := make([]domain.Shortcode, 0, len(matches))
	for _, m := range matches {
		tag := strings.ToLower(body[m[2]:m[3]])
		sc := domain.Shortcode{
			Tag:    tag,
			Kind:   domain.KindUnrecognized,
			Params: parseParams(body[m[4]:m[5]]),
			Raw:    body[m[0]:m[1]],
			Offset: m[0],
		}
		if def, ok := e.registry.Resolve(tag); ok {
			sc.Kind = def.Kind
		}
		out = append(out, sc)
	}
	return out
}

// CheckParams validates a shortcode without consulting the identifier registry.
func (e *Evaluator) CheckParams(sc domain.Shortcode) ParamValidation {
	res := ParamValidation{Valid: true}
	def, known := e.registry.Resolve(sc.Tag)

	switch sc.Kind {
	case domain.KindUnrecognized:
		res.Errors = append(res.Errors, fmt.Errorf("%w: [%s]", domain.ErrUnknownShortcode, sc.Tag))
	case domain.KindMonetizationTable, domain.KindMonetizationOffer:
		res.Errors = append(res.Errors, missingParams(sc, def)...)
		for _, kind := range domain.IdentifierKinds {
			raw, ok := sc.Params[string(kind)]
			if !ok {
				continue
			}
			if _, err := parseIdentifier(raw); err != nil {
				res.Errors = append(res.Errors, fmt.Errorf("%w: [%s] %s=%q must be a positive integer", domain.ErrInvalidParam, sc.Tag, kind, raw))
			}
		}
	case domain.KindCallToAction, domain.KindTableOfContents, domain.KindEmbed:
		res.Errors = append(res.Errors, missingParams(sc, def)...)
	}

	if sc.Kind != domain.KindUnrecognized && !known {
		res.Errors = append(res.Errors, fmt.Errorf("%w: [%s]", domain.ErrUnknownShortcode, sc.Tag))
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// ValidateParams validates a shortcode and, when a registry is wired, confirms its identifiers exist.
// Registry failures leave the result unverified instead of invalid.
func (e *Evaluator) ValidateParams(ctx context.Context, sc domain.Shortcode) ParamValidation {
	res := e.CheckParams(sc)
	if !res.Valid || e.ids == nil || !sc.Kind.IsMonetization() {
		return res
	}

	invalid, unverified := e.lookup(ctx, sc)
	for _, ref := range invalid {
		res.Errors = append(res.Errors, ref)
	}
	res.Unverified = unverified
	res.Valid = len(res.Errors) == 0
	return res
}

// Evaluate runs the synchronous policy over a body.
func (e *Evaluator) Evaluate(body string) Report {
	instances := e.Extract(body)
	report := Report{
		Instances:    instances,
		Monetization: presence(instances),
	}

	for _, sc := range instances {
		res := e.CheckParams(sc)
		if res.Valid {
			continue
		}
		v := Violation{Shortcode: sc, Errors: res.Errors, Blocking: true, Kind: domain.IssueInvalidShortcode}
		if errors.Is(res.Errors[0], domain.ErrUnknownShortcode) {
			v.Kind = domain.IssueUnknownShortcode
			v.Blocking = e.blockUnknown
		}
		report.Violations = append(report.Violations, v)
	}
	return report
}

// VerifyReferences confirms the identifiers of every syntactically valid monetization shortcode.
func (e *Evaluator) VerifyReferences(ctx context.Context, instances []domain.Shortcode) ReferenceReport {
	var report ReferenceReport
	if e.ids == nil {
		return report
	}

	for _, sc := range instances {
		if !sc.Kind.IsMonetization() || !e.CheckParams(sc).Valid {
			continue
		}
		invalid, unverified := e.lookup(ctx, sc)
		report.Invalid = append(report.Invalid, invalid...)
		if unverified {
			report.Unverified = append(report.Unverified, sc.Raw)
		}
	}
	return report
}

// CheckMonetizationPresence counts monetization shortcodes in a body.
func (e *Evaluator) CheckMonetizationPresence(body string) Presence {
	return presence(e.Extract(body))
}

func (e *Evaluator) lookup(ctx context.Context, sc domain.Shortcode) ([]*domain.InvalidReferenceError, bool) {
	var (
		invalid    []*domain.InvalidReferenceError
		unverified bool
	)
	for _, kind := range domain.IdentifierKinds {
		raw, ok := sc.Params[string(kind)]
		if !ok {
			continue
		}
		id, err := parseIdentifier(raw)
		if err != nil {
			continue
		}
		exists, err := e.ids.Exists(ctx, kind, id)
		if err != nil {
			unverified = true
			e.warn("identifier registry unavailable", "tag", sc.Tag, "kind", string(kind), "id", id, "error", err)
			continue
		}
		if !exists {
			invalid = append(invalid, &domain.InvalidReferenceError{Tag: sc.Tag, Kind: kind, ID: id})
		}
	}
	return invalid, unverified
}

func (e *Evaluator) warn(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}

func presence(instances []domain.Shortcode) Presence {
	var p Presence
	for _, sc := range instances {
		if sc.Kind.IsMonetization() {
			p.Count++
		}
	}
	p.HasMonetization = p.Count > 0
	if !p.HasMonetization {
		p.Recommendation = "add a monetization table or offer shortcode"
	}
	return p
}

func missingParams(sc domain.Shortcode, def Definition) []error {
	var errs []error
	for _, name := range def.Required {
		if strings.TrimSpace(sc.Params[name]) == "" {
			errs = append(errs, fmt.Errorf("%w: [%s] missing required parameter %q", domain.ErrInvalidParam, sc.Tag, name))
		}
	}
	return errs
}

func parseParams(raw string) map[string]string {
	params := map[string]string{}
	for _, m := range paramExpr.FindAllStringSubmatch(raw, -1) {
		value := m[2]
		switch {
		case m[3] != "":
			value = m[3]
		case m[4] != "":
			value = m[4]
		}
		params[strings.ToLower(m[1])] = value
	}
	return params
}

func parseIdentifier(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("identifier %d is not positive", id)
	}
	return id, nil
}
