// Package linkpolicy classifies hyperlinks in article bodies against the outbound-link policy.
package linkpolicy

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"PublishGate/internal/domain"
)

// Lists is the static policy data injected at construction time.
type Lists struct {
	InternalDomains        []string
	BlockedSuffixes        []string
	CompetitorDomains      []string
	AllowedExternalDomains []string
}

// Evaluator is deterministic over its input and the lists it was built with.
type Evaluator struct {
	internal    []string
	suffixes    []string
	competitors []string
	allowed     []string
}

// New copies and normalises the lists so later mutation by the caller has no effect.
func New(lists Lists) *Evaluator {
	return &Evaluator{
		internal:    normalizeDomains(lists.InternalDomains),
		suffixes:    normalizeDomains(lists.BlockedSuffixes),
		competitors: normalizeDomains(lists.CompetitorDomains),
		allowed:     normalizeDomains(lists.AllowedExternalDomains),
	}
}

// Classify evaluates a single hyperlink target.
func (e *Evaluator) Classify(raw string) domain.LinkClassification {
	target := strings.TrimSpace(raw)
	c := domain.LinkClassification{URL: target, Issues: []domain.LinkIssue{}}

	switch {
	case target == "":
		return invalid(c, "empty URL")
	case strings.HasPrefix(target, "#"):
		c.Type = domain.LinkAnchor
		return c
	case strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//"):
		c.Type = domain.LinkInternal
		return c
	}

	absolute := target
	if strings.HasPrefix(absolute, "//") {
		absolute = "https:" + absolute
	}

	parsed, err := url.Parse(absolute)
	if err != nil {
		return invalid(c, fmt.Sprintf("malformed URL: %v", err))
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	case "":
		return invalid(c, "relative URL must be root-relative")
	default:
		return invalid(c, fmt.Sprintf("unsupported scheme %q", parsed.Scheme))
	}

	host := strings.TrimSuffix(strings.ToLower(parsed.Hostname()), ".")
	if host == "" {
		return invalid(c, "URL has no host")
	}
	c.Domain = registrableDomain(host)

	if _, ok := firstMatch(host, e.internal); ok {
		c.Type = domain.LinkInternal
		return c
	}

	c.Type = domain.LinkExternal
	if suffix, ok := firstMatch(host, e.suffixes); ok {
		c.Raise(domain.SeverityBlocking)
		c.Issues = append(c.Issues, domain.LinkIssue{
			URL:     target,
			Rule:    domain.RuleBlockedSuffix,
			Message: fmt.Sprintf("links to .%s domains are not allowed: %s", suffix, host),
		})
	}
	if competitor, ok := firstMatch(host, e.competitors); ok {
		c.Raise(domain.SeverityBlocking)
		c.Issues = append(c.Issues, domain.LinkIssue{
			URL:     target,
			Rule:    domain.RuleCompetitor,
			Message: fmt.Sprintf("link to competitor domain %s: %s", competitor, host),
		})
	}
	if c.Severity == domain.SeverityBlocking {
		return c
	}

	if _, ok := firstMatch(host, e.allowed); !ok {
		c.Raise(domain.SeverityWarning)
		c.Issues = append(c.Issues, domain.LinkIssue{
			URL:     target,
			Rule:    domain.RuleUnlistedExternal,
			Message: fmt.Sprintf("external domain %s is not on the allow-list", c.Domain),
		})
	}
	return c
}

// Scan extracts every hyperlink from body, in order of appearance, and classifies it.
func (e *Evaluator) Scan(body string) domain.LinkScan {
	scan := domain.LinkScan{
		Links:          []domain.LinkClassification{},
		IsCompliant:    true,
		BlockingIssues: []domain.LinkIssue{},
		Warnings:       []domain.LinkIssue{},
	}

	for _, href := range ExtractLinks(body) {
		c := e.Classify(href)
		scan.Links = append(scan.Links, c)

		switch c.Type {
		case domain.LinkInternal, domain.LinkAnchor:
			scan.InternalCount++
		case domain.LinkExternal:
			scan.ExternalCount++
		}

		switch c.Severity {
		case domain.SeverityBlocking:
			scan.IsCompliant = false
			scan.BlockingIssues = append(scan.BlockingIssues, c.Issues...)
		case domain.SeverityWarning, domain.SeverityError:
			scan.Warnings = append(scan.Warnings, c.Issues...)
		}
	}

	return scan
}

// ExtractLinks returns the raw href of every anchor element in document order.
func ExtractLinks(body string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		links = append(links, href)
	})
	return links
}

func invalid(c domain.LinkClassification, reason string) domain.LinkClassification {
	c.Type = domain.LinkInvalid
	c.Raise(domain.SeverityError)
	c.Issues = append(c.Issues, domain.LinkIssue{
		URL:     c.URL,
		Rule:    domain.RuleMalformed,
		Message: fmt.Sprintf("invalid link %q: %s", c.URL, reason),
	})
	return c
}

// firstMatch returns the first entry host equals or is a subdomain of.
func firstMatch(host string, entries []string) (string, bool) {
	for _, entry := range entries {
		if host == entry || strings.HasSuffix(host, "."+entry) {
			return entry, true
		}
	}
	return "", false
}

func registrableDomain(host string) string {
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return registrable
}

func normalizeDomains(in []string) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}
