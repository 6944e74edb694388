// Package catalog derives cross-linking catalog entries from published articles.
package catalog

import (
	"net/url"
	"path"
	"strings"
	"time"

	"PublishGate/internal/content"
	"PublishGate/internal/domain"
)

type rule struct {
	value    string
	keywords []string
}

// Rules are matched in order; the first rule with a keyword hit wins.
var (
	contentTypes = []rule{
		{"ranking", []string{"best ", "top ", "ranking", "rankings", "ranked"}},
		{"comparison", []string{" vs ", " vs. ", "versus", "compare", "comparison"}},
		{"career", []string{"career", "salary", "salaries", "jobs", "job outlook"}},
		{"guide", []string{"how to", "guide", "what is", "steps to", "requirements"}},
	}

	degreeLevels = []rule{
		{"doctorate", []string{"doctorate", "doctoral", "phd", "ph.d", "dnp", " edd ", "ed.d"}},
		{"master", []string{"master", "masters", "mba", "msn", "m.s.", " med "}},
		{"bachelor", []string{"bachelor", "bachelors", "bsn", "undergraduate", "b.s."}},
		{"associate", []string{"associate degree", "associate's", "associates", " adn "}},
		{"certificate", []string{"certificate", "certification", "diploma"}},
	}

	subjectAreas = []rule{
		{"nursing", []string{"nursing", "nurse", " rn ", "bsn", "msn", "dnp"}},
		{"computer-science", []string{"computer science", "software", "programming", "cybersecurity", "data science"}},
		{"business", []string{"business", "mba", "accounting", "finance", "marketing", "management"}},
		{"education", []string{"education", "teaching", "teacher", "curriculum"}},
		{"psychology", []string{"psychology", "counseling", "mental health"}},
		{"healthcare", []string{"healthcare", "health care", "public health", "medical", "health administration"}},
		{"engineering", []string{"engineering", "engineer"}},
		{"criminal-justice", []string{"criminal justice", "criminology", "law enforcement", "forensic"}},
	}
)

// Classify builds the catalog entry for a published article by keyword matching over title and body.
func Classify(record domain.ContentRecord, externalURL string, now time.Time) domain.CatalogEntry {
	title := strings.ToLower(record.Title)
	text := " " + title + " " + strings.ToLower(content.PlainText(record.Body)) + " "

	words := record.WordCount
	if words <= 0 {
		words = content.WordCount(record.Body)
	}

	return domain.CatalogEntry{
		URL:         externalURL,
		ArticleID:   record.ID,
		Title:       record.Title,
		Slug:        SlugFromURL(externalURL, record),
		ContentType: match(contentTypes, " "+title+" ", "article"),
		DegreeLevel: match(degreeLevels, text, "general"),
		SubjectArea: match(subjectAreas, text, "general"),
		WordCount:   words,
		SyncedAt:    now.UTC(),
	}
}

// SlugFromURL takes the last path segment of the published URL, falling back to the record's slug or title.
func SlugFromURL(raw string, record domain.ContentRecord) string {
	if u, err := url.Parse(raw); err == nil {
		if seg := path.Base(strings.TrimSuffix(u.Path, "/")); seg != "." && seg != "/" && seg != "" {
			return seg
		}
	}
	if record.Slug != "" {
		return record.Slug
	}
	return content.Slugify(record.Title)
}

func match(rules []rule, text, fallback string) string {
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.value
			}
		}
	}
	return fallback
}
