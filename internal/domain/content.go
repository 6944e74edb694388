package domain

import "time"

// ContentStatus enumerates the editorial lifecycle of a content record.
type ContentStatus string

const (
	StatusDraft     ContentStatus = "draft"
	StatusPublished ContentStatus = "published"
)

// FAQ is a single structured question/answer pair attached to an article.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Author is an approved contributor that may sign published content.
type Author struct {
	ID          string
	DisplayName string
}

// ContentRecord is the unit under validation and publication.
type ContentRecord struct {
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	Body              string        `json:"body"`
	AuthorID          string        `json:"author_id"`
	AuthorDisplayName string        `json:"author_display_name,omitempty"`
	MetaTitle         string        `json:"meta_title,omitempty"`
	MetaDescription   string        `json:"meta_description,omitempty"`
	FocusKeyword      string        `json:"focus_keyword,omitempty"`
	Slug              string        `json:"slug,omitempty"`
	Excerpt           string        `json:"excerpt,omitempty"`
	FAQs              []FAQ         `json:"faqs,omitempty"`
	WordCount         int           `json:"word_count"`
	QualityScore      int           `json:"quality_score"`
	RiskLevel         RiskLevel     `json:"risk_level"`
	Status            ContentStatus `json:"status"`
	ExternalPostID    string        `json:"external_post_id,omitempty"`
	ExternalURL       string        `json:"external_url,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
	PublishedAt       *time.Time    `json:"published_at,omitempty"`
}

// PublishUpdate is the local state mutation applied after a successful dispatch.
// Empty identifiers keep whatever the record already holds.
type PublishUpdate struct {
	ExternalPostID string
	ExternalURL    string
	PublishedAt    time.Time
}

// CatalogEntry is the derived record written to the internal cross-linking catalog.
type CatalogEntry struct {
	URL         string    `json:"url"`
	ArticleID   string    `json:"article_id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	ContentType string    `json:"content_type"`
	DegreeLevel string    `json:"degree_level"`
	SubjectArea string    `json:"subject_area"`
	WordCount   int       `json:"word_count"`
	SyncedAt    time.Time `json:"synced_at"`
}
