package usecase

import (
	"strings"
	"time"

	"PublishGate/internal/content"
	"PublishGate/internal/domain"
)

const excerptLength = 160

// BuildPayload projects a record onto the publish endpoint's schema for one attempt.
func BuildPayload(record domain.ContentRecord, opts domain.PublishOptions, authorName string, now time.Time) domain.PublishPayload {
	opts = opts.Normalize()

	excerpt := strings.TrimSpace(record.Excerpt)
	if excerpt == "" {
		excerpt = content.Excerpt(record.Body, excerptLength)
	}

	displayName := strings.TrimSpace(record.AuthorDisplayName)
	if displayName == "" {
		displayName = authorName
	}
	if displayName == "" {
		displayName = record.AuthorID
	}

	words := record.WordCount
	if words <= 0 {
		words = content.WordCount(record.Body)
	}

	faqs := record.FAQs
	if faqs == nil {
		faqs = []domain.FAQ{}
	}

	return domain.PublishPayload{
		ArticleID:         record.ID,
		Title:             record.Title,
		Content:           record.Body,
		Excerpt:           excerpt,
		Author:            record.AuthorID,
		AuthorDisplayName: displayName,
		MetaTitle:         firstNonEmpty(record.MetaTitle, record.Title),
		MetaDescription:   firstNonEmpty(record.MetaDescription, excerpt),
		FocusKeyword:      record.FocusKeyword,
		Slug:              firstNonEmpty(record.Slug, content.Slugify(record.Title)),
		FAQs:              faqs,
		Status:            opts.Status,
		Environment:       opts.Environment,
		PublishedAt:       now.UTC().Format(time.RFC3339),
		QualityScore:      record.QualityScore,
		RiskLevel:         record.RiskLevel,
		WordCount:         words,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
