package domain

import (
	"fmt"
	"strings"
)

// Environment selects the publish endpoint.
type Environment string

const (
	EnvStaging    Environment = "staging"
	EnvProduction Environment = "production"
)

// ParseEnvironment accepts "staging" or "production"; an empty value is staging.
func ParseEnvironment(value string) (Environment, error) {
	switch Environment(strings.ToLower(strings.TrimSpace(value))) {
	case "", EnvStaging:
		return EnvStaging, nil
	case EnvProduction:
		return EnvProduction, nil
	}
	return "", fmt.Errorf("unknown environment %q", value)
}

// TargetStatus is the status requested on the remote side.
type TargetStatus string

const (
	TargetDraft   TargetStatus = "draft"
	TargetPublish TargetStatus = "publish"
)

// PublishOptions is the inbound options object for a dispatch.
type PublishOptions struct {
	Status                 TargetStatus `json:"status"`
	Environment            Environment  `json:"environment"`
	ValidateFirst          bool         `json:"validateFirst"`
	RequireMinQualityScore int          `json:"requireMinQualityScore"`
	BlockHighRisk          bool         `json:"blockHighRisk"`
}

// DefaultPublishOptions targets a staging draft with full validation.
func DefaultPublishOptions() PublishOptions {
	return PublishOptions{
		Status:                 TargetDraft,
		Environment:            EnvStaging,
		ValidateFirst:          true,
		RequireMinQualityScore: 70,
		BlockHighRisk:          true,
	}
}

// Normalize fills empty enum fields with safe defaults.
func (o PublishOptions) Normalize() PublishOptions {
	if o.Status == "" {
		o.Status = TargetDraft
	}
	if o.Environment == "" {
		o.Environment = EnvStaging
	}
	return o
}

// PublishPayload is the external projection of a content record for one dispatch attempt.
type PublishPayload struct {
	ArticleID         string       `json:"article_id"`
	Title             string       `json:"title"`
	Content           string       `json:"content"`
	Excerpt           string       `json:"excerpt"`
	Author            string       `json:"author"`
	AuthorDisplayName string       `json:"author_display_name"`
	MetaTitle         string       `json:"meta_title"`
	MetaDescription   string       `json:"meta_description"`
	FocusKeyword      string       `json:"focus_keyword"`
	Slug              string       `json:"slug"`
	FAQs              []FAQ        `json:"faqs"`
	Status            TargetStatus `json:"status"`
	Environment       Environment  `json:"environment"`
	PublishedAt       string       `json:"published_at"`
	QualityScore      int          `json:"quality_score"`
	RiskLevel         RiskLevel    `json:"risk_level"`
	WordCount         int          `json:"word_count"`
}

// DispatchRequest is one outbound call to the publish endpoint.
type DispatchRequest struct {
	AttemptID   string
	Environment Environment
	Payload     PublishPayload
}

// EndpointResponse is what the publish endpoint returned on success.
type EndpointResponse struct {
	StatusCode int    `json:"statusCode"`
	PostID     string `json:"postId,omitempty"`
	URL        string `json:"url,omitempty"`
}

// PublishResult is the outcome of one publish flow.
type PublishResult struct {
	Success         bool              `json:"success"`
	ArticleID       string            `json:"articleId"`
	AttemptID       string            `json:"attemptId,omitempty"`
	State           DispatchState     `json:"state"`
	Response        *EndpointResponse `json:"externalResponse,omitempty"`
	Error           string            `json:"error,omitempty"`
	ErrorClass      ErrorClass        `json:"errorClass,omitempty"`
	BlockingIssues  []Issue           `json:"blockingIssues,omitempty"`
	Verdict         *Verdict          `json:"verdict,omitempty"`
	LocalStateError string            `json:"localStateError,omitempty"`
}

// BulkResult aggregates a sequential batch of dispatches in input order.
type BulkResult struct {
	Total      int             `json:"total"`
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	Results    []PublishResult `json:"results"`
}
