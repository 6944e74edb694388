// Package publisher is the HTTP adapter for the external publishing endpoint.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"PublishGate/internal/domain"
	"PublishGate/internal/ports"
)

const (
	userAgent    = "PublishGate/1.0"
	maxErrorBody = 4 << 10
)

// Client posts publish payloads to an environment-specific URL.
type Client struct {
	endpoints map[domain.Environment]string
	apiKey    string
	http      *http.Client
}

var _ ports.PublishEndpoint = (*Client)(nil)

// NewClient creates a reusable HTTP client. Environments with an empty URL are unconfigured.
func NewClient(endpoints map[domain.Environment]string, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	urls := make(map[domain.Environment]string, len(endpoints))
	for env, u := range endpoints {
		if u = strings.TrimSpace(u); u != "" {
			urls[env] = u
		}
	}
	return &Client{
		endpoints: urls,
		apiKey:    apiKey,
		http:      &http.Client{Timeout: timeout},
	}
}

// Send issues exactly one POST and interprets the response.
func (c *Client) Send(ctx context.Context, dispatch domain.DispatchRequest) (domain.EndpointResponse, error) {
	endpoint, ok := c.endpoints[dispatch.Environment]
	if !ok {
		return domain.EndpointResponse{}, fmt.Errorf("%w: %s", domain.ErrEndpointNotConfigured, dispatch.Environment)
	}

	body, err := json.Marshal(dispatch.Payload)
	if err != nil {
		return domain.EndpointResponse{}, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.EndpointResponse{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if dispatch.AttemptID != "" {
		req.Header.Set("X-Request-ID", dispatch.AttemptID)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.EndpointResponse{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.EndpointResponse{}, &domain.TransportError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(detail)),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.EndpointResponse{}, fmt.Errorf("read response: %w", err)
	}

	out := domain.EndpointResponse{StatusCode: resp.StatusCode}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}

	var decoded response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return domain.EndpointResponse{}, fmt.Errorf("decode response: %w", err)
	}
	out.PostID = firstID(decoded.PostID, decoded.ID)
	out.URL = firstString(decoded.URL, decoded.Link)
	return out, nil
}

type response struct {
	PostID json.RawMessage `json:"post_id"`
	ID     json.RawMessage `json:"id"`
	URL    string          `json:"url"`
	Link   string          `json:"link"`
}

// firstID accepts string or numeric identifiers.
func firstID(candidates ...json.RawMessage) string {
	for _, raw := range candidates {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s != "" {
				return s
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String()
		}
	}
	return ""
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
