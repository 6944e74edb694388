package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PublishGate/internal/config"
	"PublishGate/internal/domain"
	"PublishGate/internal/validator"
)

func articleBody() string {
	var sb strings.Builder
	for _, heading := range []string{"Overview", "Admission Requirements", "Career Outlook"} {
		fmt.Fprintf(&sb, "<h2>%s</h2><p>%s</p>", heading, strings.Repeat("nursing degree ", 300))
	}
	sb.WriteString(`<p>See <a href="/rankings/nursing">our rankings</a> and <a href="https://www.bls.gov/ooh/">BLS data</a>.</p>`)
	sb.WriteString(`[degree_table category=4 level=2]`)
	return sb.String()
}

func writeSeed(t *testing.T, dir string) string {
	t.Helper()

	seed := map[string]any{
		"records": []domain.ContentRecord{{
			ID:           "a1",
			Title:        "Online RN to BSN Programs",
			Body:         articleBody(),
			AuthorID:     "jdoe",
			WordCount:    1800,
			QualityScore: 85,
			FAQs: []domain.FAQ{
				{Question: "How long?", Answer: "12 months"},
				{Question: "Online?", Answer: "Yes"},
				{Question: "Cost?", Answer: "Varies"},
			},
		}},
		"identifiers": map[string][]int64{"category": {4}, "level": {2}},
	}
	raw, err := json.Marshal(seed)
	require.NoError(t, err)

	path := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func loadConfig(t *testing.T, endpoint string) config.Config {
	t.Helper()

	dir := t.TempDir()
	yaml := fmt.Sprintf(`
server:
  listenAddr: 127.0.0.1:0
  shutdownTimeout: 2s
store:
  seedFile: %s
publish:
  stagingUrl: %s
  bulkDelay: 1ms
links:
  internalDomains: [degreeguide.example]
authors:
  - id: jdoe
    displayName: Jordan Doe
`, writeSeed(t, dir), endpoint)

	path := filepath.Join(dir, "publishgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("DATABASE_DSN", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("LISTEN_ADDR", "")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestPublishEndToEnd(t *testing.T) {
	var hits atomic.Int32
	var payload domain.PublishPayload
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_, _ = w.Write([]byte(`{"post_id": 812, "url": "https://degreeguide.example/online-rn-to-bsn"}`))
	}))
	defer endpoint.Close()

	application, err := New(context.Background(), loadConfig(t, endpoint.URL), nil)
	require.NoError(t, err)
	defer application.Close()

	api := httptest.NewServer(application.Handler())
	defer api.Close()

	resp, err := http.Post(api.URL+"/v1/content/a1/validate", "application/json", nil)
	require.NoError(t, err)
	var verdict domain.Verdict
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&verdict))
	resp.Body.Close()
	assert.True(t, verdict.CanPublish, "%+v", verdict.BlockingIssues)
	assert.Empty(t, verdict.Warnings)

	resp, err = http.Post(api.URL+"/v1/content/a1/publish", "application/json", strings.NewReader(`{"status": "publish"}`))
	require.NoError(t, err)
	var result domain.PublishResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, result.Success)
	assert.Equal(t, domain.StatePublished, result.State)
	require.NotNil(t, result.Response)
	assert.Equal(t, "812", result.Response.PostID)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, "Jordan Doe", payload.AuthorDisplayName)
	assert.Equal(t, domain.TargetPublish, payload.Status)

	application.dispatcher.Drain()
}

func TestEmptyStoreLeavesReferencesUnverified(t *testing.T) {
	cfg := loadConfig(t, "")
	cfg.Store.SeedFile = ""

	application, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer application.Close()

	api := httptest.NewServer(application.Handler())
	defer api.Close()

	record, err := json.Marshal(map[string]any{"record": domain.ContentRecord{
		ID:           "m1",
		Title:        "Online RN to BSN Programs",
		Body:         articleBody(),
		AuthorID:     "jdoe",
		WordCount:    1800,
		QualityScore: 85,
		FAQs:         []domain.FAQ{{Question: "1"}, {Question: "2"}, {Question: "3"}},
	}})
	require.NoError(t, err)

	resp, err := http.Post(api.URL+"/v1/validate?registry=true", "application/json", strings.NewReader(string(record)))
	require.NoError(t, err)
	var verdict domain.Verdict
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&verdict))
	resp.Body.Close()

	assert.True(t, verdict.CanPublish, "%+v", verdict.BlockingIssues)
	assert.False(t, verdict.HasBlocking(domain.IssueInvalidReference))
}

func TestBuildValidatorAppliesConfiguredLists(t *testing.T) {
	cfg := loadConfig(t, "")
	cfg.Links.CompetitorDomains = []string{"rival-site.com"}

	v := BuildValidator(cfg, nil, nil, nil)
	verdict := v.Validate(domain.ContentRecord{
		ID:       "c1",
		AuthorID: "jdoe",
		Body:     `<a href="https://rival-site.com/rankings">rankings</a>`,
	}, validator.DefaultPolicy())

	assert.False(t, verdict.CanPublish)
	require.NotEmpty(t, verdict.BlockingIssues)
	assert.Equal(t, domain.IssueCompetitorLink, verdict.BlockingIssues[0].Kind)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	cfg := loadConfig(t, "")
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cfg.Server.ListenAddr = l.Addr().String()
	require.NoError(t, l.Close())

	application, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer application.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + cfg.Server.ListenAddr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
