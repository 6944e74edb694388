package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PublishGate/internal/domain"
)

var fixedNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func newRepo(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	repo := NewPostgres(mock)
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

var contentColumnNames = []string{
	"id", "title", "body", "author_id", "author_display_name", "meta_title", "meta_description",
	"focus_keyword", "slug", "excerpt", "faqs", "word_count", "quality_score", "risk_level", "status",
	"external_post_id", "external_url", "created_at", "updated_at", "published_at",
}

func TestGetScansRecord(t *testing.T) {
	repo, mock := newRepo(t)

	created := fixedNow.Add(-48 * time.Hour)
	mock.ExpectQuery(`SELECT id, title, body, author_id, .+ FROM content WHERE id = \$1`).
		WithArgs("a1").
		WillReturnRows(pgxmock.NewRows(contentColumnNames).AddRow(
			"a1", "Online RN to BSN Programs", "<p>body</p>", "jdoe", "", "Meta", "", "rn to bsn",
			"rn-to-bsn", "", []byte(`[{"question":"How long?","answer":"12 months"}]`), 2100, 88, "high",
			"draft", "", "", created, created, nil,
		))

	rec, err := repo.Get(context.Background(), "a1")
	require.NoError(t, err)

	assert.Equal(t, "Online RN to BSN Programs", rec.Title)
	assert.Equal(t, "jdoe", rec.AuthorID)
	assert.Equal(t, "Meta", rec.MetaTitle)
	assert.Equal(t, 2100, rec.WordCount)
	assert.Equal(t, 88, rec.QualityScore)
	assert.Equal(t, domain.RiskHigh, rec.RiskLevel)
	assert.Equal(t, domain.StatusDraft, rec.Status)
	assert.Equal(t, []domain.FAQ{{Question: "How long?", Answer: "12 months"}}, rec.FAQs)
	assert.Equal(t, created, rec.CreatedAt)
	assert.Nil(t, rec.PublishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(`FROM content WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrContentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRejectsUnknownRiskLevel(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(`FROM content WHERE id = \$1`).
		WithArgs("a2").
		WillReturnRows(pgxmock.NewRows(contentColumnNames).AddRow(
			"a2", "T", "", "jdoe", "", "", "", "", "", "", []byte(`[]`), 0, 0, "SEVERE",
			"draft", "", "", fixedNow, fixedNow, nil,
		))

	_, err := repo.Get(context.Background(), "a2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown risk level")
}

func TestMarkPublished(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec(`UPDATE content SET status = \$1, external_post_id = COALESCE\(NULLIF\(\$2, ''\), external_post_id\), external_url = COALESCE\(NULLIF\(\$3, ''\), external_url\), published_at = \$4, updated_at = \$5 WHERE id = \$6`).
		WithArgs("published", "wp-1", "", pgxmock.AnyArg(), pgxmock.AnyArg(), "a1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.MarkPublished(context.Background(), "a1", domain.PublishUpdate{ExternalPostID: "wp-1", PublishedAt: fixedNow})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPublishedMissingRow(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec(`UPDATE content`).
		WithArgs("published", "", "", pgxmock.AnyArg(), pgxmock.AnyArg(), "gone").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.MarkPublished(context.Background(), "gone", domain.PublishUpdate{})
	assert.ErrorIs(t, err, domain.ErrContentNotFound)
}

func TestMarkPublishedDriverError(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec(`UPDATE content`).
		WithArgs("published", "", "", pgxmock.AnyArg(), pgxmock.AnyArg(), "a1").
		WillReturnError(errors.New("connection reset"))

	err := repo.MarkPublished(context.Background(), "a1", domain.PublishUpdate{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mark published a1")
}

func TestUpsertCatalogEntry(t *testing.T) {
	repo, mock := newRepo(t)

	entry := domain.CatalogEntry{
		URL:         "https://degreeguide.example/rn-to-bsn",
		ArticleID:   "a1",
		Title:       "Online RN to BSN Programs",
		Slug:        "rn-to-bsn",
		ContentType: "ranking",
		DegreeLevel: "bachelor",
		SubjectArea: "nursing",
		WordCount:   2100,
		SyncedAt:    fixedNow,
	}

	mock.ExpectExec(`INSERT INTO catalog_entries \(url,article_id,title,slug,content_type,degree_level,subject_area,word_count,synced_at\) VALUES \(\$1,\$2,\$3,\$4,\$5,\$6,\$7,\$8,\$9\) ON CONFLICT \(url\) DO UPDATE`).
		WithArgs(entry.URL, "a1", entry.Title, "rn-to-bsn", "ranking", "bachelor", "nursing", 2100, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.UpsertCatalogEntry(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExists(t *testing.T) {
	tests := []struct {
		kind  domain.IdentifierKind
		table string
		found bool
	}{
		{kind: domain.IdentifierCategory, table: "categories", found: true},
		{kind: domain.IdentifierConcentration, table: "concentrations", found: false},
		{kind: domain.IdentifierLevel, table: "degree_levels", found: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			repo, mock := newRepo(t)

			mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM ` + tt.table + ` WHERE id = \$1\)`).
				WithArgs(int64(7)).
				WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(tt.found))

			ok, err := repo.Exists(context.Background(), tt.kind, 7)
			require.NoError(t, err)
			assert.Equal(t, tt.found, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestExistsUnknownKind(t *testing.T) {
	repo, _ := newRepo(t)

	_, err := repo.Exists(context.Background(), "campus", 1)
	assert.Error(t, err)
}
