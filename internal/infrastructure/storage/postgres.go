package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"PublishGate/internal/domain"
	"PublishGate/internal/ports"
)

// DBTX is the subset of pgxpool.Pool the repository needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres persists content records, catalog entries and monetization identifiers.
type Postgres struct {
	db  DBTX
	sql sq.StatementBuilderType
	now func() time.Time
}

var (
	_ ports.ContentRepository  = (*Postgres)(nil)
	_ ports.CatalogRepository  = (*Postgres)(nil)
	_ ports.IdentifierRegistry = (*Postgres)(nil)
)

// NewPostgres wires a pgx pool (or anything shaped like one).
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{
		db:  db,
		sql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		now: time.Now,
	}
}

var contentColumns = []string{
	"id",
	"title",
	"body",
	"author_id",
	"COALESCE(author_display_name, '')",
	"COALESCE(meta_title, '')",
	"COALESCE(meta_description, '')",
	"COALESCE(focus_keyword, '')",
	"COALESCE(slug, '')",
	"COALESCE(excerpt, '')",
	"COALESCE(faqs, '[]'::jsonb)",
	"word_count",
	"quality_score",
	"risk_level",
	"status",
	"COALESCE(external_post_id, '')",
	"COALESCE(external_url, '')",
	"created_at",
	"updated_at",
	"published_at",
}

// Get loads one content record by id.
func (r *Postgres) Get(ctx context.Context, id string) (domain.ContentRecord, error) {
	query, args, err := r.sql.Select(contentColumns...).
		From("content").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.ContentRecord{}, fmt.Errorf("build select content: %w", err)
	}

	var (
		rec       domain.ContentRecord
		faqs      []byte
		riskLevel string
		status    string
	)
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&rec.ID,
		&rec.Title,
		&rec.Body,
		&rec.AuthorID,
		&rec.AuthorDisplayName,
		&rec.MetaTitle,
		&rec.MetaDescription,
		&rec.FocusKeyword,
		&rec.Slug,
		&rec.Excerpt,
		&faqs,
		&rec.WordCount,
		&rec.QualityScore,
		&riskLevel,
		&status,
		&rec.ExternalPostID,
		&rec.ExternalURL,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&rec.PublishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ContentRecord{}, fmt.Errorf("%w: %s", domain.ErrContentNotFound, id)
	}
	if err != nil {
		return domain.ContentRecord{}, fmt.Errorf("select content %s: %w", id, err)
	}

	if len(faqs) > 0 {
		if err := json.Unmarshal(faqs, &rec.FAQs); err != nil {
			return domain.ContentRecord{}, fmt.Errorf("decode faqs of %s: %w", id, err)
		}
	}
	if rec.RiskLevel, err = domain.ParseRiskLevel(riskLevel); err != nil {
		return domain.ContentRecord{}, fmt.Errorf("content %s: %w", id, err)
	}
	rec.Status = domain.ContentStatus(status)

	return rec, nil
}

// MarkPublished flips the record to published. Empty identifiers keep the stored values.
func (r *Postgres) MarkPublished(ctx context.Context, id string, update domain.PublishUpdate) error {
	publishedAt := update.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = r.now()
	}

	query, args, err := r.sql.Update("content").
		Set("status", string(domain.StatusPublished)).
		Set("external_post_id", sq.Expr("COALESCE(NULLIF(?, ''), external_post_id)", update.ExternalPostID)).
		Set("external_url", sq.Expr("COALESCE(NULLIF(?, ''), external_url)", update.ExternalURL)).
		Set("published_at", publishedAt.UTC()).
		Set("updated_at", r.now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update content: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark published %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrContentNotFound, id)
	}

	return nil
}

// UpsertCatalogEntry writes the derived catalog row, keyed by URL.
func (r *Postgres) UpsertCatalogEntry(ctx context.Context, entry domain.CatalogEntry) error {
	syncedAt := entry.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = r.now()
	}

	query, args, err := r.sql.Insert("catalog_entries").
		Columns("url", "article_id", "title", "slug", "content_type", "degree_level", "subject_area", "word_count", "synced_at").
		Values(entry.URL, entry.ArticleID, entry.Title, entry.Slug, entry.ContentType, entry.DegreeLevel, entry.SubjectArea, entry.WordCount, syncedAt.UTC()).
		Suffix(`ON CONFLICT (url) DO UPDATE
              SET article_id = EXCLUDED.article_id,
                  title = EXCLUDED.title,
                  slug = EXCLUDED.slug,
                  content_type = EXCLUDED.content_type,
                  degree_level = EXCLUDED.degree_level,
                  subject_area = EXCLUDED.subject_area,
                  word_count = EXCLUDED.word_count,
                  synced_at = EXCLUDED.synced_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert catalog: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert catalog %s: %w", entry.URL, err)
	}

	return nil
}

var identifierTables = map[domain.IdentifierKind]string{
	domain.IdentifierCategory:      "categories",
	domain.IdentifierConcentration: "concentrations",
	domain.IdentifierLevel:         "degree_levels",
}

// Exists reports whether an identifier of the given kind is present.
func (r *Postgres) Exists(ctx context.Context, kind domain.IdentifierKind, id int64) (bool, error) {
	table, ok := identifierTables[kind]
	if !ok {
		return false, fmt.Errorf("unknown identifier kind %q", kind)
	}

	inner, args, err := r.sql.Select("1").From(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists %s: %w", kind, err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, "SELECT EXISTS ("+inner+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("lookup %s %d: %w", kind, id, err)
	}

	return exists, nil
}
