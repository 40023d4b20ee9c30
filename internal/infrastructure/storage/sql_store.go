package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"NewsDigest/internal/dedup"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const processedTable = "processed_articles"

// Dialect selects the SQL flavour and driver used by SQLStore.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func (d Dialect) driverName() string {
	if d == DialectSQLite {
		return "sqlite3"
	}
	return "postgres"
}

func (d Dialect) placeholders() sq.PlaceholderFormat {
	if d == DialectSQLite {
		return sq.Question
	}
	return sq.Dollar
}

// SQLStore persists processed articles in Postgres or SQLite.
type SQLStore struct {
	db      *sqlx.DB
	dialect Dialect
	builder sq.StatementBuilderType
	now     func() time.Time
}

var _ ports.ArticleStore = (*SQLStore)(nil)

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	db, err := sqlx.ConnectContext(ctx, dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", dialect, err)
	}
	return newSQLStore(db, dialect), nil
}

// NewSQLStore wraps an existing sql.DB.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return newSQLStore(sqlx.NewDb(db, dialect.driverName()), dialect)
}

func newSQLStore(db *sqlx.DB, dialect Dialect) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: dialect,
		builder: sq.StatementBuilder.PlaceholderFormat(dialect.placeholders()),
		now:     time.Now,
	}
}

// WithClock overrides the insert timestamp source.
func (s *SQLStore) WithClock(now func() time.Time) *SQLStore {
	s.now = now
	return s
}

// Migrate creates the processed_articles table and its lookup index if missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema(s.dialect) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// FindByURL returns the stored article with exactly this URL.
func (s *SQLStore) FindByURL(ctx context.Context, url string) (*domain.MatchRecord, error) {
	query, args, err := s.builder.
		Select("url", "title", "processed_at").
		From(processedTable).
		Where(sq.Eq{"url": url}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build url query: %w", err)
	}

	return s.getMatch(ctx, query, args)
}

// FindByTitleAndDay returns the earliest processed article with the same normalized
// title whose published_at falls inside the day window. Ties break on id.
func (s *SQLStore) FindByTitleAndDay(ctx context.Context, normalizedTitle string, day domain.DayWindow) (*domain.MatchRecord, error) {
	query, args, err := s.builder.
		Select("url", "title", "processed_at").
		From(processedTable).
		Where(sq.Eq{"normalized_title": normalizedTitle}).
		Where(sq.GtOrEq{"published_at": day.Start}).
		Where(sq.Lt{"published_at": day.End}).
		OrderBy("processed_at ASC", "id ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build title query: %w", err)
	}

	return s.getMatch(ctx, query, args)
}

// Save inserts a processed article. An existing URL yields domain.ErrDuplicateKey.
func (s *SQLStore) Save(ctx context.Context, url, title, publishedAt string) error {
	query, args, err := s.builder.
		Insert(processedTable).
		Columns("url", "title", "normalized_title", "published_at", "processed_at").
		Values(url, title, dedup.NormalizeTitle(title), publishedAt, s.now().UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("save %s: %w", url, domain.ErrDuplicateKey)
		}
		return fmt.Errorf("save %s: %w", url, err)
	}

	return nil
}

// ListProcessed returns the most recently processed articles first.
func (s *SQLStore) ListProcessed(ctx context.Context, limit int) ([]domain.ProcessedArticle, error) {
	if limit <= 0 {
		limit = 20
	}

	query, args, err := s.builder.
		Select("id", "url", "title", "normalized_title", "published_at", "processed_at").
		From(processedTable).
		OrderBy("processed_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	var articles []domain.ProcessedArticle
	if err := s.db.SelectContext(ctx, &articles, query, args...); err != nil {
		return nil, fmt.Errorf("list processed: %w", err)
	}
	return articles, nil
}

// ClearProcessed deletes every processed article and reports how many were removed.
func (s *SQLStore) ClearProcessed(ctx context.Context) (int64, error) {
	query, args, err := s.builder.Delete(processedTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear processed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear processed: %w", err)
	}
	return n, nil
}

// Close releases the connection pool.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) getMatch(ctx context.Context, query string, args []interface{}) (*domain.MatchRecord, error) {
	var record domain.MatchRecord
	if err := s.db.GetContext(ctx, &record, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query processed: %w", err)
	}
	return &record, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func schema(dialect Dialect) []string {
	index := `CREATE INDEX IF NOT EXISTS idx_normalized_title_date
		ON processed_articles(normalized_title, published_at)`

	if dialect == DialectSQLite {
		return []string{
			`CREATE TABLE IF NOT EXISTS processed_articles (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				url TEXT UNIQUE NOT NULL,
				title TEXT NOT NULL,
				normalized_title TEXT NOT NULL,
				published_at TEXT NOT NULL,
				processed_at DATETIME NOT NULL
			)`,
			index,
		}
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS processed_articles (
			id BIGSERIAL PRIMARY KEY,
			url TEXT UNIQUE NOT NULL,
			title TEXT NOT NULL,
			normalized_title TEXT NOT NULL,
			published_at TEXT NOT NULL,
			processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		index,
	}
}
