// Package sqlite is a single-file entity store on the pure Go SQLite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/solm0/solmee-xyz-keystone/application/ports"
	"github.com/solm0/solmee-xyz-keystone/domain/core/entities"
	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
	"github.com/solm0/solmee-xyz-keystone/infrastructure/persistence/sqlite/migrations"
	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
)

// Store implements ports.EntityStore on SQLite. Every mutation runs in one transaction.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

var _ ports.EntityStore = (*Store)(nil)

// NewStore opens (or creates) the database at path and runs pending migrations
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// foreign_keys is per connection, so it goes in the DSN for every pooled connection
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path, logger: logger}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("SQLite store ready", zap.String("path", path))
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Ping checks that the database answers
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return pkgerrors.NewStoreUnavailableError("ping", err)
	}
	return nil
}

// migrate runs all pending migrations
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// FetchAllKeywords returns the vocabulary in creation order
func (s *Store) FetchAllKeywords(ctx context.Context) ([]entities.Keyword, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM keywords ORDER BY seq`)
	if err != nil {
		return nil, mapError("fetch keywords", err)
	}
	defer rows.Close()

	out := make([]entities.Keyword, 0)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, mapError("fetch keywords", err)
		}
		out = append(out, entities.ReconstructKeyword(id, name))
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("fetch keywords", err)
	}
	return out, nil
}

// ReadArticleKeywordIDs returns the article's keyword ids in association order
func (s *Store) ReadArticleKeywordIDs(ctx context.Context, articleID valueobjects.ArticleID) ([]string, error) {
	if err := s.requireArticle(ctx, s.db, articleID); err != nil {
		return nil, err
	}
	return queryStrings(ctx, s.db, "read article keywords",
		`SELECT keyword_id FROM article_keywords WHERE article_id = ? ORDER BY position`, articleID.String())
}

// SetArticleKeywords replaces the article's keyword set in one transaction.
// The UNIQUE name and foreign key constraints reject stale plans.
func (s *Store) SetArticleKeywords(ctx context.Context, articleID valueobjects.ArticleID, connectIDs, createNames []string) ([]entities.Keyword, error) {
	const op = "set article keywords"

	var result []entities.Keyword
	err := s.withTx(ctx, op, func(tx *sql.Tx) error {
		if err := s.requireArticle(ctx, tx, articleID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM article_keywords WHERE article_id = ?`, articleID.String()); err != nil {
			return mapError(op, err)
		}

		result = make([]entities.Keyword, 0, len(connectIDs)+len(createNames))
		position := 0
		for _, id := range connectIDs {
			var name string
			err := tx.QueryRowContext(ctx, `SELECT name FROM keywords WHERE id = ?`, id).Scan(&name)
			if errors.Is(err, sql.ErrNoRows) {
				return pkgerrors.NewConstraintViolationError(op, "keyword "+id+" does not exist")
			}
			if err != nil {
				return mapError(op, err)
			}
			if err := linkKeyword(ctx, tx, articleID, id, position); err != nil {
				return err
			}
			result = append(result, entities.ReconstructKeyword(id, name))
			position++
		}

		for _, name := range createNames {
			k, err := entities.NewKeyword(name)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO keywords (id, name) VALUES (?, ?)`, k.ID.String(), name); err != nil {
				return mapError(op, err)
			}
			if err := linkKeyword(ctx, tx, articleID, k.ID.String(), position); err != nil {
				return err
			}
			result = append(result, k)
			position++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func linkKeyword(ctx context.Context, tx *sql.Tx, articleID valueobjects.ArticleID, keywordID string, position int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO article_keywords (article_id, keyword_id, position) VALUES (?, ?, ?)
		ON CONFLICT(article_id, keyword_id) DO NOTHING
	`, articleID.String(), keywordID, position)
	return mapError("set article keywords", err)
}

// ReadArticlePreviousLinkTargets returns the recorded internal link targets
func (s *Store) ReadArticlePreviousLinkTargets(ctx context.Context, articleID valueobjects.ArticleID) ([]string, error) {
	if err := s.requireArticle(ctx, s.db, articleID); err != nil {
		return nil, err
	}
	return queryStrings(ctx, s.db, "read internal links",
		`SELECT target_id FROM internal_links WHERE source_id = ? ORDER BY position`, articleID.String())
}

// ApplyInternalLinkDelta connects and disconnects targets in one transaction.
// Backlinks are derived from the same rows, so they cannot drift.
func (s *Store) ApplyInternalLinkDelta(ctx context.Context, articleID valueobjects.ArticleID, connect, disconnect []string) error {
	const op = "apply internal link delta"

	return s.withTx(ctx, op, func(tx *sql.Tx) error {
		if err := s.requireArticle(ctx, tx, articleID); err != nil {
			return err
		}
		for _, target := range disconnect {
			if _, err := tx.ExecContext(ctx, `DELETE FROM internal_links WHERE source_id = ? AND target_id = ?`, articleID.String(), target); err != nil {
				return mapError(op, err)
			}
		}

		var next int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), -1) + 1 FROM internal_links WHERE source_id = ?`, articleID.String()).Scan(&next); err != nil {
			return mapError(op, err)
		}
		for _, target := range connect {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO internal_links (source_id, target_id, position) VALUES (?, ?, ?)
				ON CONFLICT(source_id, target_id) DO NOTHING
			`, articleID.String(), target, next)
			if err != nil {
				return mapError(op, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				next++
			}
		}
		return nil
	})
}

// SaveArticle creates or updates an article record, keeping its associations
func (s *Store) SaveArticle(ctx context.Context, article *entities.Article) error {
	details := article.Details()
	var publishedAt sql.NullString
	if details.PublishedAt != nil {
		publishedAt = sql.NullString{String: formatTime(*details.PublishedAt), Valid: true}
	}
	var order sql.NullInt64
	if details.Order != nil {
		order = sql.NullInt64{Int64: int64(*details.Order), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO articles (id, title, status, tag_id, published_at, sort_order, meta, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			status = excluded.status,
			tag_id = excluded.tag_id,
			published_at = excluded.published_at,
			sort_order = excluded.sort_order,
			meta = excluded.meta,
			updated_at = excluded.updated_at
	`, article.ID().String(), article.Title(), string(article.Status()), nullString(article.TagID()),
		publishedAt, order, details.Meta,
		formatTime(article.CreatedAt()), formatTime(article.UpdatedAt()))
	return mapError("save article", err)
}

// GetArticle returns an article record
func (s *Store) GetArticle(ctx context.Context, articleID valueobjects.ArticleID) (*entities.Article, error) {
	var (
		title, status        string
		tagID, publishedAt   sql.NullString
		order                sql.NullInt64
		meta                 bool
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT title, status, tag_id, published_at, sort_order, meta, created_at, updated_at
		FROM articles WHERE id = ?
	`, articleID.String()).Scan(&title, &status, &tagID, &publishedAt, &order, &meta, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("article " + articleID.String())
	}
	if err != nil {
		return nil, mapError("get article", err)
	}

	var details entities.Details
	details.Meta = meta
	if publishedAt.Valid {
		t := parseTime(publishedAt.String)
		details.PublishedAt = &t
	}
	if order.Valid {
		o := int(order.Int64)
		details.Order = &o
	}

	return entities.ReconstructArticle(
		articleID, title, valueobjects.ArticleStatus(status), tagID.String, details,
		parseTime(createdAt), parseTime(updatedAt),
	), nil
}

// AssignTag sets the article tag
func (s *Store) AssignTag(ctx context.Context, articleID valueobjects.ArticleID, tagID string) error {
	if strings.TrimSpace(tagID) == "" {
		return pkgerrors.NewValidationError("tag id cannot be empty")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE articles SET tag_id = ?, updated_at = ? WHERE id = ?`,
		tagID, formatTime(time.Now()), articleID.String())
	if err != nil {
		return mapError("assign tag", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pkgerrors.NewNotFoundError("article " + articleID.String())
	}
	return nil
}

// SetCuratedLinks replaces the curated links; backlinks are read from the same rows
func (s *Store) SetCuratedLinks(ctx context.Context, articleID valueobjects.ArticleID, targets []string) error {
	const op = "set curated links"

	return s.withTx(ctx, op, func(tx *sql.Tx) error {
		if err := s.requireArticle(ctx, tx, articleID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM curated_links WHERE source_id = ?`, articleID.String()); err != nil {
			return mapError(op, err)
		}
		for i, target := range targets {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO curated_links (source_id, target_id, position) VALUES (?, ?, ?)
				ON CONFLICT(source_id, target_id) DO NOTHING
			`, articleID.String(), target, i)
			if err != nil {
				return mapError(op, err)
			}
		}
		return nil
	})
}

// GetArticleGraph returns every association of an article
func (s *Store) GetArticleGraph(ctx context.Context, articleID valueobjects.ArticleID) (*entities.ArticleGraph, error) {
	const op = "get article graph"

	article, err := s.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	id := articleID.String()

	rows, err := s.db.QueryContext(ctx, `
		SELECT k.id, k.name FROM article_keywords ak
		JOIN keywords k ON k.id = ak.keyword_id
		WHERE ak.article_id = ? ORDER BY ak.position
	`, id)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()
	kws := make([]entities.Keyword, 0)
	for rows.Next() {
		var kid, name string
		if err := rows.Scan(&kid, &name); err != nil {
			return nil, mapError(op, err)
		}
		kws = append(kws, entities.ReconstructKeyword(kid, name))
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}

	graph := &entities.ArticleGraph{
		ArticleID: id,
		Title:     article.Title(),
		Status:    string(article.Status()),
		TagID:     article.TagID(),
		Details:   article.Details(),
		Keywords:  kws,
	}

	lists := []struct {
		dst   *[]string
		query string
	}{
		{&graph.Links, `SELECT target_id FROM curated_links WHERE source_id = ? ORDER BY position`},
		{&graph.Backlinks, `SELECT source_id FROM curated_links WHERE target_id = ? ORDER BY source_id`},
		{&graph.InternalLinks, `SELECT target_id FROM internal_links WHERE source_id = ? ORDER BY position`},
		{&graph.InternalBacklinks, `SELECT source_id FROM internal_links WHERE target_id = ? ORDER BY source_id`},
	}
	for _, l := range lists {
		values, err := queryStrings(ctx, s.db, op, l.query, id)
		if err != nil {
			return nil, err
		}
		*l.dst = values
	}
	return graph, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) requireArticle(ctx context.Context, q querier, articleID valueobjects.ArticleID) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM articles WHERE id = ?`, articleID.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return pkgerrors.NewNotFoundError("article " + articleID.String())
	}
	return mapError("read article", err)
}

func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(op, err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("Rollback failed", zap.String("operation", op), zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError(op, err)
	}
	return nil
}

func queryStrings(ctx context.Context, q querier, op, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, mapError(op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return out, nil
}

// mapError sorts driver errors into the error taxonomy
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if pkgerrors.GetAppError(err) != nil {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.NewStoreUnavailableError(op, err)
	}

	var se *moderncsqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return pkgerrors.NewConstraintViolationError(op, "unique constraint failed")
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return pkgerrors.NewConstraintViolationError(op, "referenced record does not exist")
		}
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_IOERR, sqlite3.SQLITE_CANTOPEN:
			return pkgerrors.NewStoreUnavailableError(op, err)
		case sqlite3.SQLITE_CONSTRAINT:
			return pkgerrors.NewConstraintViolationError(op, se.Error())
		}
	}
	return pkgerrors.Wrap(err, op)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
