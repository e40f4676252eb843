package pages

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists generated pages
type Store interface {
	Create(ctx context.Context, page *Page) error
	Get(ctx context.Context, id int64) (*Page, error)
	Update(ctx context.Context, page *Page) error
	Delete(ctx context.Context, id int64) error
	ListRecent(ctx context.Context, userID int64, limit int) ([]*Page, error)
}

// PostgresStore implements Store over database/sql. The queries are
// portable enough to run against SQLite in tests.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore creates a new page store
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithTx returns a store whose queries run inside tx
func (s *PostgresStore) WithTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{db: tx}
}

const pageColumns = `id, user_id, title, description, prompt, generated_html, generated_css,
		       template_style, status, metadata, created_at, updated_at`

// Create inserts page and sets its ID. CreatedAt and UpdatedAt must be set by the caller.
func (s *PostgresStore) Create(ctx context.Context, page *Page) error {
	metadata, err := encodeMetadata(page.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO generated_pages (user_id, title, description, prompt, generated_html, generated_css,
		                             template_style, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err = s.db.QueryRowContext(ctx, query,
		page.UserID,
		page.Title,
		nullString(page.Description),
		page.Prompt,
		page.HTML,
		nullString(page.CSS),
		page.Style,
		page.Status,
		metadata,
		page.CreatedAt,
		page.UpdatedAt,
	).Scan(&page.ID)
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}
	return nil
}

// Get returns the page with id or ErrPageNotFound
func (s *PostgresStore) Get(ctx context.Context, id int64) (*Page, error) {
	query := `SELECT ` + pageColumns + ` FROM generated_pages WHERE id = $1`

	page, err := scanPage(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return page, nil
}

// Update overwrites every mutable column of page
func (s *PostgresStore) Update(ctx context.Context, page *Page) error {
	metadata, err := encodeMetadata(page.Metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE generated_pages
		SET title = $1, description = $2, prompt = $3, generated_html = $4, generated_css = $5,
		    template_style = $6, status = $7, metadata = $8, updated_at = $9
		WHERE id = $10
	`
	result, err := s.db.ExecContext(ctx, query,
		page.Title,
		nullString(page.Description),
		page.Prompt,
		page.HTML,
		nullString(page.CSS),
		page.Style,
		page.Status,
		metadata,
		page.UpdatedAt,
		page.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update page: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPageNotFound
	}
	return nil
}

// Delete removes the page with id
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM generated_pages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPageNotFound
	}
	return nil
}

// ListRecent returns the user's newest pages first
func (s *PostgresStore) ListRecent(ctx context.Context, userID int64, limit int) ([]*Page, error) {
	query := `
		SELECT ` + pageColumns + `
		FROM generated_pages
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var pages []*Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pages: %w", err)
	}
	return pages, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(row rowScanner) (*Page, error) {
	var (
		page        Page
		description sql.NullString
		css         sql.NullString
		status      string
		metadata    []byte
		createdAt   time.Time
		updatedAt   time.Time
	)
	err := row.Scan(&page.ID, &page.UserID, &page.Title, &description, &page.Prompt, &page.HTML, &css,
		&page.Style, &status, &metadata, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	page.Description = description.String
	page.CSS = css.String
	page.Status = Status(status)
	page.CreatedAt = createdAt
	page.UpdatedAt = updatedAt

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &page.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode page metadata: %w", err)
		}
	}
	return &page, nil
}

func encodeMetadata(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode page metadata: %w", err)
	}
	return string(b), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
