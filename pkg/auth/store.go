package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PostgresTokenStore implements TokenStore over the api_tokens table
type PostgresTokenStore struct {
	db *sql.DB
}

// NewPostgresTokenStore creates a new token store
func NewPostgresTokenStore(db *sql.DB) *PostgresTokenStore {
	return &PostgresTokenStore{db: db}
}

// Create inserts token and sets its ID
func (s *PostgresTokenStore) Create(ctx context.Context, token *APIToken) error {
	query := `
		INSERT INTO api_tokens (user_id, token_hash, token_prefix, name, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		token.UserID, token.TokenHash, token.TokenPrefix, token.Name, nullTime(token.ExpiresAt), token.CreatedAt,
	).Scan(&token.ID)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

// GetByHash returns the token with hash and its owner's email
func (s *PostgresTokenStore) GetByHash(ctx context.Context, hash string) (*APIToken, error) {
	query := `
		SELECT t.id, t.user_id, t.token_hash, t.token_prefix, t.name, t.expires_at, t.revoked_at,
		       t.last_used_at, t.created_at, u.email
		FROM api_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = $1
	`
	var (
		token                        APIToken
		expiresAt, revokedAt, usedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, hash).Scan(
		&token.ID, &token.UserID, &token.TokenHash, &token.TokenPrefix, &token.Name,
		&expiresAt, &revokedAt, &usedAt, &token.CreatedAt, &token.UserEmail,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	token.ExpiresAt = timePtr(expiresAt)
	token.RevokedAt = timePtr(revokedAt)
	token.LastUsedAt = timePtr(usedAt)
	return &token, nil
}

// Touch records a successful use of token id
func (s *PostgresTokenStore) Touch(ctx context.Context, id int64, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE api_tokens SET last_used_at = $1 WHERE id = $2`, at, id); err != nil {
		return fmt.Errorf("failed to update token usage: %w", err)
	}
	return nil
}

// Revoke marks the user's token id revoked
func (s *PostgresTokenStore) Revoke(ctx context.Context, userID, id int64, at time.Time) error {
	query := `
		UPDATE api_tokens
		SET revoked_at = $1
		WHERE id = $2 AND user_id = $3 AND revoked_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, at, id, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// ListByUser lists the user's tokens, revoked ones included, newest first
func (s *PostgresTokenStore) ListByUser(ctx context.Context, userID int64) ([]*APIToken, error) {
	query := `
		SELECT id, user_id, token_prefix, name, expires_at, revoked_at, last_used_at, created_at
		FROM api_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*APIToken
	for rows.Next() {
		var (
			token                        APIToken
			expiresAt, revokedAt, usedAt sql.NullTime
		)
		if err := rows.Scan(&token.ID, &token.UserID, &token.TokenPrefix, &token.Name,
			&expiresAt, &revokedAt, &usedAt, &token.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		token.ExpiresAt = timePtr(expiresAt)
		token.RevokedAt = timePtr(revokedAt)
		token.LastUsedAt = timePtr(usedAt)
		tokens = append(tokens, &token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tokens: %w", err)
	}
	return tokens, nil
}

// UserStore looks up and provisions users
type UserStore interface {
	Create(ctx context.Context, email, name string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ResolveSubject(ctx context.Context, subject, email, name string) (*User, error)
}

// PostgresUserStore implements UserStore over the users table
type PostgresUserStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresUserStore creates a new user store
func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db, now: time.Now}
}

const userColumns = `id, email, name, oidc_subject, created_at, updated_at`

// Create adds a user with a unique email
func (s *PostgresUserStore) Create(ctx context.Context, email, name string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if name == "" {
		name = email
	}

	now := s.now().UTC()
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (email, name, created_at, updated_at) VALUES ($1, $2, $3, $3) RETURNING id`,
		email, name, now,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &User{ID: id, Email: email, Name: name, CreatedAt: now, UpdatedAt: now}, nil
}

// GetByEmail returns the user with email or ErrUserNotFound
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.getBy(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

// ResolveSubject maps an OIDC subject to a user. An unknown subject is
// linked to the user with the same email, or a new user is created.
func (s *PostgresUserStore) ResolveSubject(ctx context.Context, subject, email, name string) (*User, error) {
	user, err := s.getBy(ctx, "oidc_subject", subject)
	if !errors.Is(err, ErrUserNotFound) {
		return user, err
	}
	if email == "" {
		return nil, fmt.Errorf("%w: no email claim for subject %s", ErrUserNotFound, subject)
	}

	user, err = s.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		user, err = s.Create(ctx, email, name)
	}
	if err != nil {
		return nil, err
	}
	return s.linkSubject(ctx, user, subject)
}

func (s *PostgresUserStore) linkSubject(ctx context.Context, user *User, subject string) (*User, error) {
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET oidc_subject = $1, updated_at = $2 WHERE id = $3`,
		subject, now, user.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to link oidc subject: %w", err)
	}
	user.OIDCSubject = subject
	user.UpdatedAt = now
	return user, nil
}

func (s *PostgresUserStore) getBy(ctx context.Context, column, value string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`

	var (
		user    User
		subject sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, value).
		Scan(&user.ID, &user.Email, &user.Name, &subject, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.OIDCSubject = subject.String
	return &user, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
