package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/zennify/zennify/internal/domain"
)

// ─── Accounts ───────────────────────────────────────────────────────────────

// CreateAccount inserts a new account. Emails are stored lower-cased.
func (d *DB) CreateAccount(ctx context.Context, a domain.Account) error {
	_, err := d.q.ExecContext(ctx,
		`INSERT INTO accounts (id, email, username, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, strings.ToLower(a.Email), a.Username, a.PasswordHash, a.CreatedAt.Unix(),
	)
	if isConstraint(err) {
		return domain.ErrEmailTaken
	}
	return domain.Remote("create account", err)
}

// AccountByEmail looks up an account. Returns (nil, nil) if absent.
func (d *DB) AccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	row := d.q.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash, created_at FROM accounts WHERE email = ?`,
		strings.ToLower(email),
	)
	a, err := scanAccount(row)
	return a, domain.Remote("account by email", err)
}

// AccountByID looks up an account. Returns (nil, nil) if absent.
func (d *DB) AccountByID(ctx context.Context, id string) (*domain.Account, error) {
	row := d.q.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash, created_at FROM accounts WHERE id = ?`, id,
	)
	a, err := scanAccount(row)
	return a, domain.Remote("account by id", err)
}

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	var createdAt int64
	err := s.Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt = unixOrZero(createdAt)
	return &a, nil
}

// ─── Revoked Sessions ───────────────────────────────────────────────────────

// RevokeToken records a signed-out token id.
func (d *DB) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	_, err := d.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (id, expires_at) VALUES (?, ?)`,
		tokenID, expiresAt.Unix(),
	)
	return domain.Remote("revoke token", err)
}

// PruneRevokedTokens drops revocations whose token expired before cutoff.
func (d *DB) PruneRevokedTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := d.q.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, cutoff.Unix(),
	)
	if err != nil {
		return 0, domain.Remote("prune revoked tokens", err)
	}
	return res.RowsAffected()
}

// IsTokenRevoked reports whether the token id was signed out.
func (d *DB) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	var count int
	err := d.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM revoked_tokens WHERE id = ?`, tokenID,
	).Scan(&count)
	if err != nil {
		return false, domain.Remote("is token revoked", err)
	}
	return count > 0, nil
}
