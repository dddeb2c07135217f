package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"profecia/internal/model"
)

// ── Users & Identities (MOD-USER, C8) ───────────────────

func CreateUser(ctx context.Context, q Queryer, username, walletSecret string, role model.Role) (*model.User, error) {
	u := &model.User{}
	err := q.QueryRowContext(ctx,
		`INSERT INTO users (id, username, wallet_secret, role) VALUES ($1,$2,$3,$4)
		 RETURNING id, username, wallet_secret, role, last_airdrop, created_at`,
		uuid.New().String(), username, walletSecret, role,
	).Scan(&u.ID, &u.Username, &u.WalletSecret, &u.Role, &u.LastAirdrop, &u.CreatedAt)
	return u, err
}

func CreateIdentity(ctx context.Context, q Queryer, userID, passwordHash string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO identities (user_id, password_hash) VALUES ($1,$2)`, userID, passwordHash)
	return err
}

func GetUserByUsername(ctx context.Context, q Queryer, username string) (*model.User, error) {
	u := &model.User{}
	err := q.QueryRowContext(ctx,
		`SELECT id, username, wallet_secret, role, last_airdrop, created_at FROM users WHERE username=$1`, username,
	).Scan(&u.ID, &u.Username, &u.WalletSecret, &u.Role, &u.LastAirdrop, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func GetUser(ctx context.Context, q Queryer, id string) (*model.User, error) {
	u := &model.User{}
	err := q.QueryRowContext(ctx,
		`SELECT id, username, wallet_secret, role, last_airdrop, created_at FROM users WHERE id=$1`, id,
	).Scan(&u.ID, &u.Username, &u.WalletSecret, &u.Role, &u.LastAirdrop, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func GetIdentity(ctx context.Context, q Queryer, userID string) (*model.Identity, error) {
	id := &model.Identity{}
	err := q.QueryRowContext(ctx,
		`SELECT user_id, password_hash FROM identities WHERE user_id=$1`, userID,
	).Scan(&id.UserID, &id.PasswordHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return id, err
}

func SetLastAirdrop(ctx context.Context, q Queryer, userID string, at time.Time) error {
	_, err := q.ExecContext(ctx, `UPDATE users SET last_airdrop=$1 WHERE id=$2`, at, userID)
	return err
}

func ListUsers(ctx context.Context, q Queryer) ([]model.User, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, username, wallet_secret, role, last_airdrop, created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.WalletSecret, &u.Role, &u.LastAirdrop, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ── Sessions ─────────────────────────────────────────

// CreateSession stores a caller-generated opaque session token (§3:
// session identifiers are unguessable crypto/rand tokens, not entity
// uuids — see internal/identity).
func CreateSession(ctx context.Context, q Queryer, id, userID string, ttl time.Duration) (*model.Session, error) {
	sess := &model.Session{}
	err := q.QueryRowContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at) VALUES ($1,$2,$3)
		 RETURNING id, user_id, created_at, expires_at`,
		id, userID, time.Now().Add(ttl),
	).Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	return sess, err
}

func GetSession(ctx context.Context, q Queryer, id string) (*model.Session, error) {
	sess := &model.Session{}
	err := q.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at FROM sessions WHERE id=$1`, id,
	).Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sess, err
}

func DeleteSession(ctx context.Context, q Queryer, id string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM sessions WHERE id=$1`, id)
	return err
}
