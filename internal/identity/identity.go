// Package identity implements C8: registration, login, session
// authentication, and the airdrop cooldown state machine (spec.md §3,
// §4.8).
package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"regexp"
	"time"

	"go.uber.org/zap"

	"profecia/internal/apperr"
	"profecia/internal/db"
	"profecia/internal/ledger"
	"profecia/internal/model"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)

const airdropCents = 1000

type Service struct {
	store           *db.Store
	ledger          ledger.Ledger
	log             *zap.Logger
	sessionTTL      time.Duration
	airdropCooldown time.Duration
}

func New(store *db.Store, lg ledger.Ledger, log *zap.Logger, sessionTTL, airdropCooldown time.Duration) *Service {
	return &Service{store: store, ledger: lg, log: log, sessionTTL: sessionTTL, airdropCooldown: airdropCooldown}
}

// Register validates the username/password, creates a custodial
// wallet via the ledger, and inserts the user + identity in a single
// transaction (spec.md §3).
func (s *Service) Register(ctx context.Context, username, password string) (*model.User, error) {
	v := &apperr.FieldValidator{}
	v.Require(len(username) >= 3 && len(username) <= 32, "username", "must be 3-32 characters")
	v.Require(usernamePattern.MatchString(username), "username", "must match ^[A-Za-z0-9_.]+$")
	v.Require(len(password) >= 8, "password", "must be at least 8 characters")
	if err := v.Err(); err != nil {
		return nil, err
	}

	existing, err := db.GetUserByUsername(ctx, s.store.DB, username)
	if err != nil {
		return nil, apperr.DatabaseErr(err)
	}
	if existing != nil {
		return nil, apperr.New(apperr.UserAlreadyExists, "username already taken")
	}

	wallet, err := s.ledger.CreateCustodialWallet(ctx)
	if err != nil {
		return nil, apperr.LedgerErr(err)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, "password hashing failed", err)
	}

	var user *model.User
	tx, err := s.store.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.DatabaseErr(err)
	}
	defer tx.Rollback()

	user, err = db.CreateUser(ctx, tx, username, string(wallet), model.RoleUser)
	if err != nil {
		return nil, apperr.DatabaseErr(err)
	}
	if err := db.CreateIdentity(ctx, tx, user.ID, hash); err != nil {
		return nil, apperr.DatabaseErr(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.DatabaseErr(err)
	}
	return user, nil
}

// Login verifies the password and issues a new session.
func (s *Service) Login(ctx context.Context, username, password string) (*model.Session, *model.User, error) {
	user, err := db.GetUserByUsername(ctx, s.store.DB, username)
	if err != nil {
		return nil, nil, apperr.DatabaseErr(err)
	}
	if user == nil {
		return nil, nil, apperr.New(apperr.InvalidCredentials, "invalid username or password")
	}
	identity, err := db.GetIdentity(ctx, s.store.DB, user.ID)
	if err != nil {
		return nil, nil, apperr.DatabaseErr(err)
	}
	if identity == nil || !verifyPassword(password, identity.PasswordHash) {
		return nil, nil, apperr.New(apperr.InvalidCredentials, "invalid username or password")
	}

	tokenID, err := newSessionToken()
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Unexpected, "session token generation failed", err)
	}
	sess, err := db.CreateSession(ctx, s.store.DB, tokenID, user.ID, s.sessionTTL)
	if err != nil {
		return nil, nil, apperr.DatabaseErr(err)
	}
	return sess, user, nil
}

// Authenticate looks up a session by its opaque token, rejecting and
// garbage-collecting it if expired.
func (s *Service) Authenticate(ctx context.Context, sessionID string) (*model.User, error) {
	sess, err := db.GetSession(ctx, s.store.DB, sessionID)
	if err != nil {
		return nil, apperr.DatabaseErr(err)
	}
	if sess == nil {
		return nil, apperr.New(apperr.Unauthorized, "session not found")
	}
	if !sess.Valid(time.Now()) {
		_ = db.DeleteSession(ctx, s.store.DB, sessionID)
		return nil, apperr.New(apperr.Unauthorized, "session expired")
	}
	user, err := db.GetUser(ctx, s.store.DB, sess.UserID)
	if err != nil {
		return nil, apperr.DatabaseErr(err)
	}
	if user == nil {
		return nil, apperr.New(apperr.Unauthorized, "user not found")
	}
	return user, nil
}

// Airdrop credits a fixed amount to the user's wallet subject to a
// cooldown (spec.md §4.8).
func (s *Service) Airdrop(ctx context.Context, userID string) (ledger.TxRef, error) {
	user, err := db.GetUser(ctx, s.store.DB, userID)
	if err != nil {
		return "", apperr.DatabaseErr(err)
	}
	if user == nil {
		return "", apperr.New(apperr.UserNotFound, "user not found")
	}

	now := time.Now()
	if user.LastAirdrop != nil && now.Before(user.LastAirdrop.Add(s.airdropCooldown)) {
		return "", apperr.New(apperr.AirdropCooldown, "airdrop is still on cooldown")
	}

	ref, err := s.ledger.Airdrop(ctx, ledger.Wallet(user.WalletSecret), airdropCents)
	if err != nil {
		return "", apperr.LedgerErr(err)
	}
	if err := db.SetLastAirdrop(ctx, s.store.DB, userID, now); err != nil {
		s.log.Error("failed to persist last_airdrop after successful ledger airdrop",
			zap.String("user_id", userID), zap.Error(err))
		return ref, apperr.DatabaseErr(err)
	}
	return ref, nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
