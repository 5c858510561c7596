package mongostore

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zennify/zennify/internal/domain"
)

// ─── Accounts ───────────────────────────────────────────────────────────────

// CreateAccount inserts a new account. The unique email index turns a
// duplicate into ErrEmailTaken.
func (s *Store) CreateAccount(ctx context.Context, a domain.Account) error {
	a.Email = strings.ToLower(a.Email)
	_, err := s.db.Collection(colAccounts).InsertOne(s.c(ctx), a)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrEmailTaken
	}
	return domain.Remote("create account", err)
}

func (s *Store) AccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var a domain.Account
	ok, err := s.findOne(ctx, colAccounts, bson.M{"email": strings.ToLower(email)}, &a)
	if err != nil || !ok {
		return nil, domain.Remote("account by email", err)
	}
	return &a, nil
}

func (s *Store) AccountByID(ctx context.Context, id string) (*domain.Account, error) {
	var a domain.Account
	ok, err := s.findOne(ctx, colAccounts, bson.M{"_id": id}, &a)
	if err != nil || !ok {
		return nil, domain.Remote("account by id", err)
	}
	return &a, nil
}

// ─── Revoked Sessions ───────────────────────────────────────────────────────

// RevokeToken records a signed-out token id. The TTL index drops it once
// the token would have expired anyway.
func (s *Store) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	doc := revokedDoc{ID: tokenID, ExpiresAt: expiresAt.UTC()}
	_, err := s.db.Collection(colRevoked).ReplaceOne(s.c(ctx), bson.M{"_id": tokenID}, doc,
		options.Replace().SetUpsert(true))
	return domain.Remote("revoke token", err)
}

func (s *Store) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.db.Collection(colRevoked).CountDocuments(s.c(ctx), bson.M{"_id": tokenID},
		options.Count().SetLimit(1))
	if err != nil {
		return false, domain.Remote("is token revoked", err)
	}
	return n > 0, nil
}

// PruneRevokedTokens removes revocations that the TTL monitor has not
// reaped yet.
func (s *Store) PruneRevokedTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.Collection(colRevoked).DeleteMany(s.c(ctx),
		bson.M{"expires_at": bson.M{"$lt": cutoff.UTC()}})
	if err != nil {
		return 0, domain.Remote("prune revoked tokens", err)
	}
	return res.DeletedCount, nil
}
