// Package mongostore implements the document store on MongoDB. Lifecycle
// transactions need a replica set or sharded cluster.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zennify/zennify/internal/domain"
)

// Collection names.
const (
	colProgress      = "progress"
	colDailyQuests   = "daily_quests"
	colMoods         = "moods"
	colNotifications = "notifications"
	colAccounts      = "accounts"
	colRevoked       = "revoked_tokens"
)

var (
	_ domain.Store        = (*Store)(nil)
	_ domain.AccountStore = (*Store)(nil)
)

// Store is a MongoDB-backed document store. A Store handed to a RunInTx
// callback routes every call through the transaction's session.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	sc     mongo.SessionContext
}

// Open connects to uri, verifies the connection and ensures indexes.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("mongo uri required")
	}
	if database == "" {
		database = "zennify"
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := &Store{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// Close disconnects the client. Closing a transaction view is a no-op.
func (s *Store) Close() error {
	if s.sc != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return domain.Remote("ping", s.client.Ping(s.c(ctx), nil))
}

// RunInTx runs fn inside a session transaction. Nested calls join the
// outer transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(tx domain.Store) error) error {
	if s.sc != nil {
		return fn(s)
	}
	session, err := s.client.StartSession()
	if err != nil {
		return domain.Remote("start session", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(&Store{client: s.client, db: s.db, sc: sc})
	})
	return txError(err)
}

// txError classifies a transaction result: driver failures become remote
// errors, domain errors from the callback pass through unchanged.
func txError(err error) error {
	if err == nil {
		return nil
	}
	var re *domain.RemoteError
	if errors.As(err, &re) || !isDriverError(err) {
		return err
	}
	return domain.Remote("transaction", err)
}

// c returns the context calls must run under.
func (s *Store) c(ctx context.Context) context.Context {
	if s.sc != nil {
		return s.sc
	}
	return ctx
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colAccounts: {{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		}},
		colDailyQuests: {{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("user_date"),
		}},
		colMoods: {{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index().SetUnique(true).SetName("user_date"),
		}},
		colNotifications: {{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("user_created"),
		}},
		colRevoked: {{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_ttl"),
		}},
	}
	for col, models := range indexes {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", col, err)
		}
	}
	return nil
}

func isDriverError(err error) bool {
	var cmd mongo.CommandError
	var srv mongo.ServerError
	return errors.As(err, &cmd) || errors.As(err, &srv) ||
		mongo.IsNetworkError(err) || mongo.IsTimeout(err)
}

// docKey is the _id of per-date documents.
func docKey(userID, date string) string {
	return userID + "/" + date
}

func upsert() *options.ReplaceOptions {
	return options.Replace().SetUpsert(true)
}
