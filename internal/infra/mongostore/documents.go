package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zennify/zennify/internal/domain"
)

type questDoc struct {
	ID                          string `bson:"_id"`
	domain.DailyQuestAssignment `bson:",inline"`
}

type moodDoc struct {
	ID               string `bson:"_id"`
	domain.MoodEntry `bson:",inline"`
}

type revokedDoc struct {
	ID        string    `bson:"_id"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// findOne decodes the document matching filter into out. Returns false
// when nothing matches.
func (s *Store) findOne(ctx context.Context, col string, filter any, out any) (bool, error) {
	err := s.db.Collection(col).FindOne(s.c(ctx), filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ─── Progress ───────────────────────────────────────────────────────────────

func (s *Store) GetProgress(ctx context.Context, userID string) (*domain.UserProgress, error) {
	var p domain.UserProgress
	ok, err := s.findOne(ctx, colProgress, bson.M{"_id": userID}, &p)
	if err != nil || !ok {
		return nil, domain.Remote("get progress", err)
	}
	if p.UnlockedBadgeIDs == nil {
		p.UnlockedBadgeIDs = []string{}
	}
	return &p, nil
}

func (s *Store) PutProgress(ctx context.Context, p domain.UserProgress) error {
	if p.UnlockedBadgeIDs == nil {
		p.UnlockedBadgeIDs = []string{}
	}
	_, err := s.db.Collection(colProgress).ReplaceOne(s.c(ctx), bson.M{"_id": p.UserID}, p, upsert())
	return domain.Remote("put progress", err)
}

// ─── Daily Quests ───────────────────────────────────────────────────────────

func (s *Store) GetDailyQuests(ctx context.Context, userID, date string) (*domain.DailyQuestAssignment, error) {
	var d questDoc
	ok, err := s.findOne(ctx, colDailyQuests, bson.M{"_id": docKey(userID, date)}, &d)
	if err != nil || !ok {
		return nil, domain.Remote("get daily quests", err)
	}
	a := d.DailyQuestAssignment
	if a.Quests == nil {
		a.Quests = []domain.QuestInstance{}
	}
	return &a, nil
}

func (s *Store) PutDailyQuests(ctx context.Context, a domain.DailyQuestAssignment) error {
	if a.Quests == nil {
		a.Quests = []domain.QuestInstance{}
	}
	doc := questDoc{ID: docKey(a.UserID, a.Date), DailyQuestAssignment: a}
	_, err := s.db.Collection(colDailyQuests).ReplaceOne(s.c(ctx), bson.M{"_id": doc.ID}, doc, upsert())
	return domain.Remote("put daily quests", err)
}

// ─── Moods ──────────────────────────────────────────────────────────────────

func (s *Store) GetMood(ctx context.Context, userID, date string) (*domain.MoodEntry, error) {
	var d moodDoc
	ok, err := s.findOne(ctx, colMoods, bson.M{"_id": docKey(userID, date)}, &d)
	if err != nil || !ok {
		return nil, domain.Remote("get mood", err)
	}
	return &d.MoodEntry, nil
}

func (s *Store) PutMood(ctx context.Context, m domain.MoodEntry) error {
	doc := moodDoc{ID: docKey(m.UserID, m.Date), MoodEntry: m}
	_, err := s.db.Collection(colMoods).ReplaceOne(s.c(ctx), bson.M{"_id": doc.ID}, doc, upsert())
	return domain.Remote("put mood", err)
}

func (s *Store) RecentMoods(ctx context.Context, userID string, limit int) ([]domain.MoodEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}}).SetLimit(int64(limit))
	return s.findMoods(ctx, "recent moods", bson.M{"user_id": userID}, opts)
}

func (s *Store) MoodsBetween(ctx context.Context, userID, from, to string) ([]domain.MoodEntry, error) {
	filter := bson.M{"user_id": userID, "date": bson.M{"$gte": from, "$lte": to}}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	return s.findMoods(ctx, "moods between", filter, opts)
}

func (s *Store) findMoods(ctx context.Context, op string, filter any, opts *options.FindOptions) ([]domain.MoodEntry, error) {
	cur, err := s.db.Collection(colMoods).Find(s.c(ctx), filter, opts)
	if err != nil {
		return nil, domain.Remote(op, err)
	}
	var docs []moodDoc
	if err := cur.All(s.c(ctx), &docs); err != nil {
		return nil, domain.Remote(op, err)
	}
	out := make([]domain.MoodEntry, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.MoodEntry)
	}
	return out, nil
}

// ─── Notifications ──────────────────────────────────────────────────────────

func (s *Store) InsertNotification(ctx context.Context, n domain.Notification) error {
	_, err := s.db.Collection(colNotifications).InsertOne(s.c(ctx), n)
	return domain.Remote("insert notification", err)
}

func (s *Store) NotificationCountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	n, err := s.db.Collection(colNotifications).CountDocuments(s.c(ctx),
		bson.M{"user_id": userID, "created_at": bson.M{"$gte": since}})
	return int(n), domain.Remote("count notifications", err)
}

func (s *Store) PendingNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := s.db.Collection(colNotifications).Find(s.c(ctx),
		bson.M{"user_id": userID, "shown": false}, opts)
	if err != nil {
		return nil, domain.Remote("pending notifications", err)
	}
	out := []domain.Notification{}
	if err := cur.All(s.c(ctx), &out); err != nil {
		return nil, domain.Remote("pending notifications", err)
	}
	return out, nil
}

func (s *Store) MarkNotificationShown(ctx context.Context, userID, id string) error {
	_, err := s.db.Collection(colNotifications).UpdateOne(s.c(ctx),
		bson.M{"_id": id, "user_id": userID}, bson.M{"$set": bson.M{"shown": true}})
	return domain.Remote("mark notification shown", err)
}
