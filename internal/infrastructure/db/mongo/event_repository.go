package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ankunstudio/backoffice/internal/core/domain"
)

const (
	authEventsCollection = "auth_events"
	maxRecentEvents      = 200
)

// AuthEventRepository implements ports.AuthEventRepository using MongoDB.
type AuthEventRepository struct {
	coll *mongo.Collection
}

// NewAuthEventRepository creates a new AuthEventRepository.
func NewAuthEventRepository(db *mongo.Database) *AuthEventRepository {
	return &AuthEventRepository{coll: db.Collection(authEventsCollection)}
}

type authEventDoc struct {
	Username string    `bson:"username"`
	Action   string    `bson:"action"`
	Success  bool      `bson:"success"`
	Source   string    `bson:"source,omitempty"`
	Message  string    `bson:"message,omitempty"`
	At       time.Time `bson:"at"`
}

// InsertEvent persists an authentication outcome to the auth_events collection.
func (r *AuthEventRepository) InsertEvent(ctx context.Context, event *domain.AuthEvent) error {
	doc := authEventDoc{
		Username: event.Username,
		Action:   event.Action,
		Success:  event.Success,
		Source:   string(event.Source),
		Message:  event.Message,
		At:       event.At.UTC(),
	}
	if doc.At.IsZero() {
		doc.At = time.Now().UTC()
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}

// Recent returns the newest events, optionally filtered by username.
// limit is capped at maxRecentEvents.
func (r *AuthEventRepository) Recent(ctx context.Context, username string, limit int) ([]domain.AuthEvent, error) {
	if limit <= 0 || limit > maxRecentEvents {
		limit = maxRecentEvents
	}

	filter := bson.M{}
	if username != "" {
		filter["username"] = username
	}
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: -1}}).SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find auth events: %w", err)
	}
	defer cur.Close(ctx)

	var docs []authEventDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode auth events: %w", err)
	}

	events := make([]domain.AuthEvent, 0, len(docs))
	for _, d := range docs {
		events = append(events, domain.AuthEvent{
			Username: d.Username,
			Action:   d.Action,
			Success:  d.Success,
			Source:   domain.CredentialSource(d.Source),
			Message:  d.Message,
			At:       d.At,
		})
	}
	return events, nil
}
