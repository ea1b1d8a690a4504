package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// userIDField is the document key profiles are looked up by.
const userIDField = "User_ID"

// ProfileRepository reads and writes user profile documents.
type ProfileRepository struct {
	collection *mongo.Collection
}

// NewProfileRepository creates a repository over the named collection.
func NewProfileRepository(client *Client, collection string) *ProfileRepository {
	return &ProfileRepository{collection: client.Collection(collection)}
}

// FindProfile looks up the profile document for userID. A missing profile
// is reported as found=false, not as an error.
func (r *ProfileRepository) FindProfile(ctx context.Context, userID string) (map[string]any, bool, error) {
	var doc bson.M
	err := r.collection.FindOne(ctx, bson.M{userIDField: userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find profile %s: %w", userID, err)
	}

	delete(doc, "_id")
	return map[string]any(doc), true, nil
}

// SampleUserIDs returns up to limit known user IDs, used to suggest
// alternatives when a lookup misses.
func (r *ProfileRepository) SampleUserIDs(ctx context.Context, limit int) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{userIDField: 1}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("sample user ids: %w", err)
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode sample document: %w", err)
		}
		if id, ok := doc[userIDField].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, cursor.Err()
}

// Count returns the number of profile documents.
func (r *ProfileRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}

// InsertBatch inserts a batch of profile documents.
func (r *ProfileRepository) InsertBatch(ctx context.Context, docs []any) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	result, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("insert profiles: %w", err)
	}
	return len(result.InsertedIDs), nil
}

// EnsureIndexes creates the indexes profile queries rely on. Index
// creation failures are returned but are safe to treat as non-fatal.
func (r *ProfileRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: userIDField, Value: 1}}},
		{Keys: bson.D{{Key: "Country", Value: 1}, {Key: "Age", Value: 1}}},
		{Keys: bson.D{{Key: "Risk_Tolerance", Value: 1}, {Key: "Investment_Type", Value: 1}}},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create profile indexes: %w", err)
	}
	return nil
}
