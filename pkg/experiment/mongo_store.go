package experiment

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoAssignmentStore persists assignments and conversions in MongoDB.
// Write-once assignment semantics come from an upsert that only sets fields
// on insert: repeated saves for an existing (experiment, user) pair leave
// the original document untouched.
type MongoAssignmentStore struct {
	assignments *mongo.Collection
	conversions *mongo.Collection
}

// NewMongoAssignmentStore creates a store over the given database using the
// experiment_assignments and experiment_conversions collections.
func NewMongoAssignmentStore(db *mongo.Database) (*MongoAssignmentStore, error) {
	if db == nil {
		return nil, ErrStoreNil
	}
	return &MongoAssignmentStore{
		assignments: db.Collection("experiment_assignments"),
		conversions: db.Collection("experiment_conversions"),
	}, nil
}

// EnsureIndexes creates the unique index backing write-once assignments.
func (s *MongoAssignmentStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.assignments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "experiment_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

type assignmentDoc struct {
	ExperimentID string    `bson:"experiment_id"`
	UserID       string    `bson:"user_id"`
	VariantID    string    `bson:"variant_id"`
	AssignedAt   time.Time `bson:"assigned_at"`
}

// LoadAssignments returns the user's assignments keyed by experiment id.
func (s *MongoAssignmentStore) LoadAssignments(ctx context.Context, userID string) (map[string]string, error) {
	cursor, err := s.assignments.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	var docs []assignmentDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	result := make(map[string]string, len(docs))
	for _, doc := range docs {
		result[doc.ExperimentID] = doc.VariantID
	}
	return result, nil
}

// SaveAssignment upserts the assignment; only a missing document is
// written.
func (s *MongoAssignmentStore) SaveAssignment(ctx context.Context, a Assignment) error {
	_, err := s.assignments.UpdateOne(ctx,
		bson.M{"experiment_id": a.ExperimentID, "user_id": a.UserID},
		bson.M{"$setOnInsert": bson.M{
			"variant_id":  a.VariantID,
			"assigned_at": a.AssignedAt,
		}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// SaveConversion inserts a conversion document.
func (s *MongoAssignmentStore) SaveConversion(ctx context.Context, c Conversion) error {
	_, err := s.conversions.InsertOne(ctx, bson.M{
		"experiment_id": c.ExperimentID,
		"user_id":       c.UserID,
		"variant_id":    c.VariantID,
		"metric_id":     c.MetricID,
		"value":         c.Value,
		"occurred_at":   c.OccurredAt,
	})
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
