package repos

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var collectionIndexes = map[string][]mongo.IndexModel{
	ToursCollection: {
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "slug", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}, {Key: "ratingAverage", Value: -1}}},
		{Keys: bson.D{{Key: "startLocation", Value: "2dsphere"}}},
	},
	UsersCollection: {
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	ReviewsCollection: {
		{Keys: bson.D{{Key: "tour", Value: 1}, {Key: "user", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	BookingsCollection: {
		{Keys: bson.D{{Key: "tour", Value: 1}}},
		{Keys: bson.D{{Key: "user", Value: 1}}},
	},
}

// EnsureIndexes creates the unique, compound and geo indexes the repositories rely on.
// Creating an index that already exists is a no-op.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, name := range []string{ToursCollection, UsersCollection, ReviewsCollection, BookingsCollection} {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, collectionIndexes[name]); err != nil {
			return fmt.Errorf("creating %s indexes: %w", name, err)
		}
	}

	return nil
}
