package mongodb

import (
	"comments/domain"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"
)

type MongoRepository struct {
	client   *mongo.Client
	comments *mongo.Collection
}

func NewMongoRepository(ctx context.Context, uri, database, collection string, timeout time.Duration) (*MongoRepository, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	zap.L().Info("Connected to MongoDB",
		zap.String("database", database),
		zap.String("collection", collection),
	)

	return &MongoRepository{
		client:   client,
		comments: client.Database(database).Collection(collection),
	}, nil
}

func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

// EnsureIndexes creates the single-field indexes backing the list filters.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.comments.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: domain.CommentFieldItemID, Value: 1}},
			Options: options.Index().SetName("idx_comments_item_id"),
		},
		{
			Keys:    bson.D{{Key: domain.CommentFieldUserID, Value: 1}},
			Options: options.Index().SetName("idx_comments_user_id"),
		},
	})
	return err
}

func (r *MongoRepository) FindComments(ctx context.Context, filter domain.CommentFilter) ([]domain.Comment, error) {
	cur, err := r.comments.Find(ctx, toBSONFilter(filter))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	comments := make([]domain.Comment, 0)
	if err := cur.All(ctx, &comments); err != nil {
		return nil, err
	}

	return comments, nil
}

func (r *MongoRepository) DeleteCommentByID(ctx context.Context, id string) (domain.Comment, error) {
	var c domain.Comment

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return c, fmt.Errorf("%w %q: %v", domain.ErrInvalidCommentID, id, err)
	}

	err = r.comments.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return c, domain.ErrCommentNotFound
	}

	return c, err
}

func toBSONFilter(filter domain.CommentFilter) bson.M {
	m := bson.M{}
	for field, value := range filter {
		m[field] = value
	}
	return m
}
