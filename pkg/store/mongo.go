package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperr "github.com/matzehuels/limn/pkg/errors"
)

// Collection is the subset of *mongo.Collection used by [MongoStore].
type Collection interface {
	ReplaceOne(ctx context.Context, filter any, replacement any, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult
	DeleteOne(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// MongoConfig configures [NewMongoStore].
type MongoConfig struct {
	URI        string
	Database   string // default "limn"
	Collection string // default "snapshots"
}

// MongoStore keeps records in a MongoDB collection, one document per
// record with the record id as _id. It is safe for concurrent use.
type MongoStore struct {
	client *mongo.Client
	coll   Collection
}

// NewMongoStore connects to MongoDB and pings the primary.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	db := cmp.Or(cfg.Database, "limn")
	coll := cmp.Or(cfg.Collection, "snapshots")
	return &MongoStore{client: client, coll: client.Database(db).Collection(coll)}, nil
}

// NewMongoStoreFromCollection wraps an existing collection. Close is a
// no-op for stores built this way.
func NewMongoStoreFromCollection(coll Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

// Save upserts the record.
func (s *MongoStore) Save(ctx context.Context, r *Record) error {
	if err := validate(r); err != nil {
		return err
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": r.ID}, r, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", r.ID, err)
	}
	return nil
}

// Load fetches a record by id.
func (s *MongoStore) Load(ctx context.Context, id string) (*Record, error) {
	if err := apperr.ValidateName(id); err != nil {
		return nil, err
	}
	var r Record
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	return &r, nil
}

// Delete removes a record.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if err := apperr.ValidateName(id); err != nil {
		return err
	}
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", id, err)
	}
	return nil
}

// List returns every record sorted by creation time, without snapshots.
func (s *MongoStore) List(ctx context.Context) ([]*Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"snapshot": 0})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	var out []*Record
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	for _, r := range out {
		r.Snapshot = nil
	}
	return out, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
