package artworks

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"visioncloud-backend/internal/vision"
)

// CollectionName is the Mongo collection holding artwork documents.
const CollectionName = "artworks"

// MongoRepo implements Repo on a MongoDB collection.
type MongoRepo struct {
	Coll *mongo.Collection
}

type artworkDoc struct {
	ID                  string            `bson:"_id"`
	UserID              string            `bson:"userId"`
	Title               string            `bson:"title"`
	Genres              []vision.Genre    `bson:"genres"`
	Analysis            vision.Analysis   `bson:"analysis"`
	OriginalKey         string            `bson:"originalKey"`
	OriginalContentType string            `bson:"originalContentType"`
	IllustrationKeys    map[string]string `bson:"illustrationKeys"`
	Shared              bool              `bson:"shared"`
	CreatedAt           time.Time         `bson:"createdAt"`
}

// summaryProjection keeps the analysis payload out of list queries.
var summaryProjection = bson.D{
	{Key: "_id", Value: 1},
	{Key: "userId", Value: 1},
	{Key: "title", Value: 1},
	{Key: "genres", Value: 1},
	{Key: "originalKey", Value: 1},
	{Key: "shared", Value: 1},
	{Key: "createdAt", Value: 1},
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// NewMongoRepo returns a repo on db's artworks collection.
func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{Coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the owner and community listing indexes.
func (r *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.Coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "shared", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	return err
}

// Create inserts the artwork document.
func (r *MongoRepo) Create(ctx context.Context, a Artwork) error {
	_, err := r.Coll.InsertOne(ctx, toDoc(a))
	return err
}

// GetByID fetches an artwork by ID.
func (r *MongoRepo) GetByID(ctx context.Context, id string) (Artwork, error) {
	var doc artworkDoc
	if err := r.Coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Artwork{}, ErrNotFound
		}
		return Artwork{}, err
	}
	return fromDoc(doc), nil
}

// ListByUser returns summaries owned by userID, newest first.
func (r *MongoRepo) ListByUser(ctx context.Context, userID string) ([]Summary, error) {
	opts := options.Find().SetSort(newestFirst).SetProjection(summaryProjection)
	return r.find(ctx, bson.D{{Key: "userId", Value: userID}}, opts)
}

// ListShared returns shared summaries, newest first.
func (r *MongoRepo) ListShared(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = DefaultCommunityLimit
	}
	opts := options.Find().SetSort(newestFirst).SetProjection(summaryProjection).SetLimit(int64(limit))
	return r.find(ctx, bson.D{{Key: "shared", Value: true}}, opts)
}

// SetShared updates the shared flag.
func (r *MongoRepo) SetShared(ctx context.Context, id string, shared bool) error {
	res, err := r.Coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "shared", Value: shared}}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the artwork document.
func (r *MongoRepo) Delete(ctx context.Context, id string) error {
	res, err := r.Coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepo) find(ctx context.Context, filter bson.D, opts *options.FindOptionsBuilder) ([]Summary, error) {
	cur, err := r.Coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []artworkDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(docs))
	for _, doc := range docs {
		out = append(out, fromDoc(doc).Summary())
	}
	return out, nil
}

// toDoc truncates CreatedAt to the millisecond precision of BSON datetimes.
func toDoc(a Artwork) artworkDoc {
	keys := a.IllustrationKeys
	if keys == nil {
		keys = map[string]string{}
	}
	return artworkDoc{
		ID:                  a.ID,
		UserID:              a.UserID,
		Title:               a.Title,
		Genres:              a.Genres,
		Analysis:            a.Analysis,
		OriginalKey:         a.OriginalKey,
		OriginalContentType: a.OriginalContentType,
		IllustrationKeys:    keys,
		Shared:              a.Shared,
		CreatedAt:           a.CreatedAt.Truncate(time.Millisecond),
	}
}

func fromDoc(doc artworkDoc) Artwork {
	return Artwork{
		ID:                  doc.ID,
		UserID:              doc.UserID,
		Title:               doc.Title,
		Genres:              doc.Genres,
		Analysis:            doc.Analysis,
		OriginalKey:         doc.OriginalKey,
		OriginalContentType: doc.OriginalContentType,
		IllustrationKeys:    doc.IllustrationKeys,
		Shared:              doc.Shared,
		CreatedAt:           doc.CreatedAt.UTC(),
	}
}

var _ Repo = (*MongoRepo)(nil)
