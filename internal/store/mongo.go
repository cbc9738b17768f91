package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/skillpath/backend/internal/auth"
	"github.com/ayush/skillpath/backend/internal/models"
	"github.com/ayush/skillpath/backend/internal/shared"
)

// MongoStorage keeps users and learning paths in MongoDB. Integer ids come
// from a counters collection so they match the other backends.
type MongoStorage struct {
	client   *mongo.Client
	users    *mongo.Collection
	paths    *mongo.Collection
	counters *mongo.Collection
	sessions auth.SessionStore
	now      func() time.Time
}

// OpenMongo connects, pings and ensures indexes.
func OpenMongo(ctx context.Context, uri, dbName string, sessions auth.SessionStore) (*MongoStorage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	s := NewMongoStorage(client, client.Database(dbName), sessions)
	if err := s.EnsureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func NewMongoStorage(client *mongo.Client, db *mongo.Database, sessions auth.SessionStore) *MongoStorage {
	return &MongoStorage{
		client:   client,
		users:    db.Collection("users"),
		paths:    db.Collection("learning_paths"),
		counters: db.Collection("counters"),
		sessions: sessions,
		now:      time.Now,
	}
}

// EnsureIndexes creates the unique username index and the owner index.
func (s *MongoStorage) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo users index: %w", err)
	}
	_, err = s.paths.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("mongo paths index: %w", err)
	}
	return nil
}

// nextID atomically increments and returns the named sequence.
func (s *MongoStorage) nextID(ctx context.Context, name string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("mongo next %s id: %w", name, err)
	}
	return doc.Seq, nil
}

func (s *MongoStorage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *MongoStorage) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	err := s.users.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo get user: %w", err)
	}
	return &u, nil
}

func (s *MongoStorage) CreateUser(ctx context.Context, nu models.NewUser) (*models.User, error) {
	id, err := s.nextID(ctx, "users")
	if err != nil {
		return nil, err
	}
	u := models.User{ID: id, Username: nu.Username, Password: nu.Password}
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, shared.ErrUserExists
		}
		return nil, fmt.Errorf("mongo insert user: %w", err)
	}
	return &u, nil
}

func (s *MongoStorage) CreatePath(ctx context.Context, userID int64, np models.NewPath) (*models.LearningPath, error) {
	id, err := s.nextID(ctx, "learning_paths")
	if err != nil {
		return nil, err
	}
	p := models.LearningPath{
		ID:          id,
		UserID:      userID,
		Title:       np.Title,
		Description: np.Description,
		Steps:       models.CopySteps(np.Steps),
		// BSON dates keep milliseconds.
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.paths.InsertOne(ctx, p); err != nil {
		return nil, fmt.Errorf("mongo insert path: %w", err)
	}
	return &p, nil
}

func (s *MongoStorage) GetUserPaths(ctx context.Context, userID int64) ([]models.LearningPath, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.paths.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo list paths: %w", err)
	}
	defer cur.Close(ctx)

	var docs []models.LearningPath
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo list paths: %w", err)
	}
	out := make([]models.LearningPath, 0, len(docs))
	for _, p := range docs {
		out = append(out, *normalizeMongoPath(p))
	}
	return out, nil
}

func (s *MongoStorage) GetPath(ctx context.Context, id int64) (*models.LearningPath, error) {
	var p models.LearningPath
	err := s.paths.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo get path: %w", err)
	}
	return normalizeMongoPath(p), nil
}

func (s *MongoStorage) DeletePath(ctx context.Context, id int64) error {
	if _, err := s.paths.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("mongo delete path: %w", err)
	}
	return nil
}

func (s *MongoStorage) Sessions() auth.SessionStore { return s.sessions }

func (s *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// normalizeMongoPath turns decoded nil slices into empty ones and the
// decoded local time back into UTC.
func normalizeMongoPath(p models.LearningPath) *models.LearningPath {
	p.Steps = models.CopySteps(p.Steps)
	p.CreatedAt = p.CreatedAt.UTC()
	return &p
}
