package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ppiankov/gigshield/internal/model"
)

// MongoStore keeps cases, users and knowledge documents in MongoDB
type MongoStore struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

// NewMongoStore connects to cfg.MongoURI and checks the server is reachable
func NewMongoStore(ctx context.Context, cfg model.StoreConfig) (*MongoStore, error) {
	if cfg.MongoURI == "" {
		return nil, errors.New("mongo_uri is required for the mongo store")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	database := cfg.Database
	if database == "" {
		database = "gigshield"
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().ApplyURI(cfg.MongoURI).SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	s := &MongoStore{
		client:  client,
		db:      client.Database(database),
		timeout: timeout,
	}
	if err := s.ensureIndexes(connectCtx); err != nil {
		slog.Warn("Could not create indexes", "error", err)
	}
	slog.Debug("Connected to mongo", "database", database)
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = s.db.Collection(casesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return err
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *MongoStore) GetCase(ctx context.Context, id string) (*model.Case, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var c model.Case
	err := s.db.Collection(casesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load case %s: %w", id, err)
	}
	return &c, nil
}

func (s *MongoStore) CreateCase(ctx context.Context, c *model.Case) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Evidence == nil {
		c.Evidence = []model.EvidenceItem{}
	}
	if _, err := s.db.Collection(casesCollection).InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrConflict
		}
		return "", fmt.Errorf("failed to save case: %w", err)
	}
	return c.ID, nil
}

func (s *MongoStore) ListCasesByUser(ctx context.Context, uid string) ([]model.Case, error) {
	return s.findCases(ctx, bson.M{"userId": uid})
}

func (s *MongoStore) ListCases(ctx context.Context) ([]model.Case, error) {
	return s.findCases(ctx, bson.M{})
}

func (s *MongoStore) findCases(ctx context.Context, filter bson.M) ([]model.Case, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.db.Collection(casesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer cursor.Close(ctx)

	cases := []model.Case{}
	if err := cursor.All(ctx, &cases); err != nil {
		return nil, fmt.Errorf("failed to decode cases: %w", err)
	}
	return cases, nil
}

// ownedCase loads a case and checks uid owns it
func (s *MongoStore) ownedCase(ctx context.Context, id, uid string) (*model.Case, error) {
	c, err := s.GetCase(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(c, uid); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *MongoStore) DeleteCase(ctx context.Context, id, uid string) error {
	if _, err := s.ownedCase(ctx, id, uid); err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.Collection(casesCollection).DeleteOne(ctx, bson.M{"_id": id, "userId": uid})
	if err != nil {
		return fmt.Errorf("failed to delete case %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) UpdateStatus(ctx context.Context, id, uid string, status model.Status, now time.Time) (*model.Case, error) {
	c, err := s.ownedCase(ctx, id, uid)
	if err != nil {
		return nil, err
	}
	if err := ApplyStatus(c, status, now); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"status":      c.Status,
		"lastUpdated": c.LastUpdated,
		"submittedAt": c.SubmittedAt,
	}}
	if _, err := s.db.Collection(casesCollection).UpdateByID(ctx, id, update); err != nil {
		return nil, fmt.Errorf("failed to update case %s: %w", id, err)
	}
	return c, nil
}

// AddEvidence rewrites the whole evidence list; older records may hold null there
func (s *MongoStore) AddEvidence(ctx context.Context, id, uid string, item model.EvidenceItem) error {
	c, err := s.ownedCase(ctx, id, uid)
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	evidence := append(c.Evidence, item)
	update := bson.M{"$set": bson.M{"evidence": evidence}}
	if _, err := s.db.Collection(casesCollection).UpdateByID(ctx, id, update); err != nil {
		return fmt.Errorf("failed to attach evidence to %s: %w", id, err)
	}
	return nil
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"email": normalizeEmail(email)})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*model.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var u model.User
	err := s.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &u, nil
}

func (s *MongoStore) CreateUser(ctx context.Context, u *model.User) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	u.Email = normalizeEmail(u.Email)
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if _, err := s.db.Collection(usersCollection).InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (s *MongoStore) ListDocuments(ctx context.Context) ([]model.Document, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cursor, err := s.db.Collection(documentsCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []model.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	for i := range docs {
		docs[i] = normalizeDocument(docs[i])
	}
	return docs, nil
}

// SaveDocuments upserts documents keyed by their id field
func (s *MongoStore) SaveDocuments(ctx context.Context, docs []model.Document) error {
	if len(docs) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	writes := make([]mongo.WriteModel, 0, len(docs))
	for _, d := range docs {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"id": d.ID}).
			SetReplacement(d).
			SetUpsert(true))
	}
	if _, err := s.db.Collection(documentsCollection).BulkWrite(ctx, writes); err != nil {
		return fmt.Errorf("failed to save documents: %w", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
