package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names mirror the document layout the centre's data was first kept in.
const (
	workersCollection = "workers"
	recordsCollection = "attendanceRecords"
	configCollection  = "config"
)

// MongoRepository stores workers and records as documents.
type MongoRepository struct {
	workers *mongo.Collection
	records *mongo.Collection
	config  *mongo.Collection
}

// NewMongoRepository binds the repository to db.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		workers: db.Collection(workersCollection),
		records: db.Collection(recordsCollection),
		config:  db.Collection(configCollection),
	}
}

// EnsureIndexes creates the lookup indexes used by PIN and dedup queries.
func (m *MongoRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := m.workers.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "pin", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create worker indexes: %w", err)
	}
	if _, err := m.records.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "workerId", Value: 1}, {Key: "timestamp", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("create record indexes: %w", err)
	}
	return nil
}

func (m *MongoRepository) ListWorkers(ctx context.Context) ([]Worker, error) {
	cur, err := m.workers.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find workers: %w", err)
	}
	var res []Worker
	if err := cur.All(ctx, &res); err != nil {
		return nil, fmt.Errorf("decode workers: %w", err)
	}
	return res, nil
}

func (m *MongoRepository) findWorker(ctx context.Context, filter bson.D) (Worker, error) {
	var w Worker
	if err := m.workers.FindOne(ctx, filter).Decode(&w); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Worker{}, ErrNotFound
		}
		return Worker{}, fmt.Errorf("find worker: %w", err)
	}
	return w, nil
}

func (m *MongoRepository) GetWorker(ctx context.Context, id string) (Worker, error) {
	return m.findWorker(ctx, bson.D{{Key: "_id", Value: id}})
}

func (m *MongoRepository) FindWorkerByPIN(ctx context.Context, pin string) (Worker, error) {
	return m.findWorker(ctx, bson.D{{Key: "pin", Value: pin}})
}

func (m *MongoRepository) CreateWorker(ctx context.Context, w Worker) (Worker, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if _, err := m.workers.InsertOne(ctx, w); err != nil {
		return Worker{}, fmt.Errorf("insert worker: %w", err)
	}
	return w, nil
}

func (m *MongoRepository) UpdateWorker(ctx context.Context, w Worker) error {
	res, err := m.workers.ReplaceOne(ctx, bson.D{{Key: "_id", Value: w.ID}}, w)
	if err != nil {
		return fmt.Errorf("replace worker: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepository) DeleteWorker(ctx context.Context, id string) error {
	res, err := m.workers.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete worker: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepository) InsertRecord(ctx context.Context, r Record) (Record, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	if _, err := m.records.InsertOne(ctx, r); err != nil {
		return Record{}, fmt.Errorf("insert record: %w", err)
	}
	return r, nil
}

func (m *MongoRepository) GetRecord(ctx context.Context, id string) (Record, error) {
	var r Record
	if err := m.records.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("find record: %w", err)
	}
	return r, nil
}

func (m *MongoRepository) ListRecords(ctx context.Context) ([]Record, error) {
	cur, err := m.records.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}
	var res []Record
	if err := cur.All(ctx, &res); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return res, nil
}

func (m *MongoRepository) RecentRecord(ctx context.Context, workerID string, window time.Duration) (*Record, error) {
	filter := bson.D{
		{Key: "workerId", Value: workerID},
		{Key: "timestamp", Value: bson.D{{Key: "$gte", Value: time.Now().Add(-window)}}},
	}
	var r Record
	err := m.records.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find recent record: %w", err)
	}
	return &r, nil
}

func (m *MongoRepository) GetCenterLocation(ctx context.Context) (*CenterLocation, error) {
	var loc CenterLocation
	err := m.config.FindOne(ctx, bson.D{{Key: "_id", Value: CenterLocationID}}).Decode(&loc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find center location: %w", err)
	}
	return &loc, nil
}

func (m *MongoRepository) SetCenterLocation(ctx context.Context, loc CenterLocation) (CenterLocation, error) {
	if loc.UpdatedAt.IsZero() {
		loc.UpdatedAt = time.Now().UTC()
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "lat", Value: loc.Lat},
		{Key: "lon", Value: loc.Lon},
		{Key: "radius", Value: loc.Radius},
		{Key: "updatedAt", Value: loc.UpdatedAt},
	}}}
	_, err := m.config.UpdateOne(ctx, bson.D{{Key: "_id", Value: CenterLocationID}}, update, options.Update().SetUpsert(true))
	if err != nil {
		return CenterLocation{}, fmt.Errorf("upsert center location: %w", err)
	}
	return loc, nil
}
