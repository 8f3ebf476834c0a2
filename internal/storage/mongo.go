package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCollection is the Mongo collection holding one document per
// persisted collection, keyed by name.
const MongoCollection = "collections"

type mongoDoc struct {
	Name      string    `bson:"_id"`
	Data      string    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type MongoBackend struct {
	col *mongo.Collection
}

func NewMongoBackend(db *mongo.Database) *MongoBackend {
	return &MongoBackend{col: db.Collection(MongoCollection)}
}

func (m *MongoBackend) Load(ctx context.Context, name string) ([]byte, error) {
	var doc mongoDoc
	err := m.col.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, loadError(name, err)
	}
	return []byte(doc.Data), nil
}

func (m *MongoBackend) Save(ctx context.Context, name string, data []byte) error {
	doc := mongoDoc{Name: name, Data: string(data), UpdatedAt: time.Now().UTC()}
	_, err := m.col.ReplaceOne(ctx, bson.M{"_id": name}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return saveError(name, err)
	}
	return nil
}
