// Package mongostore implements the document-store contract on
// MongoDB. Documents are stored with their JSON field names so the two
// store backends stay interchangeable.
package mongostore

import (
	"context"
	"encoding/json"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/storage/store"
)

type Storage struct {
	client *mongo.Client
	db     *mongo.Database
}

func New(ctx context.Context, uri, dbName string) (*Storage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "ping mongo")
	}

	s := &Storage{client: client, db: client.Database(dbName)}
	if err := s.initIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Best-effort uniqueness on generated numbers, same caveat as the
// Postgres backend.
func (s *Storage) initIndexes(ctx context.Context) error {
	unique := map[string]string{
		store.CollectionLoads:    "loadNumber",
		store.CollectionInvoices: "invoiceNumber",
		store.CollectionPayments: "paySheetNumber",
	}
	sparse := true
	uniq := true
	for coll, field := range unique {
		_, err := s.db.Collection(coll).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: &options.IndexOptions{Unique: &uniq, Sparse: &sparse},
		})
		if err != nil {
			return errors.Wrap(err, "create index")
		}
	}
	_, err := s.db.Collection(store.CollectionLoads).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tracking.trackingId", Value: 1}},
	})
	return errors.Wrap(err, "create tracking index")
}

func (s *Storage) FindByID(ctx context.Context, collection, id string) (*store.Document, error) {
	var m bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, errs.NotFound(collection, id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "find document")
	}
	return toDocument(id, m)
}

func (s *Storage) Find(ctx context.Context, collection string, filter store.Filter, sort *store.Sort, limit int) ([]*store.Document, error) {
	q := bson.M{}
	for _, c := range filter {
		switch c.Op {
		case store.OpEquals:
			q[c.Field] = c.Value
		case store.OpGreaterThanEqual:
			q[c.Field] = mergeRange(q[c.Field], "$gte", normalize(c.Value))
		case store.OpLessThanEqual:
			q[c.Field] = mergeRange(q[c.Field], "$lte", normalize(c.Value))
		case store.OpIn:
			q[c.Field] = bson.M{"$in": c.Value}
		case store.OpLike:
			prefix, _ := c.Value.(string)
			q[c.Field] = bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}
		default:
			return nil, errors.Errorf("unsupported filter op: %s", c.Op)
		}
	}

	opts := options.Find()
	if sort != nil {
		dir := 1
		if sort.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: sort.Field, Value: dir}})
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.db.Collection(collection).Find(ctx, q, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find documents")
	}
	defer cur.Close(ctx)

	var out []*store.Document
	for cur.Next(ctx) {
		var m bson.M
		if err := cur.Decode(&m); err != nil {
			return nil, errors.Wrap(err, "decode document")
		}
		id, _ := m["_id"].(string)
		doc, err := toDocument(id, m)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, errors.Wrap(cur.Err(), "cursor")
}

func (s *Storage) Create(ctx context.Context, collection string, data any) (*store.Document, error) {
	id := uuid.NewString()
	m, raw, err := encode(id, data)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.Collection(collection).InsertOne(ctx, m); err != nil {
		return nil, errors.Wrap(err, "insert document")
	}
	return &store.Document{ID: id, Data: raw}, nil
}

func (s *Storage) Update(ctx context.Context, collection, id string, data any) (*store.Document, error) {
	m, raw, err := encode(id, data)
	if err != nil {
		return nil, err
	}
	res, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, m)
	if err != nil {
		return nil, errors.Wrap(err, "replace document")
	}
	if res.MatchedCount == 0 {
		return nil, errs.NotFound(collection, id)
	}
	return &store.Document{ID: id, Data: raw}, nil
}

// encode round-trips through JSON so field names and time formatting
// match the models' json tags, then stamps _id.
func encode(id string, data any) (bson.M, json.RawMessage, error) {
	raw, err := store.Encode(id, data)
	if err != nil {
		return nil, nil, errors.Wrap(err, "encode document")
	}
	var m bson.M
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, errors.Wrap(err, "decode document")
	}
	m["_id"] = id
	return m, raw, nil
}

func toDocument(id string, m bson.M) (*store.Document, error) {
	delete(m, "_id")
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "marshal document")
	}
	return &store.Document{ID: id, Data: raw}, nil
}

func normalize(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return v
}

func mergeRange(existing any, op string, v any) bson.M {
	m, ok := existing.(bson.M)
	if !ok {
		m = bson.M{}
	}
	m[op] = v
	return m
}
