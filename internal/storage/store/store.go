// Package store defines the document-store contract the core depends
// on: id lookup, filtered queries (equality, range, in-list, prefix),
// create and update. Uniqueness of generated numbers is enforced only
// as a best-effort constraint by the backing implementation.
package store

import (
	"context"
	"encoding/json"
)

const (
	CollectionLoads          = "loads"
	CollectionCustomers      = "customers"
	CollectionCarriers       = "carriers"
	CollectionInvoices       = "invoices"
	CollectionPayments       = "carrier-payments"
	CollectionTrackingEvents = "tracking-events"
)

type Op string

const (
	OpEquals           Op = "equals"
	OpGreaterThanEqual Op = "greater_than_equal"
	OpLessThanEqual    Op = "less_than_equal"
	OpIn               Op = "in"
	OpLike             Op = "like" // prefix match
)

// Condition compares a document field against a value. Field may be a
// dotted path into nested objects ("tracking.trackingId").
type Condition struct {
	Field string
	Op    Op
	Value any
}

type Filter []Condition

func Eq(field string, value any) Condition {
	return Condition{Field: field, Op: OpEquals, Value: value}
}

func GTE(field string, value any) Condition {
	return Condition{Field: field, Op: OpGreaterThanEqual, Value: value}
}

func LTE(field string, value any) Condition {
	return Condition{Field: field, Op: OpLessThanEqual, Value: value}
}

func In(field string, values []string) Condition {
	return Condition{Field: field, Op: OpIn, Value: values}
}

func Like(field, prefix string) Condition {
	return Condition{Field: field, Op: OpLike, Value: prefix}
}

type Sort struct {
	Field string
	Desc  bool
}

// Document is a stored record. Data always carries the id under the
// "id" key, so it unmarshals straight into a model struct.
type Document struct {
	ID   string
	Data json.RawMessage
}

type Store interface {
	FindByID(ctx context.Context, collection, id string) (*Document, error)
	Find(ctx context.Context, collection string, filter Filter, sort *Sort, limit int) ([]*Document, error)
	Create(ctx context.Context, collection string, data any) (*Document, error)
	Update(ctx context.Context, collection, id string, data any) (*Document, error)
}

// Encode marshals data and stamps the id into the document body.
func Encode(id string, data any) (json.RawMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	m["id"] = id
	return json.Marshal(m)
}
