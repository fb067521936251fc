// Package records wraps the raw document store with typed accessors for
// each collection. The core services talk to these instead of building
// filters by hand.
package records

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/SprintLogistics/sptms/internal/storage/store"
)

func decode[T any](doc *store.Document) (*T, error) {
	var v T
	if err := json.Unmarshal(doc.Data, &v); err != nil {
		return nil, errors.Wrap(err, "decode record")
	}
	return &v, nil
}

func decodeAll[T any](docs []*store.Document) ([]*T, error) {
	out := make([]*T, 0, len(docs))
	for _, doc := range docs {
		v, err := decode[T](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
