// Package sequence issues human-readable document numbers of the form
// KIND-YYYYMM-NNNN, one counter per kind per calendar month.
//
// The counter works by reading the highest existing number and adding
// one. Two concurrent creates can therefore read the same maximum and
// collide; the store's unique index is the only backstop. Acceptable at
// brokerage volume, revisit if creation ever becomes concurrent enough
// to matter.
package sequence

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/SprintLogistics/sptms/internal/storage/store"
)

const (
	KindLoad     = "SPTMS"
	KindInvoice  = "INV"
	KindPaySheet = "PAY"
)

type Generator struct {
	st store.Store
}

func New(st store.Store) *Generator {
	return &Generator{st: st}
}

// PeriodPrefix renders the month-scoped prefix, e.g. "INV-202601-".
func PeriodPrefix(kind string, now time.Time) string {
	return kind + "-" + now.UTC().Format("200601") + "-"
}

// Next returns the next number for the prefix in the given collection
// field: the highest existing suffix plus one, or 0001 when the period
// has no documents yet.
func (g *Generator) Next(ctx context.Context, collection, field, prefix string) (string, error) {
	docs, err := g.st.Find(ctx, collection, store.Filter{
		store.Like(field, prefix),
	}, &store.Sort{Field: field, Desc: true}, 1)
	if err != nil {
		return "", err
	}

	seq := 1
	if len(docs) > 0 {
		var rec map[string]any
		if err := json.Unmarshal(docs[0].Data, &rec); err != nil {
			return "", errors.Wrap(err, "decode numbered document")
		}
		if last, ok := rec[field].(string); ok {
			seq = lastSuffix(last) + 1
		}
	}
	return fmt.Sprintf("%s%04d", prefix, seq), nil
}

func lastSuffix(number string) int {
	i := strings.LastIndex(number, "-")
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(number[i+1:])
	if err != nil {
		return 0
	}
	return n
}
