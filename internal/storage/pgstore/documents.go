package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/storage/store"
)

func (s *Storage) FindByID(ctx context.Context, collection, id string) (*store.Document, error) {
	var data json.RawMessage
	err := s.db.QueryRow(ctx, `
SELECT data FROM documents WHERE collection = $1 AND id = $2
`, collection, id).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, errs.NotFound(collection, id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select document")
	}
	return &store.Document{ID: id, Data: data}, nil
}

func (s *Storage) Find(ctx context.Context, collection string, filter store.Filter, sort *store.Sort, limit int) ([]*store.Document, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, data FROM documents WHERE collection = $1`)
	args := []any{collection}

	for _, c := range filter {
		expr := fieldExpr(c.Field)
		switch c.Op {
		case store.OpEquals:
			args = append(args, textValue(c.Value))
			fmt.Fprintf(&sb, " AND %s = $%d", expr, len(args))
		case store.OpGreaterThanEqual:
			args = append(args, textValue(c.Value))
			fmt.Fprintf(&sb, " AND %s >= $%d", expr, len(args))
		case store.OpLessThanEqual:
			args = append(args, textValue(c.Value))
			fmt.Fprintf(&sb, " AND %s <= $%d", expr, len(args))
		case store.OpIn:
			vals, _ := c.Value.([]string)
			args = append(args, vals)
			fmt.Fprintf(&sb, " AND %s = ANY($%d)", expr, len(args))
		case store.OpLike:
			args = append(args, textValue(c.Value)+"%")
			fmt.Fprintf(&sb, " AND %s LIKE $%d", expr, len(args))
		default:
			return nil, errors.Errorf("unsupported filter op: %s", c.Op)
		}
	}

	if sort != nil {
		dir := "ASC"
		if sort.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", fieldExpr(sort.Field), dir)
	}
	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, errors.Wrap(err, "select documents")
	}
	defer rows.Close()

	var out []*store.Document
	for rows.Next() {
		var d store.Document
		if err := rows.Scan(&d.ID, &d.Data); err != nil {
			return nil, errors.Wrap(err, "scan document")
		}
		out = append(out, &d)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) Create(ctx context.Context, collection string, data any) (*store.Document, error) {
	id := uuid.NewString()
	raw, err := store.Encode(id, data)
	if err != nil {
		return nil, errors.Wrap(err, "encode document")
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(ctx, `
INSERT INTO documents (collection, id, data, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
`, collection, id, raw, now)
	if err != nil {
		return nil, errors.Wrap(err, "insert document")
	}
	return &store.Document{ID: id, Data: raw}, nil
}

func (s *Storage) Update(ctx context.Context, collection, id string, data any) (*store.Document, error) {
	raw, err := store.Encode(id, data)
	if err != nil {
		return nil, errors.Wrap(err, "encode document")
	}

	tag, err := s.db.Exec(ctx, `
UPDATE documents SET data = $3, updated_at = $4 WHERE collection = $1 AND id = $2
`, collection, id, raw, time.Now().UTC())
	if err != nil {
		return nil, errors.Wrap(err, "update document")
	}
	if tag.RowsAffected() == 0 {
		return nil, errs.NotFound(collection, id)
	}
	return &store.Document{ID: id, Data: raw}, nil
}

// fieldExpr renders a dotted field path as a jsonb text extraction:
// "tracking.trackingId" -> data#>>'{tracking,trackingId}'.
func fieldExpr(field string) string {
	parts := strings.Split(field, ".")
	return "data#>>'{" + strings.Join(parts, ",") + "}'"
}

// Все сравнения в jsonb идут по текстовому представлению; даты
// передаются как RFC3339, номера нулём дополнены, так что
// лексикографический порядок совпадает с естественным.
func textValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(t)
	}
}
