package pgstore

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS documents (
  collection TEXT NOT NULL,
  id TEXT NOT NULL,
  data JSONB NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  PRIMARY KEY (collection, id)
)`,
		// Best-effort uniqueness on generated numbers. Concurrent
		// creates in the same period can still race to the same
		// number before one of them hits the index.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_load_number
  ON documents ((data->>'loadNumber')) WHERE collection = 'loads'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_invoice_number
  ON documents ((data->>'invoiceNumber')) WHERE collection = 'invoices'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_paysheet_number
  ON documents ((data->>'paySheetNumber')) WHERE collection = 'carrier-payments'`,
		`CREATE INDEX IF NOT EXISTS idx_documents_tracking_id
  ON documents ((data#>>'{tracking,trackingId}')) WHERE collection = 'loads'`,
		`CREATE INDEX IF NOT EXISTS idx_documents_event_load
  ON documents ((data->>'load'), (data->>'timestamp') DESC) WHERE collection = 'tracking-events'`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
