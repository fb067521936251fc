package main

import (
	"context"
	"time"

	"github.com/SprintLogistics/sptms/config"
	"github.com/SprintLogistics/sptms/internal/storage/mongostore"
	"github.com/SprintLogistics/sptms/internal/storage/pgstore"
	"github.com/SprintLogistics/sptms/internal/storage/store"
)

func openStore(cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Database.Type {
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		st, err := mongostore.New(ctx, cfg.Database.MongoURI, cfg.Database.DBName)
		if err != nil {
			return nil, nil, err
		}
		return st, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = st.Close(closeCtx)
		}, nil
	default:
		st, err := pgstore.New(cfg.Database.PostgresDSN())
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	}
}
