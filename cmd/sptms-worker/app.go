package main

import (
	"context"
	"time"

	"github.com/SprintLogistics/sptms/config"
	"github.com/SprintLogistics/sptms/internal/broker/kafka"
	"github.com/SprintLogistics/sptms/internal/cache/rediscache"
	"github.com/SprintLogistics/sptms/internal/integrations/macropoint"
	"github.com/SprintLogistics/sptms/internal/records"
	"github.com/SprintLogistics/sptms/internal/services/refresher"
)

type workerFactories struct {
	newStorage     func(cfg *config.Config) (repo refresher.Repository, closeFn func(), err error)
	newTracker     func(cfg *config.Config) refresher.Tracker
	newProducer    func(cfg *config.Config) refresher.Producer
	newRateLimiter func(cfg *config.Config) refresher.RateLimiter
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (refresher.Repository, func(), error) {
			st, closeFn, err := openStore(cfg)
			if err != nil {
				return nil, nil, err
			}
			return records.NewLoads(st), closeFn, nil
		},
		newTracker: func(cfg *config.Config) refresher.Tracker {
			return macropoint.New(macropoint.Config{
				BaseURL:     cfg.Providers.MacroPoint.BaseURL,
				APIID:       cfg.Providers.MacroPoint.APIID,
				APIPassword: cfg.Providers.MacroPoint.APIPassword,
				WebhookURL:  cfg.Providers.MacroPoint.WebhookURL,
			})
		},
		newProducer: func(cfg *config.Config) refresher.Producer {
			return kafka.NewProducer([]string{cfg.Kafka.Addr()})
		},
		newRateLimiter: func(cfg *config.Config) refresher.RateLimiter {
			return rediscache.NewRateLimiter(cfg.Redis.Addr())
		},
	}
}

func newRefresher(cfg *config.Config, f workerFactories) (*refresher.Refresher, func(), error) {
	repo, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return nil, nil, err
	}

	pollInterval := time.Duration(cfg.SPTMS.WorkerPollIntervalSeconds) * time.Second
	staleAfter := time.Duration(cfg.SPTMS.WorkerStaleAfterSeconds) * time.Second

	r := refresher.New(repo, f.newTracker(cfg), f.newProducer(cfg), f.newRateLimiter(cfg)).
		WithSettings(pollInterval, staleAfter,
			cfg.SPTMS.WorkerBatchSize, cfg.SPTMS.WorkerConcurrency,
			int64(cfg.SPTMS.WorkerRateLimitPerMinute))
	return r, closeFn, nil
}

func RunWorker(ctx context.Context, cfg *config.Config, f workerFactories) error {
	r, closeFn, err := newRefresher(cfg, f)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr:  cfg.SPTMS.WorkerHTTPAddr,
			refresher: r,
			cfg:       cfg,
		})
	}()

	runErr := make(chan error, 1)
	go func() {
		runErr <- r.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return err
	case err := <-runErr:
		return err
	}
}
