package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/SprintLogistics/sptms/internal/api"
	"github.com/SprintLogistics/sptms/internal/broker/messages"
	"github.com/SprintLogistics/sptms/internal/services/trackingfeed"
)

type apiOpts struct {
	httpAddr      string
	consumerGroup string

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

func runAPI(ctx context.Context, opts apiOpts, server *api.Server, feed *trackingfeed.Processor, consumer kafkaConsumer) error {
	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: server.Router()}
	httpErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", lis.Addr().String())
		httpErr <- srv.Serve(lis)
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	go func() {
		slog.Info("kafka consumer started",
			"topic", messages.TopicTrackingPolled, "group", opts.consumerGroup)
		_ = consumer.Consume(ctx, func(_key, value []byte) error {
			var m messages.TrackingPolled
			if err := json.Unmarshal(value, &m); err != nil {
				// Битое сообщение из своего же топика: логируем и пропускаем.
				slog.Error("unmarshal polled update", "error", err.Error())
				return nil
			}
			ack := feed.ApplyPolled(ctx, m, value)
			if !ack.Processed && ack.Error != "" {
				slog.Warn("polled update not applied", "order_id", m.OrderID, "error", ack.Error)
			}
			return nil
		})
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return err
	}
}
