package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SprintLogistics/sptms/config"
	"github.com/SprintLogistics/sptms/internal/api"
	"github.com/SprintLogistics/sptms/internal/broker/kafka"
	"github.com/SprintLogistics/sptms/internal/broker/messages"
	"github.com/SprintLogistics/sptms/internal/cache/rediscache"
	"github.com/SprintLogistics/sptms/internal/integrations/dat"
	"github.com/SprintLogistics/sptms/internal/integrations/epay"
	"github.com/SprintLogistics/sptms/internal/integrations/macropoint"
	"github.com/SprintLogistics/sptms/internal/integrations/quickbooks"
	"github.com/SprintLogistics/sptms/internal/records"
	"github.com/SprintLogistics/sptms/internal/services/billing"
	"github.com/SprintLogistics/sptms/internal/services/profitability"
	"github.com/SprintLogistics/sptms/internal/services/sequence"
	"github.com/SprintLogistics/sptms/internal/services/trackingfeed"
	"github.com/SprintLogistics/sptms/internal/storage/mongostore"
	"github.com/SprintLogistics/sptms/internal/storage/pgstore"
	"github.com/SprintLogistics/sptms/internal/storage/store"
)

type apiApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   apiOpts

	server     *api.Server
	feed       *trackingfeed.Processor
	consumer   *kafka.Consumer
	producer   *kafka.Producer
	closeStore func()
}

func mustBootstrapAPI() *apiApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	httpAddr := cfg.SPTMS.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.SPTMS.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "sptms-api"
	}

	st, closeStore := mustOpenStoreWithRetry(cfg, 60*time.Second)

	loads := records.NewLoads(st)
	customers := records.NewCustomers(st)
	carriers := records.NewCarriers(st)
	invoices := records.NewInvoices(st)
	payments := records.NewPayments(st)
	events := records.NewTrackingEvents(st)
	numbers := sequence.New(st)

	quickPayFee := cfg.SPTMS.QuickPayFeePercent
	invoiceGen := billing.NewInvoiceAssembler(loads, customers, invoices, numbers, cfg.SPTMS.BillingCompanyName)
	paySheetGen := billing.NewPaySheetAssembler(loads, carriers, payments, numbers, quickPayFee)
	reports := profitability.NewReporter(loads, customers, carriers)

	rateCacheTTL := time.Duration(cfg.SPTMS.RateCacheTTLSeconds) * time.Second
	if rateCacheTTL <= 0 {
		rateCacheTTL = 15 * time.Minute
	}
	rateCache := rediscache.New(cfg.Redis.Addr())

	board := dat.New(dat.Config{
		APIURL:       cfg.Providers.DAT.APIURL,
		ClientID:     cfg.Providers.DAT.ClientID,
		ClientSecret: cfg.Providers.DAT.ClientSecret,
		Username:     cfg.Providers.DAT.Username,
		Password:     cfg.Providers.DAT.Password,
		RateCacheTTL: rateCacheTTL,
	}, rateCache)
	tracking := macropoint.New(macropoint.Config{
		BaseURL:     cfg.Providers.MacroPoint.BaseURL,
		APIID:       cfg.Providers.MacroPoint.APIID,
		APIPassword: cfg.Providers.MacroPoint.APIPassword,
		WebhookURL:  cfg.Providers.MacroPoint.WebhookURL,
	})
	payouts := epay.New(epay.Config{
		APIURL:    cfg.Providers.EPay.APIURL,
		MemberID:  cfg.Providers.EPay.MemberID,
		APIKey:    cfg.Providers.EPay.APIKey,
		APISecret: cfg.Providers.EPay.APISecret,
	})
	accounting := quickbooks.New(quickbooks.Config{
		ClientID:     cfg.Providers.QuickBooks.ClientID,
		ClientSecret: cfg.Providers.QuickBooks.ClientSecret,
		RedirectURI:  cfg.Providers.QuickBooks.RedirectURI,
		Environment:  cfg.Providers.QuickBooks.Environment,
		RealmID:      cfg.Providers.QuickBooks.RealmID,
		RefreshToken: cfg.Providers.QuickBooks.RefreshToken,
	})

	producer := kafka.NewProducer([]string{cfg.Kafka.Addr()})
	feed := trackingfeed.NewProcessor(loads, events, producer)

	server := api.NewServer(api.Deps{
		Loads:     loads,
		Customers: customers,
		Carriers:  carriers,
		Invoices:  invoices,
		Payments:  payments,
		Events:    events,
		Numbers:   numbers,

		InvoiceGen:  invoiceGen,
		PaySheetGen: paySheetGen,
		Reports:     reports,
		Feed:        feed,

		Board:      board,
		Tracking:   tracking,
		Payouts:    payouts,
		Accounting: accounting,

		PostingContactName:  cfg.SPTMS.PostingContactName,
		PostingContactPhone: cfg.SPTMS.PostingContactPhone,
		PostingContactEmail: cfg.SPTMS.PostingContactEmail,
	})

	consumer := kafka.NewConsumer([]string{cfg.Kafka.Addr()}, messages.TopicTrackingPolled, consumerGroup)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &apiApp{
		ctx:    ctx,
		cancel: cancel,
		opts: apiOpts{
			httpAddr:      httpAddr,
			consumerGroup: consumerGroup,
		},
		server:     server,
		feed:       feed,
		consumer:   consumer,
		producer:   producer,
		closeStore: closeStore,
	}
}

func mustOpenStoreWithRetry(cfg *config.Config, wait time.Duration) (store.Store, func()) {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, closeFn, err := openStore(cfg)
		if err == nil {
			return st, closeFn
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("store is not ready after %s: %v", wait, lastErr))
}

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

func (a *apiApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	if a.producer != nil {
		_ = a.producer.Close()
	}
	if a.closeStore != nil {
		a.closeStore()
	}
}

func (a *apiApp) Run() error {
	return runAPI(a.ctx, a.opts, a.server, a.feed, a.consumer)
}
