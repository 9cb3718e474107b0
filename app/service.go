// Package app wires the configuration into a running dispatch service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apibookings "github.com/taskhive/dispatch/api/bookings"
	apioffers "github.com/taskhive/dispatch/api/offers"
	apiproviders "github.com/taskhive/dispatch/api/providers"
	"github.com/taskhive/dispatch/config"
	"github.com/taskhive/dispatch/core/bus"
	"github.com/taskhive/dispatch/core/dispatch"
	"github.com/taskhive/dispatch/core/dispatch/logging"
	coremetrics "github.com/taskhive/dispatch/core/metrics"
	"github.com/taskhive/dispatch/core/providerstatus"
	"github.com/taskhive/dispatch/core/scheduler"
	corestore "github.com/taskhive/dispatch/core/store"
	"github.com/taskhive/dispatch/infra/logger"
	"github.com/taskhive/dispatch/infra/metrics"
	"github.com/taskhive/dispatch/infra/mqtt"
	"github.com/taskhive/dispatch/infra/redisbus"
	"github.com/taskhive/dispatch/infra/store"
	"github.com/taskhive/dispatch/internal/eventbus"
)

// Service orchestrates the dispatch engine, reminder scheduler and API server.
type Service struct {
	Manager  *dispatch.DispatchManager
	Arbiter  *dispatch.Arbiter
	Updater  *dispatch.BookingUpdater
	Reminder *scheduler.Reminder
	Bookings corestore.BookingStore

	cfg      *config.Config
	rtBus    bus.Bus
	evBus    eventbus.EventBus
	offerLog logging.OfferStore
	sqlite   *store.SQLiteStore
	mux      *http.ServeMux
	log      logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	svc := &Service{cfg: cfg, log: logg}
	var (
		bookings      corestore.BookingStore
		notifications corestore.NotificationStore
		directory     corestore.ProviderDirectory
	)
	if cfg.Store.Path != "" {
		db, err := store.OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		svc.sqlite = db
		bookings, notifications, directory = db, db, db
	} else {
		logg.Warnf("no store path configured, using in-memory store")
		bookings = store.NewMemoryBookingStore()
		notifications = store.NewMemoryNotificationStore()
		directory = store.NewMemoryProviderDirectory()
	}
	svc.Bookings = bookings

	rtBus, err := newBus(cfg.Bus)
	if err != nil {
		return nil, err
	}
	svc.rtBus = rtBus

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket))
	}
	var sink coremetrics.Sink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	evBus := eventbus.New()
	svc.evBus = evBus

	selector, err := dispatch.NewSelector(directory, cfg.Dispatch)
	if err != nil {
		return nil, fmt.Errorf("selector: %w", err)
	}
	manager, err := dispatch.NewDispatchManager(selector, bookings, rtBus, sink, evBus, logg)
	if err != nil {
		return nil, fmt.Errorf("dispatch manager: %w", err)
	}
	svc.Manager = manager

	offerLog, err := newOfferLog(cfg.OfferLog)
	if err != nil {
		return nil, fmt.Errorf("offer log: %w", err)
	}
	svc.offerLog = offerLog
	manager.SetOfferStore(offerLog)

	statusStore := providerstatus.NewMemoryStore()
	manager.SetStatusStore(statusStore)

	notifier, err := dispatch.NewLifecycleNotifier(notifications, rtBus, logg)
	if err != nil {
		return nil, fmt.Errorf("lifecycle notifier: %w", err)
	}
	arbiter, err := dispatch.NewArbiter(bookings, notifier, rtBus, sink, evBus, logg, cfg.Dispatch)
	if err != nil {
		return nil, fmt.Errorf("arbiter: %w", err)
	}
	svc.Arbiter = arbiter

	updater, err := dispatch.NewBookingUpdater(bookings, notifier, evBus, logg)
	if err != nil {
		return nil, fmt.Errorf("updater: %w", err)
	}
	svc.Updater = updater

	remSink, _ := sink.(coremetrics.ReminderRecorder)
	reminder, err := scheduler.NewReminder(bookings, notifications, rtBus, remSink, evBus, logg, cfg.Scheduler)
	if err != nil {
		return nil, fmt.Errorf("reminder: %w", err)
	}
	svc.Reminder = reminder

	mux := http.NewServeMux()
	apibookings.NewHandler(manager, arbiter, updater, bookings, logg).Register(mux)
	mux.Handle("GET /api/providers/status", apiproviders.NewStatusHandler(statusStore))
	mux.Handle("GET /api/offers/log", apioffers.NewLogHandler(offerLog, cfg.HTTP.OfferLogToken))
	svc.mux = mux
	return svc, nil
}

func newBus(cfg config.BusConfig) (bus.Bus, error) {
	switch cfg.Backend {
	case "mqtt":
		b, err := mqtt.NewPahoBus(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt bus: %w", err)
		}
		return b, nil
	case "redis":
		b, err := redisbus.New(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis bus: %w", err)
		}
		return b, nil
	default:
		return bus.NopBus{}, nil
	}
}

func newOfferLog(cfg config.OfferLogConfig) (logging.OfferStore, error) {
	switch cfg.Backend {
	case "sqlite":
		return logging.NewSQLiteStore(cfg.Path)
	default:
		return logging.NewJSONLStore(cfg.Path)
	}
}

// Run starts the API server and the reminder scheduler and blocks until the
// context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go s.Reminder.Run(ctx, time.Duration(s.cfg.Scheduler.IntervalSeconds)*time.Second)
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, ":"+s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{Addr: s.cfg.HTTP.Addr, Handler: s.mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("http shutdown: %v", err)
		}
	}()
	s.log.Infof("dispatch service listening on %s", s.cfg.HTTP.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.rtBus != nil {
		s.rtBus.Close()
	}
	if s.evBus != nil {
		s.evBus.Close()
	}
	var err error
	if s.offerLog != nil {
		err = s.offerLog.Close()
	}
	if s.sqlite != nil {
		if cerr := s.sqlite.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
