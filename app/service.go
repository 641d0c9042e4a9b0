package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/hems/api"
	_ "github.com/kilianp07/hems/app/plugins" // built-in modules
	"github.com/kilianp07/hems/config"
	"github.com/kilianp07/hems/core/boost"
	"github.com/kilianp07/hems/core/buffer"
	"github.com/kilianp07/hems/core/buffer/logging"
	"github.com/kilianp07/hems/core/departure"
	"github.com/kilianp07/hems/core/engine"
	"github.com/kilianp07/hems/core/events"
	coreforecast "github.com/kilianp07/hems/core/forecast"
	coremetrics "github.com/kilianp07/hems/core/metrics"
	"github.com/kilianp07/hems/core/modecontrol"
	coremon "github.com/kilianp07/hems/core/monitoring"
	"github.com/kilianp07/hems/core/planner"
	"github.com/kilianp07/hems/core/sequencer"
	"github.com/kilianp07/hems/core/state"
	"github.com/kilianp07/hems/infra/logger"
	"github.com/kilianp07/hems/infra/metrics"
	"github.com/kilianp07/hems/infra/monitoring"
	"github.com/kilianp07/hems/infra/mqtt"
	"github.com/kilianp07/hems/internal/eventbus"
)

// Service wires the decision engine to MQTT, the HTTP API and the metrics
// sinks. Every component is built in New; nothing runs before Run.
type Service struct {
	cfg     *config.Config
	Engine  *engine.Engine
	client  *mqtt.Client
	store   *state.Store
	bus     *eventbus.TypedBus[events.Event]
	sink    coremetrics.MetricsSink
	backend logging.Backend
	handler http.Handler
	logs    io.Closer
	log     logger.Logger
}

// New creates a Service from the configuration.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logs, err := logger.Setup(logger.Options{
		Level:      cfg.Logging.Level,
		Console:    cfg.Logging.Console,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		logg.Warnf("sentry disabled: %v", err)
		mon = coremon.NopMonitor{}
	}
	coremon.Init(mon)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	provider, err := Forecast(cfg.Forecast, logg)
	if err != nil {
		return nil, err
	}

	backend, err := logging.NewBackend(cfg.BufferStore)
	if err != nil {
		return nil, fmt.Errorf("buffer store: %w", err)
	}
	buf, err := buffer.NewCalculator(ctx, cfg.Buffer, backend.Events, backend.State, logger.New("buffer"), time.Now())
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("buffer: %w", err)
	}

	seq, err := sequencer.New(cfg.Sequencer)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("sequencer: %w", err)
	}

	client, err := mqtt.NewClient(cfg.MQTT)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("mqtt client: %w", err)
	}

	store := state.NewStore()
	bus := eventbus.NewTyped[events.Event]()
	eng, err := engine.New(cfg.Cycle, engine.Deps{
		Vehicles: cfg.Vehicles,
		Forecast: coreforecast.Resolver{
			Provider: provider,
			Baseline: cfg.Forecast.Baseline,
			Timeout:  cfg.Cycle.FetchTimeout,
			Slots:    cfg.Planner.HorizonSlots,
		},
		Battery:   client,
		Telemetry: client,
		Charger:   client,
		Planner:   planner.New(cfg.Planner, logger.New("planner")),
		Sequencer: seq,
		Buffer:    buf,
		Mode:      modecontrol.New(cfg.ModeControl, client, logger.New("mode_control")),
		Boost:     boost.New(cfg.Boost, cfg.VehicleIDs(), seq.InQuietHours),
		Departure: departure.NewTracker(cfg.Departure),
		Store:     store,
		Events:    bus,
		Log:       logger.New("engine"),
	})
	if err != nil {
		client.Disconnect()
		_ = backend.Close()
		return nil, err
	}
	client.OnPlugChange(func(connected bool) {
		logg.Infof("plug state changed (connected=%t), triggering a cycle", connected)
		eng.Trigger()
	})
	if err := client.Connect(); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("mqtt client: %w", err)
	}

	router := api.NewRouter(eng, api.Options{
		BufferEvents: cfg.API.BufferEvents,
		Token:        cfg.API.Token,
		Metrics:      promhttp.Handler(),
		Log:          logger.New("api"),
	})
	return &Service{
		cfg:     cfg,
		Engine:  eng,
		client:  client,
		store:   store,
		bus:     bus,
		sink:    sink,
		backend: backend,
		handler: router,
		logs:    logs,
		log:     logg,
	}, nil
}

// Forecast builds the forecast provider of cfg. A price source without a
// provider is applied on top of the baseline profile.
func Forecast(cfg config.ForecastConfig, log logger.Logger) (coreforecast.Provider, error) {
	provider, err := coreforecast.NewProvider(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("forecast provider: %w", err)
	}
	price, err := coreforecast.NewPriceSource(cfg.Price)
	if err != nil {
		return nil, fmt.Errorf("price source: %w", err)
	}
	if price == nil {
		return provider, nil
	}
	if provider == nil {
		provider = coreforecast.Profile{Baseline: cfg.Baseline}
	}
	return coreforecast.Composite{
		Base:  provider,
		Price: price,
		OnPriceError: func(err error) {
			log.Warnf("price source failed, keeping forecast prices: %v", err)
		},
	}, nil
}

// Handler returns the HTTP handler tree.
func (s *Service) Handler() http.Handler { return s.handler }

// Run starts the decision loop, the metrics collector and the API, and
// blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	collected := metrics.StartEventCollector(ctx, s.bus, s.sink, logger.New("metrics"))

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := s.Engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errs <- fmt.Errorf("engine: %w", err)
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		s.log.Infof("API listening on %s", s.cfg.API.Addr)
		if err := api.Serve(ctx, s.cfg.API.Addr, s.handler, s.cfg.API.ReadTimeout, s.cfg.API.WriteTimeout); err != nil {
			errs <- fmt.Errorf("api: %w", err)
			cancel()
		}
	}()
	wg.Wait()
	<-collected
	close(errs)

	var all []error
	for err := range errs {
		all = append(all, err)
	}
	return errors.Join(all...)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.client.Disconnect()
	s.store.Close()
	s.bus.Close()
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(s.backend.Close(), s.logs.Close())
}
