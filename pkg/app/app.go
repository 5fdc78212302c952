package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/illmade-knight/go-billing/pkg/billing"
	"github.com/illmade-knight/go-billing/pkg/config"
	"github.com/illmade-knight/go-billing/pkg/messaging"
	"github.com/illmade-knight/go-billing/pkg/routing"
	"github.com/illmade-knight/go-billing/pkg/telemetry"
	"github.com/illmade-knight/go-billing/pkg/transport"
	"github.com/illmade-knight/go-billing/pkg/types"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// NewLogger builds the root logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	if cfg.LogFormat == "console" {
		out = zerolog.ConsoleWriter{Out: out}
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("module", cfg.ModuleName).Logger()
}

// LoadRoutes reads the routing table. A missing file yields an empty table
// unless routed forwarding depends on it.
func LoadRoutes(cfg *config.Config, logger zerolog.Logger) (*routing.Config, error) {
	routes, err := routing.LoadConfig(cfg.RoutingConfigPath)
	if err == nil {
		return routes, nil
	}
	if errors.Is(err, fs.ErrNotExist) && cfg.ForwardMode != string(messaging.ForwardRouted) {
		logger.Warn().Str("path", cfg.RoutingConfigPath).Msg("Routing config not found, no outbound routes configured")
		return &routing.Config{}, nil
	}
	return nil, err
}

// App is the assembled billing messaging module.
type App struct {
	cfg             *config.Config
	handler         *messaging.BusHandler
	publisher       *messaging.EnvelopePublisher
	closeStore      func() error
	shutdownTracing telemetry.ShutdownFunc
	logger          zerolog.Logger
}

// Option customises New.
type Option func(*options)

type options struct {
	tracerProvider trace.TracerProvider
}

// WithTracerProvider uses tp for dispatch spans instead of building one from
// the TRACING_ settings. The caller owns tp's shutdown.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// New wires tracing, transport, processor, publisher, dispatcher and handler
// from cfg. Nothing is consumed until Start.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	routes, err := LoadRoutes(cfg, logger)
	if err != nil {
		return nil, err
	}
	resolver := routing.NewResolver(cfg.ModuleName, routes)

	tp := o.tracerProvider
	shutdownTracing := telemetry.ShutdownFunc(func(context.Context) error { return nil })
	if tp == nil {
		tp, shutdownTracing, err = telemetry.Setup(ctx, cfg.Tracing, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to set up tracing: %w", err)
		}
	}

	tr, err := transport.New(ctx, cfg, logger)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("failed to create %s transport: %w", cfg.Implementation, err)
	}

	processor, closeStore, err := billing.NewProcessorFromConfig(ctx, cfg, logger)
	if err != nil {
		_ = tr.Close()
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("failed to create processor: %w", err)
	}

	publisher := messaging.NewEnvelopePublisher(tr.Publisher(), resolver, logger)
	dispatcher, err := messaging.NewDispatcher(messaging.DispatcherConfig{
		ForwardMode:    messaging.ForwardMode(cfg.ForwardMode),
		ForwardTopicID: cfg.ForwardTopicID,
	}, processor, publisher, logger, messaging.WithTracerProvider(tp))
	if err != nil {
		_ = closeStore()
		_ = tr.Close()
		_ = shutdownTracing(ctx)
		return nil, err
	}

	handler, err := messaging.NewBusHandler(tr, dispatcher, publisher, cfg.NumWorkers, logger)
	if err != nil {
		_ = closeStore()
		_ = tr.Close()
		_ = shutdownTracing(ctx)
		return nil, err
	}

	return &App{
		cfg:             cfg,
		handler:         handler,
		publisher:       publisher,
		closeStore:      closeStore,
		shutdownTracing: shutdownTracing,
		logger:          logger,
	}, nil
}

// Handler exposes the module's messaging surface.
func (a *App) Handler() messaging.Handler { return a.handler }

// Publish sends envelope to topicID, or to the envelope's configured routes when
// topicID is empty. It returns the topics published to.
func (a *App) Publish(ctx context.Context, envelope *types.Envelope, topicID string) []string {
	if topicID != "" {
		a.publisher.Publish(ctx, envelope, topicID)
		return []string{topicID}
	}
	return a.publisher.PublishToRoutes(ctx, envelope)
}

// Start subscribes to the configured inbound subscription.
func (a *App) Start(ctx context.Context) error {
	if err := a.handler.SubscribeToSubscription(ctx, a.cfg.SubscriptionID); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", a.cfg.SubscriptionID, err)
	}
	a.logger.Info().
		Str("implementation", a.cfg.Implementation).
		Str("subscription_id", a.cfg.SubscriptionID).
		Str("forward_mode", a.cfg.ForwardMode).
		Msg("Billing messaging started")
	return nil
}

// Run starts the module and blocks until ctx is cancelled, then shuts down.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		a.Stop()
		return err
	}
	<-ctx.Done()
	a.logger.Info().Msg("Shutdown signal received")
	a.Stop()
	return nil
}

// Stop drains the workers, flushes publishers, closes the seen store and
// flushes pending spans.
func (a *App) Stop() {
	a.handler.Stop()
	if err := a.closeStore(); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to close seen store")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdownTracing(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to shut down tracer provider")
	}
	a.logger.Info().Msg("Billing messaging stopped")
}
