package app

import (
	"context"
	"strconv"
	"time"

	"github.com/appetiteclub/tablepos/pkg"
	"github.com/appetiteclub/tablepos/services/draft/internal/draft"
	"github.com/appetiteclub/tablepos/services/draft/internal/events"
	"github.com/appetiteclub/tablepos/services/draft/internal/menu"
	"github.com/appetiteclub/tablepos/services/draft/internal/mongo"
	"github.com/appetiteclub/tablepos/services/draft/internal/printing"
	"github.com/aquamarinepk/aqm"
	aqmevents "github.com/aquamarinepk/aqm/events"
	"github.com/aquamarinepk/aqm/middleware"
)

const (
	AppName    = "draft"
	AppVersion = "0.1.0"
)

// App encapsulates the draft service application
type App struct {
	config    *aqm.Config
	logger    aqm.Logger
	micro     *aqm.Micro
	draftRepo *mongo.DraftRepo
}

// New creates a new draft service application
func New(config *aqm.Config, logger aqm.Logger) (*App, error) {
	return &App{
		config: config,
		logger: logger,
	}, nil
}

// Initialize sets up all dependencies and components
func (a *App) Initialize(ctx context.Context) error {
	a.draftRepo = mongo.NewDraftRepo(a.config, a.logger)

	natsURL, _ := a.config.GetString("nats.url")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	// KOT events and print jobs go to JetStream when enabled so kitchen
	// displays and print bridges can replay what they missed.
	var kotStream *pkg.NATSStream
	var natsPublisher *pkg.NATSPublisher
	var eventPublisher aqmevents.Publisher

	streamEnabled, _ := a.config.GetString("nats.stream.enabled")
	if streamEnabled == "true" {
		streamCfg := pkg.NATSStreamConfig{
			URL:        natsURL,
			StreamName: "KOT_EVENTS",
			Subjects:   []string{pkg.KotTopic, pkg.PrintJobTopic, pkg.PrintJobTopic + ".>"},
			MaxAge:     24 * time.Hour,
		}
		var err error
		kotStream, err = pkg.NewNATSStream(ctx, streamCfg)
		if err != nil {
			return err
		}
		a.logger.Info("NATS stream initialized for persistent events")
		eventPublisher = kotStream
	} else {
		var err error
		natsPublisher, err = pkg.NewNATSPublisher(natsURL)
		if err != nil {
			return err
		}
		eventPublisher = natsPublisher
	}

	menuSubscriber, err := pkg.NewNATSSubscriber(natsURL, a.logger)
	if err != nil {
		return err
	}

	// Menu catalog
	menuURL, _ := a.config.GetString("services.menu.url")
	if menuURL == "" {
		menuURL = "http://localhost:8088"
	}
	catalog := menu.NewCatalog(menu.NewServiceSource(menuURL), a.duration("menu.cache.ttl", menu.DefaultTTL), a.logger)
	menuEvents := events.NewMenuSubscriber(menuSubscriber, catalog, a.logger)

	// Printing
	var printer printing.Printer = printing.NewNATSPrinter(eventPublisher, a.logger)
	if transport, _ := a.config.GetString("print.transport"); transport == "log" {
		printer = printing.NewLogPrinter(a.logger)
	}
	width := printing.DefaultWidth
	if raw, _ := a.config.GetString("print.width"); raw != "" {
		if w, err := strconv.Atoi(raw); err == nil {
			width = w
		}
	}

	// Draft storage, optionally gated by the restaurant's subscription
	var store draft.Store = a.draftRepo
	if enforce, _ := a.config.GetString("subscription.enforce"); enforce == "true" {
		store = draft.NewGuardedStore(a.draftRepo, mongo.NewSubscriptionRepo(a.draftRepo.GetDatabase), a.logger)
	}

	kotStreamServer := draft.NewKotStreamServer(a.logger)
	relay := draft.NewEventRelay(eventPublisher, kotStreamServer, a.logger)

	sessions := draft.NewRegistry(draft.SessionDeps{
		Store:    store,
		Catalog:  catalog,
		Printer:  printer,
		Renderer: printing.NewRenderer(width),
		Observer: relay,
		Logger:   a.logger,
	})
	sessions.SetIdle(a.duration("draft.session.idle", draft.DefaultSessionIdle))

	handler := draft.NewHandler(draft.HandlerDeps{
		Sessions: sessions,
		Menu:     catalog,
	}, a.config, a.logger)

	// Setup middleware
	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:      a.logger,
		DisableCORS: true,
	})
	stack = append(stack, middleware.InternalOnly())

	// Setup lifecycle hooks
	lifecycles := []interface{}{a.draftRepo, catalog, menuEvents, sessions}

	// Seeds need a connected database, so they run after the repo starts
	seedLifecycle := aqm.LifecycleHooks{
		OnStart: func(ctx context.Context) error {
			if err := mongo.ApplyDemoSeeds(ctx, a.config, a.draftRepo.GetDatabase, a.logger); err != nil {
				a.logger.Errorf("Demo seeding failed (non-fatal): %v", err)
			}
			return nil
		},
	}
	lifecycles = append(lifecycles, seedLifecycle)

	if kotStream != nil {
		streamLifecycle := aqm.LifecycleHooks{
			OnStop: func(context.Context) error { return kotStream.Close() },
		}
		lifecycles = append(lifecycles, streamLifecycle)
	}
	if natsPublisher != nil {
		publisherLifecycle := aqm.LifecycleHooks{
			OnStop: func(context.Context) error { return natsPublisher.Close() },
		}
		lifecycles = append(lifecycles, publisherLifecycle)
	}
	subscriberLifecycle := aqm.LifecycleHooks{
		OnStop: func(context.Context) error { return menuSubscriber.Close() },
	}
	lifecycles = append(lifecycles, subscriberLifecycle)

	// Build micro service
	options := []aqm.Option{
		aqm.WithConfig(a.config),
		aqm.WithLogger(a.logger),
		aqm.WithHTTPMiddleware(stack...),
		aqm.WithHTTPServerModules("web.port", handler),
		aqm.WithGRPCServerModules("grpc.port", kotStreamServer),
		aqm.WithLifecycle(lifecycles...),
		aqm.WithHealthChecks(AppName),
	}

	a.micro = aqm.NewMicro(options...)
	return nil
}

// Run starts the application
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("Starting %s(%s)", AppName, AppVersion)
	if err := a.micro.Run(ctx); err != nil {
		return err
	}
	a.logger.Infof("%s(%s) stopped", AppName, AppVersion)
	return nil
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	// Lifecycle cleanup is handled by aqm.Micro
	return nil
}

func (a *App) duration(key string, fallback time.Duration) time.Duration {
	raw, _ := a.config.GetString(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		a.logger.Info("invalid duration in config, using default", "key", key, "value", raw, "default", fallback.String())
		return fallback
	}
	return d
}
