package di

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	cmdhandlers "github.com/solm0/solmee-xyz-keystone/application/commands/handlers"
	"github.com/solm0/solmee-xyz-keystone/application/ports"
	queryhandlers "github.com/solm0/solmee-xyz-keystone/application/queries/handlers"
	"github.com/solm0/solmee-xyz-keystone/application/services"
	domainconfig "github.com/solm0/solmee-xyz-keystone/domain/config"
	"github.com/solm0/solmee-xyz-keystone/domain/services/keywords"
	"github.com/solm0/solmee-xyz-keystone/infrastructure/config"
	"github.com/solm0/solmee-xyz-keystone/infrastructure/logging"
	"github.com/solm0/solmee-xyz-keystone/infrastructure/messaging/eventbridge"
	"github.com/solm0/solmee-xyz-keystone/infrastructure/observability"
	"github.com/solm0/solmee-xyz-keystone/infrastructure/persistence/dynamodb"
	"github.com/solm0/solmee-xyz-keystone/infrastructure/persistence/memory"
	"github.com/solm0/solmee-xyz-keystone/infrastructure/persistence/resilience"
	"github.com/solm0/solmee-xyz-keystone/infrastructure/persistence/sqlite"
	"github.com/solm0/solmee-xyz-keystone/interfaces/http/rest"
	"github.com/solm0/solmee-xyz-keystone/interfaces/http/rest/handlers"
	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
	"github.com/solm0/solmee-xyz-keystone/pkg/extensions"
)

const metricsNamespace = "keystone"

// StoreBackend is the configured store before the circuit breaker is applied
type StoreBackend struct {
	Store ports.EntityStore
	// Ready is nil when the store has nothing to probe
	Ready rest.ReadinessCheck
}

// ProvideLogger creates the service logger
func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	logger, err := logging.NewLogger(cfg.Logging, cfg.Environment)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = logger.Sync()
	}
	return logger, cleanup, nil
}

// ProvidePipelineConfig returns the domain pipeline configuration
func ProvidePipelineConfig(cfg *config.Config) *domainconfig.PipelineConfig {
	return cfg.PipelineConfig()
}

// ProvideCollector creates the Prometheus collector
func ProvideCollector() *observability.Collector {
	return observability.NewCollector(metricsNamespace)
}

// ProvideTracing installs the global tracer provider
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	rate := cfg.Observability.SampleRate
	if !cfg.Observability.EnableTracing {
		rate = 0
	}
	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.Observability.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.Observability.TracingEndpoint,
		Insecure:    !cfg.IsProduction(),
		SampleRate:  rate,
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("Failed to shut down tracer provider", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Store.Region),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client, honouring a local endpoint
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.Store.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Store.Endpoint)
		}
	})
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideStoreBackend opens the store selected by the configured driver
func ProvideStoreBackend(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) (StoreBackend, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		store, err := sqlite.NewStore(cfg.Store.SQLitePath, logger)
		if err != nil {
			return StoreBackend{}, nil, err
		}
		cleanup := func() {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close sqlite store", zap.Error(err))
			}
		}
		return StoreBackend{Store: store, Ready: store.Ping}, cleanup, nil

	case config.DriverDynamoDB:
		store := dynamodb.NewStore(client, cfg.Store.TableName, logger)
		return StoreBackend{Store: store, Ready: store.Ping}, func() {}, nil

	case config.DriverMemory:
		return StoreBackend{Store: memory.NewStore()}, func() {}, nil
	}
	return StoreBackend{}, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// ProvideEntityStore wraps the backend in the circuit breaker when enabled
func ProvideEntityStore(backend StoreBackend, cfg *config.Config, collector *observability.Collector, logger *zap.Logger) ports.EntityStore {
	if !cfg.CircuitBreaker.Enabled {
		return backend.Store
	}
	cb := cfg.CircuitBreaker
	settings := resilience.DefaultBreakerSettings(cfg.Store.Driver + "-store")
	settings.MaxRequests = cb.MaxRequests
	settings.Interval = cb.Interval
	settings.Timeout = cb.Timeout
	settings.FailureRatio = cb.FailureRatio
	settings.MinRequests = cb.MinRequests
	return resilience.NewStore(backend.Store, settings, collector, logger)
}

// ProvideReadinessCheck exposes the backend probe to the router
func ProvideReadinessCheck(backend StoreBackend) rest.ReadinessCheck {
	return backend.Ready
}

// ProvideArticleLocker picks a lock that spans processes when the store does
func ProvideArticleLocker(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.ArticleLocker {
	if cfg.Store.Driver == config.DriverDynamoDB {
		return dynamodb.NewDistributedLocker(client, cfg.Store.TableName, cfg.Store.LockTTL, logger)
	}
	return memory.NewKeyedLocker()
}

// ProvideEventPublisher publishes to EventBridge when events are enabled and
// logs them otherwise
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, collector *observability.Collector, logger *zap.Logger) ports.EventPublisher {
	if !cfg.Events.Enabled {
		return eventbridge.NewLogPublisher(logger)
	}
	return eventbridge.NewPublisher(client, cfg.Events.BusName, cfg.Events.Source, collector, logger)
}

// ProvideLexicon loads the lexicon file when one is configured
func ProvideLexicon(cfg *config.Config) (*keywords.SwappableLexicon, error) {
	if cfg.Pipeline.LexiconFile == "" {
		return keywords.NewSwappableLexicon(domainconfig.DefaultLexicon()), nil
	}
	lexicon, err := domainconfig.LoadLexiconFile(cfg.Pipeline.LexiconFile)
	if err != nil {
		return nil, err
	}
	return keywords.NewSwappableLexicon(lexicon), nil
}

// ProvideLexiconWatcher starts hot reloading when enabled. It returns nil
// otherwise.
func ProvideLexiconWatcher(ctx context.Context, cfg *config.Config, lexicon *keywords.SwappableLexicon, logger *zap.Logger) (*config.LexiconWatcher, func(), error) {
	if !cfg.Pipeline.WatchLexicon {
		return nil, func() {}, nil
	}
	watcher, err := config.NewLexiconWatcher(cfg.Pipeline.LexiconFile, lexicon, logger)
	if err != nil {
		return nil, nil, err
	}
	watcher.Start(ctx)
	cleanup := func() {
		if err := watcher.Close(); err != nil {
			logger.Warn("Failed to close lexicon watcher", zap.Error(err))
		}
	}
	return watcher, cleanup, nil
}

// ProvideExtractor creates the keyword extractor
func ProvideExtractor(pc *domainconfig.PipelineConfig, lexicon *keywords.SwappableLexicon) *keywords.Extractor {
	return keywords.NewExtractor(pc, lexicon)
}

// ProvideKeywordPersister creates the keyword half of the pipeline
func ProvideKeywordPersister(store ports.EntityStore, publisher ports.EventPublisher, logger *zap.Logger) *services.KeywordPersister {
	return services.NewKeywordPersister(store, publisher, logger)
}

// ProvideLinkReconciler creates the link half of the pipeline
func ProvideLinkReconciler(store ports.EntityStore, publisher ports.EventPublisher, logger *zap.Logger) *services.LinkReconciler {
	return services.NewLinkReconciler(store, publisher, logger)
}

// ProvideContentPipeline creates the content pipeline
func ProvideContentPipeline(
	pc *domainconfig.PipelineConfig,
	extractor *keywords.Extractor,
	persister *services.KeywordPersister,
	reconciler *services.LinkReconciler,
	locker ports.ArticleLocker,
	collector *observability.Collector,
	logger *zap.Logger,
) *services.ContentPipeline {
	return services.NewContentPipeline(pc, extractor, persister, reconciler, locker, collector, logger)
}

// ProvideRegisterArticleHandler creates the register article handler
func ProvideRegisterArticleHandler(store ports.EntityStore, logger *zap.Logger) *cmdhandlers.RegisterArticleHandler {
	return cmdhandlers.NewRegisterArticleHandler(store, logger)
}

// ProvideAssignDefaultTagHandler creates the default tag handler
func ProvideAssignDefaultTagHandler(pc *domainconfig.PipelineConfig, store ports.EntityStore, logger *zap.Logger) *cmdhandlers.AssignDefaultTagHandler {
	return cmdhandlers.NewAssignDefaultTagHandler(pc, store, logger)
}

// ProvideSetCuratedLinksHandler creates the curated links handler
func ProvideSetCuratedLinksHandler(store ports.EntityStore, logger *zap.Logger) *cmdhandlers.SetCuratedLinksHandler {
	return cmdhandlers.NewSetCuratedLinksHandler(store, logger)
}

// ProvideProcessContentHandler creates the process content handler
func ProvideProcessContentHandler(pc *domainconfig.PipelineConfig, pipeline *services.ContentPipeline, logger *zap.Logger) *cmdhandlers.ProcessContentHandler {
	return cmdhandlers.NewProcessContentHandler(pc, pipeline, logger)
}

// ProvideGetArticleGraphHandler creates the graph query handler
func ProvideGetArticleGraphHandler(store ports.EntityStore, logger *zap.Logger) *queryhandlers.GetArticleGraphHandler {
	return queryhandlers.NewGetArticleGraphHandler(store, logger)
}

// ProvideListKeywordsHandler creates the vocabulary query handler
func ProvideListKeywordsHandler(store ports.EntityStore) *queryhandlers.ListKeywordsHandler {
	return queryhandlers.NewListKeywordsHandler(store)
}

// ProvideContentPlugin creates the plugin that hooks the pipeline into the
// article lifecycle
func ProvideContentPlugin(
	store ports.EntityStore,
	register *cmdhandlers.RegisterArticleHandler,
	defaultTag *cmdhandlers.AssignDefaultTagHandler,
	process *cmdhandlers.ProcessContentHandler,
	logger *zap.Logger,
) *cmdhandlers.ContentPlugin {
	return cmdhandlers.NewContentPlugin(store, register, defaultTag, process, logger)
}

// ProvideHookManager creates the hook manager
func ProvideHookManager() *extensions.HookManager {
	return extensions.NewHookManager()
}

// ProvidePluginManager registers the content plugin
func ProvidePluginManager(ctx context.Context, hooks *extensions.HookManager, plugin *cmdhandlers.ContentPlugin, logger *zap.Logger) (*extensions.PluginManager, func(), error) {
	manager := extensions.NewPluginManager(hooks)
	if err := manager.Register(ctx, plugin); err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := manager.Shutdown(context.Background()); err != nil {
			logger.Warn("Failed to shut down plugins", zap.Error(err))
		}
	}
	return manager, cleanup, nil
}

// ProvideContentDispatcher creates the dispatcher once the plugins are registered
func ProvideContentDispatcher(hooks *extensions.HookManager, _ *extensions.PluginManager) *cmdhandlers.ContentDispatcher {
	return cmdhandlers.NewContentDispatcher(hooks)
}

// ProvideErrorHandler creates the HTTP error handler. Development responses
// carry error details.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideContentHandler creates the content REST handler
func ProvideContentHandler(
	dispatcher *cmdhandlers.ContentDispatcher,
	pipeline *services.ContentPipeline,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *handlers.ContentHandler {
	return handlers.NewContentHandler(dispatcher, pipeline, errorHandler, logger)
}

// ProvideArticleHandler creates the article REST handler
func ProvideArticleHandler(
	register *cmdhandlers.RegisterArticleHandler,
	curated *cmdhandlers.SetCuratedLinksHandler,
	graph *queryhandlers.GetArticleGraphHandler,
	kws *queryhandlers.ListKeywordsHandler,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *handlers.ArticleHandler {
	return handlers.NewArticleHandler(register, curated, graph, kws, errorHandler, logger)
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	cfg *config.Config,
	content *handlers.ContentHandler,
	articles *handlers.ArticleHandler,
	errorHandler *pkgerrors.ErrorHandler,
	collector *observability.Collector,
	ready rest.ReadinessCheck,
	logger *zap.Logger,
) *rest.Router {
	opts := rest.Options{
		EnableCORS:     cfg.Server.EnableCORS,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Ready:          ready,
	}
	if cfg.Observability.EnableMetrics {
		opts.Metrics = collector.Handler()
		opts.Recorder = collector
	}
	return rest.NewRouter(content, articles, errorHandler, opts, logger)
}

// ProvideHTTPHandler builds the routes
func ProvideHTTPHandler(router *rest.Router) http.Handler {
	return router.Setup()
}
