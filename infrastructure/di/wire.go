//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/solm0/solmee-xyz-keystone/infrastructure/config"
)

// InfrastructureSet provides clients, the store and cross-cutting concerns
var InfrastructureSet = wire.NewSet(
	ProvideLogger,
	ProvideCollector,
	ProvideTracing,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideStoreBackend,
	ProvideEntityStore,
	ProvideReadinessCheck,
	ProvideArticleLocker,
	ProvideEventPublisher,
)

// ApplicationSet provides the pipeline and its command and query handlers
var ApplicationSet = wire.NewSet(
	ProvidePipelineConfig,
	ProvideLexicon,
	ProvideLexiconWatcher,
	ProvideExtractor,
	ProvideKeywordPersister,
	ProvideLinkReconciler,
	ProvideContentPipeline,
	ProvideRegisterArticleHandler,
	ProvideAssignDefaultTagHandler,
	ProvideSetCuratedLinksHandler,
	ProvideProcessContentHandler,
	ProvideGetArticleGraphHandler,
	ProvideListKeywordsHandler,
	ProvideContentPlugin,
	ProvideHookManager,
	ProvidePluginManager,
	ProvideContentDispatcher,
)

// InterfaceSet provides the HTTP surface
var InterfaceSet = wire.NewSet(
	ProvideErrorHandler,
	ProvideContentHandler,
	ProvideArticleHandler,
	ProvideRouter,
	ProvideHTTPHandler,
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	InfrastructureSet,
	ApplicationSet,
	InterfaceSet,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The returned cleanup
// releases resources in reverse order of creation.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
