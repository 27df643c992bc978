package di

import (
	"net/http"

	"go.uber.org/zap"

	cmdhandlers "github.com/solm0/solmee-xyz-keystone/application/commands/handlers"
	"github.com/solm0/solmee-xyz-keystone/application/ports"
	queryhandlers "github.com/solm0/solmee-xyz-keystone/application/queries/handlers"
	"github.com/solm0/solmee-xyz-keystone/application/services"
	"github.com/solm0/solmee-xyz-keystone/infrastructure/config"
	"github.com/solm0/solmee-xyz-keystone/infrastructure/observability"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Store      ports.EntityStore
	Publisher  ports.EventPublisher
	Collector  *observability.Collector
	Tracing    *observability.TracerProvider
	Lexicon    *config.LexiconWatcher
	Pipeline   *services.ContentPipeline
	Dispatcher *cmdhandlers.ContentDispatcher
	Register   *cmdhandlers.RegisterArticleHandler
	Curated    *cmdhandlers.SetCuratedLinksHandler
	Graph      *queryhandlers.GetArticleGraphHandler
	Keywords   *queryhandlers.ListKeywordsHandler
	Handler    http.Handler
}
