package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/solm0/solmee-xyz-keystone/application/commands"
	"github.com/solm0/solmee-xyz-keystone/application/ports"
	"github.com/solm0/solmee-xyz-keystone/application/services"
	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
	"github.com/solm0/solmee-xyz-keystone/pkg/extensions"
)

const (
	// ContentPluginName is the name the content plugin registers under
	ContentPluginName = "content-intelligence"

	resultContent = "content"
	entityArticle = "article"
)

// ContentPlugin wires the content pipeline into the article lifecycle hooks
type ContentPlugin struct {
	store      ports.ArticleStore
	register   *RegisterArticleHandler
	defaultTag *AssignDefaultTagHandler
	process    *ProcessContentHandler
	logger     *zap.Logger
}

// NewContentPlugin creates the content plugin
func NewContentPlugin(
	store ports.ArticleStore,
	register *RegisterArticleHandler,
	defaultTag *AssignDefaultTagHandler,
	process *ProcessContentHandler,
	logger *zap.Logger,
) *ContentPlugin {
	return &ContentPlugin{
		store:      store,
		register:   register,
		defaultTag: defaultTag,
		process:    process,
		logger:     logger,
	}
}

func (p *ContentPlugin) Name() string                         { return ContentPluginName }
func (p *ContentPlugin) Version() string                      { return "1.0.0" }
func (p *ContentPlugin) Initialize(ctx context.Context) error { return nil }
func (p *ContentPlugin) Shutdown(ctx context.Context) error   { return nil }

// RegisterHooks registers the plugin's hooks
func (p *ContentPlugin) RegisterHooks(manager *extensions.HookManager) error {
	manager.Register(extensions.HookBeforeArticleCreate, p.ensureArticle)
	manager.Register(extensions.HookAfterArticleCreate, p.assignDefaultTag)
	manager.Register(extensions.HookAfterArticleCreate, p.processContent)
	manager.Register(extensions.HookAfterArticleUpdate, p.processContent)
	return nil
}

// ensureArticle registers the article of a create event when the store does not know it yet
func (p *ContentPlugin) ensureArticle(ctx context.Context, data *extensions.HookData) error {
	cmd, err := commandOf(data)
	if err != nil {
		return err
	}

	articleID, err := valueobjects.NewArticleIDFromString(cmd.ArticleID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}

	_, err = p.store.GetArticle(ctx, articleID)
	if err == nil {
		return nil
	}
	if !pkgerrors.IsNotFound(err) {
		return err
	}

	title := cmd.Title
	if title == "" {
		title = cmd.ArticleID
	}
	_, err = p.register.Handle(ctx, commands.RegisterArticleCommand{ArticleID: cmd.ArticleID, Title: title})
	return err
}

// assignDefaultTag never fails the event; a missing tag is repaired on the next create
func (p *ContentPlugin) assignDefaultTag(ctx context.Context, data *extensions.HookData) error {
	cmd, err := commandOf(data)
	if err != nil {
		return err
	}

	if _, err := p.defaultTag.Handle(ctx, commands.AssignDefaultTagCommand{ArticleID: cmd.ArticleID}); err != nil {
		p.logger.Warn("Failed to assign default tag",
			zap.String("article_id", cmd.ArticleID),
			zap.Error(err),
		)
	}
	return nil
}

func (p *ContentPlugin) processContent(ctx context.Context, data *extensions.HookData) error {
	cmd, err := commandOf(data)
	if err != nil {
		return err
	}

	result, err := p.process.Handle(ctx, cmd)
	if result != nil {
		data.SetResult(resultContent, result)
	}
	return err
}

func commandOf(data *extensions.HookData) (commands.ProcessContentCommand, error) {
	cmd, ok := data.After.(commands.ProcessContentCommand)
	if !ok {
		return commands.ProcessContentCommand{}, pkgerrors.NewInternalError(fmt.Sprintf("unexpected hook payload %T", data.After))
	}
	return cmd, nil
}

// ContentDispatcher turns content-changed events into a run of the article lifecycle hooks
type ContentDispatcher struct {
	hooks *extensions.HookManager
}

// NewContentDispatcher creates a new content dispatcher
func NewContentDispatcher(hooks *extensions.HookManager) *ContentDispatcher {
	return &ContentDispatcher{hooks: hooks}
}

// Dispatch validates the command and runs its before and after hooks. The
// pipeline result is returned whenever the pipeline ran, even if it failed.
func (d *ContentDispatcher) Dispatch(ctx context.Context, cmd commands.ProcessContentCommand) (*services.ContentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	data := &extensions.HookData{
		EntityType: entityArticle,
		EntityID:   cmd.ArticleID,
		Operation:  cmd.Operation,
		After:      cmd,
	}
	err := d.hooks.RunOperation(ctx, data)

	var result *services.ContentResult
	if v, ok := data.Result(resultContent); ok {
		result = v.(*services.ContentResult)
	}
	return result, err
}
