package extensions

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// HookPoint represents a point in the article lifecycle where hooks can be registered
type HookPoint string

const (
	HookBeforeArticleCreate HookPoint = "before_article_create"
	HookAfterArticleCreate  HookPoint = "after_article_create"
	HookBeforeArticleUpdate HookPoint = "before_article_update"
	HookAfterArticleUpdate  HookPoint = "after_article_update"
)

// Operations understood by RunOperation
const (
	OperationCreate = "create"
	OperationUpdate = "update"
)

// Hook represents a function that can be executed at a hook point
type Hook func(ctx context.Context, data *HookData) error

// HookManager manages hooks for extension points
type HookManager struct {
	hooks map[HookPoint][]Hook
	mu    sync.RWMutex
}

// NewHookManager creates a new hook manager
func NewHookManager() *HookManager {
	return &HookManager{
		hooks: make(map[HookPoint][]Hook),
	}
}

// Register registers a hook for a specific hook point
func (m *HookManager) Register(point HookPoint, hook Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks[point] = append(m.hooks[point], hook)
}

// Execute runs the hooks of a point in registration order and stops at the first error
func (m *HookManager) Execute(ctx context.Context, point HookPoint, data *HookData) error {
	m.mu.RLock()
	hooks := append([]Hook(nil), m.hooks[point]...)
	m.mu.RUnlock()

	for i, hook := range hooks {
		if err := hook(ctx, data); err != nil {
			return fmt.Errorf("hook %d at %s failed: %w", i, point, err)
		}
	}

	return nil
}

// RunOperation executes the before and after hooks of a create or update
func (m *HookManager) RunOperation(ctx context.Context, data *HookData) error {
	var before, after HookPoint
	switch data.Operation {
	case OperationCreate:
		before, after = HookBeforeArticleCreate, HookAfterArticleCreate
	case OperationUpdate:
		before, after = HookBeforeArticleUpdate, HookAfterArticleUpdate
	default:
		return fmt.Errorf("unknown operation %q", data.Operation)
	}

	if err := m.Execute(ctx, before, data); err != nil {
		return err
	}
	return m.Execute(ctx, after, data)
}

// Count returns the number of hooks registered at a point
func (m *HookManager) Count(point HookPoint) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hooks[point])
}

// Clear removes all hooks for a specific hook point
func (m *HookManager) Clear(point HookPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.hooks, point)
}

// HookData is passed to every hook of one operation. Hooks may leave
// results for the caller under their own key.
type HookData struct {
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	Operation  string                 `json:"operation"`
	Before     interface{}            `json:"before,omitempty"`
	After      interface{}            `json:"after,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`

	mu      sync.Mutex
	results map[string]interface{}
}

// SetResult stores a hook result
func (d *HookData) SetResult(key string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.results == nil {
		d.results = make(map[string]interface{})
	}
	d.results[key] = value
}

// Result returns a hook result
func (d *HookData) Result(key string) (interface{}, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.results[key]
	return v, ok
}

// Plugin represents an extension plugin
type Plugin interface {
	// Name returns the plugin name
	Name() string

	// Version returns the plugin version
	Version() string

	// Initialize initializes the plugin
	Initialize(ctx context.Context) error

	// RegisterHooks registers the plugin's hooks
	RegisterHooks(manager *HookManager) error

	// Shutdown gracefully shuts down the plugin
	Shutdown(ctx context.Context) error
}

// PluginManager manages plugins
type PluginManager struct {
	plugins     map[string]Plugin
	hookManager *HookManager
	mu          sync.RWMutex
}

// NewPluginManager creates a new plugin manager
func NewPluginManager(hookManager *HookManager) *PluginManager {
	return &PluginManager{
		plugins:     make(map[string]Plugin),
		hookManager: hookManager,
	}
}

// Register initializes a plugin and registers its hooks
func (m *PluginManager) Register(ctx context.Context, plugin Plugin) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := plugin.Name()
	if _, exists := m.plugins[name]; exists {
		return fmt.Errorf("plugin %s already registered", name)
	}

	if err := plugin.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize plugin %s: %w", name, err)
	}

	if err := plugin.RegisterHooks(m.hookManager); err != nil {
		return fmt.Errorf("failed to register hooks for plugin %s: %w", name, err)
	}

	m.plugins[name] = plugin
	return nil
}

// Shutdown shuts every plugin down and forgets them
func (m *PluginManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, plugin := range m.plugins {
		if err := plugin.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to shutdown plugin %s: %w", name, err)
		}
		delete(m.plugins, name)
	}
	return firstErr
}

// ListPlugins returns the registered plugin names, sorted
func (m *PluginManager) ListPlugins() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.plugins))
	for name := range m.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
