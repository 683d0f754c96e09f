package plugins

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Sentinel errors for the plugin registry.
var (
	ErrPluginAlreadyRegistered = errors.New("plugin already registered")
	ErrPluginNotFound          = errors.New("plugin not found")
)

// Registry is a thread-safe plugin registry. Plugins keep their
// registration order, which is also the dispatch and init order; shutdown
// runs in reverse.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]*PluginInfo
	order   []string
	logger  *zap.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		plugins: make(map[string]*PluginInfo),
		logger:  logger.With(zap.String("component", "plugin_registry")),
	}
}

// Register adds a plugin in the Registered state.
func (r *Registry) Register(plugin Plugin, metadata PluginMetadata) error {
	if plugin == nil {
		return fmt.Errorf("plugin must not be nil")
	}
	name := plugin.Name()
	if name == "" {
		return fmt.Errorf("plugin name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[name]; exists {
		return fmt.Errorf("%w: %s", ErrPluginAlreadyRegistered, name)
	}
	r.plugins[name] = &PluginInfo{Plugin: plugin, Metadata: metadata, State: PluginStateRegistered}
	r.order = append(r.order, name)

	r.logger.Info("plugin registered",
		zap.String("name", name),
		zap.String("version", plugin.Version()))
	return nil
}

// Unregister removes a plugin. If it was initialized, Shutdown is called first.
func (r *Registry) Unregister(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, exists := r.plugins[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	if info.State == PluginStateInitialized {
		if err := info.Plugin.Shutdown(ctx); err != nil {
			r.logger.Warn("plugin shutdown failed during unregister",
				zap.String("name", name),
				zap.Error(err))
		}
	}

	delete(r.plugins, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
	r.logger.Info("plugin unregistered", zap.String("name", name))
	return nil
}

// Get returns plugin info by name.
func (r *Registry) Get(name string) (*PluginInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.plugins[name]
	return info, ok
}

// List returns all plugins in registration order.
func (r *Registry) List() []*PluginInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*PluginInfo, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.plugins[name])
	}
	return out
}

// InitAll initializes every plugin still in the Registered state.
// A failing plugin is marked Failed; the rest are still initialized.
func (r *Registry) InitAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, name := range r.order {
		info := r.plugins[name]
		if info.State != PluginStateRegistered {
			continue
		}
		if err := info.Plugin.Init(ctx); err != nil {
			info.State = PluginStateFailed
			r.logger.Error("plugin init failed", zap.String("name", name), zap.Error(err))
			errs = append(errs, fmt.Errorf("init plugin %s: %w", name, err))
			continue
		}
		info.State = PluginStateInitialized
		r.logger.Info("plugin initialized", zap.String("name", name))
	}
	return errors.Join(errs...)
}

// ShutdownAll shuts down initialized plugins in reverse registration order.
func (r *Registry) ShutdownAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.order) - 1; i >= 0; i-- {
		name := r.order[i]
		info := r.plugins[name]
		if info.State != PluginStateInitialized {
			continue
		}
		if err := info.Plugin.Shutdown(ctx); err != nil {
			r.logger.Error("plugin shutdown failed", zap.String("name", name), zap.Error(err))
			errs = append(errs, fmt.Errorf("shutdown plugin %s: %w", name, err))
			continue
		}
		info.State = PluginStateShutdown
		r.logger.Info("plugin shut down", zap.String("name", name))
	}
	return errors.Join(errs...)
}

// handlers returns the initialized plugins that handle messages.
func (r *Registry) handlers() []namedHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []namedHandler
	for _, name := range r.order {
		info := r.plugins[name]
		if info.State != PluginStateInitialized {
			continue
		}
		if h, ok := info.Plugin.(MessageHandler); ok {
			out = append(out, namedHandler{name: name, handler: h})
		}
	}
	return out
}

type namedHandler struct {
	name    string
	handler MessageHandler
}
