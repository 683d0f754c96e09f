package plugins

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/imagegen/types"
)

// Manager drives plugin lifecycle and fans inbound messages out to the
// initialized message handlers.
type Manager struct {
	registry *Registry
	logger   *zap.Logger
}

// NewManager creates a Manager backed by the given registry.
func NewManager(registry *Registry, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = NewRegistry(logger)
	}
	return &Manager{
		registry: registry,
		logger:   logger.With(zap.String("component", "plugin_manager")),
	}
}

// Register adds a plugin using ExtractMetadata.
func (m *Manager) Register(plugin Plugin) error {
	if plugin == nil {
		return fmt.Errorf("plugin must not be nil")
	}
	return m.registry.Register(plugin, ExtractMetadata(plugin))
}

// InitAll initializes all registered plugins.
func (m *Manager) InitAll(ctx context.Context) error {
	m.logger.Info("initializing all plugins")
	if err := m.registry.InitAll(ctx); err != nil {
		return fmt.Errorf("plugin manager: init all: %w", err)
	}
	m.logger.Info("all plugins initialized")
	return nil
}

// ShutdownAll shuts down all initialized plugins.
func (m *Manager) ShutdownAll(ctx context.Context) error {
	m.logger.Info("shutting down all plugins")
	if err := m.registry.ShutdownAll(ctx); err != nil {
		return fmt.Errorf("plugin manager: shutdown all: %w", err)
	}
	m.logger.Info("all plugins shut down")
	return nil
}

// Registry returns the underlying Registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Dispatch hands msg to every initialized message handler. handled is true
// when at least one plugin claimed the message. A panicking handler is
// reported as an error and does not stop the others.
func (m *Manager) Dispatch(ctx context.Context, msg *types.Message, responder Responder) (bool, error) {
	if msg == nil {
		return false, nil
	}

	var (
		handled bool
		errs    []error
	)
	for _, h := range m.registry.handlers() {
		ok, err := m.invoke(ctx, h, msg, responder)
		handled = handled || ok
		if err != nil {
			m.logger.Warn("plugin failed to handle message",
				zap.String("plugin", h.name),
				zap.String("message_id", msg.ID),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("plugin %s: %w", h.name, err))
		}
	}
	return handled, errors.Join(errs...)
}

func (m *Manager) invoke(ctx context.Context, h namedHandler, msg *types.Message, responder Responder) (handled bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.handler.HandleMessage(ctx, msg, responder)
}
