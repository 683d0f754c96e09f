package plugins

import (
	"context"

	"github.com/BaSui01/imagegen/types"
)

// PluginState represents the lifecycle state of a plugin.
type PluginState string

const (
	PluginStateRegistered  PluginState = "registered"
	PluginStateInitialized PluginState = "initialized"
	PluginStateFailed      PluginState = "failed"
	PluginStateShutdown    PluginState = "shutdown"
)

// Plugin defines a pluggable chat extension.
type Plugin interface {
	// Name returns the unique plugin name.
	Name() string
	// Version returns the plugin version string.
	Version() string
	// Init initializes the plugin. Called after registration.
	Init(ctx context.Context) error
	// Shutdown releases everything the plugin holds.
	Shutdown(ctx context.Context) error
}

// Responder renders replies back to the chat the message came from.
type Responder interface {
	SendText(ctx context.Context, msg *types.Message, text string) error
	SendImage(ctx context.Context, msg *types.Message, data []byte) error
}

// MessageHandler is implemented by plugins that react to inbound messages.
// handled reports whether the message matched one of the plugin's commands.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *types.Message, responder Responder) (handled bool, err error)
}

// PluginMetadata holds descriptive information about a plugin.
type PluginMetadata struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description,omitempty"`
	Author      string   `json:"author,omitempty"`
	Commands    []string `json:"commands,omitempty"`
}

// MetadataProvider is implemented by plugins that describe themselves.
type MetadataProvider interface {
	Metadata() PluginMetadata
}

// ExtractMetadata returns the plugin's own metadata when it provides one,
// otherwise a minimal metadata derived from Name() and Version().
func ExtractMetadata(p Plugin) PluginMetadata {
	if mp, ok := p.(MetadataProvider); ok {
		meta := mp.Metadata()
		if meta.Name == "" {
			meta.Name = p.Name()
		}
		if meta.Version == "" {
			meta.Version = p.Version()
		}
		return meta
	}
	return PluginMetadata{Name: p.Name(), Version: p.Version()}
}

// PluginInfo bundles a plugin instance with its metadata and current state.
type PluginInfo struct {
	Plugin   Plugin         `json:"-"`
	Metadata PluginMetadata `json:"metadata"`
	State    PluginState    `json:"state"`
}
