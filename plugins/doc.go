// Package plugins provides the plugin registry and lifecycle manager that
// hosts chat command plugins.
//
// A Plugin has an Init/Shutdown lifecycle. Plugins that also implement
// MessageHandler receive every inbound message through Manager.Dispatch,
// in registration order, once they are initialized.
//
// Usage:
//
//	manager := plugins.NewManager(plugins.NewRegistry(logger), logger)
//	manager.Register(imagePlugin)
//	manager.InitAll(ctx)
//	defer manager.ShutdownAll(ctx)
//	manager.Dispatch(ctx, msg, responder)
package plugins
