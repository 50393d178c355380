// Package internal contains the implementation packages for docsman.
//
// # Package Organization
//
//   - config: settings loaded through Viper, with defaults and validation
//   - errors: the DocsError taxonomy and its HTTP status mapping
//   - legend: enumeration of the Markdown files under the root
//   - livereload: turns change events into push notifications
//   - logging: structured logging over log/slog
//   - markdown: goldmark rendering with chroma highlighting
//   - page: request to page pipeline and the HTML layout
//   - registry: live push connections and broadcast fan-out
//   - sandbox: resolution of request paths inside the root
//   - server: chi router, handlers and lifecycle
//   - version: build metadata
//   - watcher: recursive fsnotify observation and event classification
//   - websocket: coder/websocket connections for the registry
//
// # Data Flow
//
// A request goes through sandbox, page (which uses markdown and legend) and
// back out through server. A file change goes from watcher to livereload,
// which broadcasts through registry to every websocket connection.
package internal
