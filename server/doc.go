// Package server provides the developer console: a small gin HTTP API,
// served over HTTP/1.1 and cleartext HTTP/2 (h2c), that reports component
// health, lists graph nodes with their enabled state, and reads and toggles
// rendering flags live.
//
//	GET  /health            aggregate component health
//	GET  /nodes             node names and enabled state
//	GET  /rendering         current flag values
//	PUT  /rendering/:flag   {"value": true|false}
//
// Toggling a flag goes through config.Rendering.Set, so every gated node
// subscribed to it is notified and picks up the new value on the next frame.
package server
