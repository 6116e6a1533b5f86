// Package component defines the lifecycle contract for long-lived render
// infrastructure (framebuffer manager, configuration watcher, developer
// console) and a registry that starts them in order and stops them in
// reverse.
package component
