// Package logger provides structured logging for the render graph using
// zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers. Pipeline nodes log through WithNode so every
// line carries the node label used by the profiler.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//
// # Usage
//
//	log := logger.Get("dag")
//	log.WithNode("haze").Debug("node skipped", logger.Fields("frame", 12))
package logger
