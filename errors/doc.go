// Package errors provides the structured error type shared by the render
// graph packages. Every error carries a machine-readable code so callers
// (the frame loop, the developer console) can branch on the failure kind
// without string matching.
package errors
