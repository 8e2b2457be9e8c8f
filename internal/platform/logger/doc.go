// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured JSON logging
// with configurable log levels, an optional rotating log file, and helpers for carrying
// a request- or task-scoped logger through a context.Context.
package logger
