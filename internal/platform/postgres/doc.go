// Package postgres provides PostgreSQL implementations of the task and
// inventory stores, the schema migrations they rely on, and a LISTEN/NOTIFY
// listener that wakes the task runner when another process enqueues work.
package postgres
