// Package store defines persistence interfaces and shared error types for
// the collection service.
//
// Interfaces here are implemented by the postgres platform package; tests use
// in-memory fakes. All stores accept a context for cancellation and expose a
// WithTx variant so several operations can share one transaction when a
// caller needs that.
package store
