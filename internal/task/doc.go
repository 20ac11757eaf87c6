// Package task provides asynchronous execution of collection runs: an
// in-memory queue consumed by a small worker pool, a registry that enforces
// at most one in-flight run per target and serves status polls, and the
// submission service the HTTP layer uses.
package task
