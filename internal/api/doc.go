// Package api implements the HTTP surface: collection run submission, task
// status polling, and collection log queries.
package api
