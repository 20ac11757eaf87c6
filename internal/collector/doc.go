// Package collector implements the collection runs: paced sequential page
// walks over the upstream API, quality scoring for keyword searches, and the
// per-run state machine recorded as collection logs.
package collector
