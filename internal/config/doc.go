// Package config defines the application's configuration structure and
// loading logic.
//
// Configuration is loaded from environment variables (PIXHIVE_ prefix) and an
// optional YAML file, then validated. Static process settings (ports, worker
// counts, upstream credentials) live here; per-run collection tunables are
// stored in the database and read through store.SettingsStore so they can be
// changed between runs without restarting the process.
package config
