// Package config loads the runtime configuration.
//
// Sources are layered, later ones winning:
//
//  1. built-in defaults (Default)
//  2. a TOML or YAML file given with --config
//  3. REVSWEEP_* environment variables
//  4. command-line flags, applied by the caller
//
// Example file:
//
//	[paths]
//	root = "/data/conflicts_analyzer"
//
//	[supervisor]
//	deadline = 86400
//	drain_timeout = "10s"
//
//	[sweep]
//	enabled = true
//	store_sdgs = true
//
// Environment variables map to keys by section: REVSWEEP_SUPERVISOR_DRAIN_TIMEOUT
// sets supervisor.drain_timeout. REVSWEEP_ROOT, REVSWEEP_LOG_LEVEL and
// REVSWEEP_METRICS_ADDR are shorthands.
package config
