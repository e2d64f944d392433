// Package config loads the StorePulse server configuration.
//
// Sections:
//   - server   http_port (default 8000), log_level, cors_origins
//   - upstream url of the order-data provider, timeout, max_concurrency,
//     page_size and optional auth (apikey | bearer | basic | none)
//   - compute  window horizon plus score and anomaly thresholds
//   - baseline rolling baseline ttl, alpha, min_samples and min_interval
//   - cache    optional Redis response cache
//
// Load(path) applies defaults, unmarshals the YAML file (if any), overlays
// environment variables, then validates. Watch reloads on file change.
package config
