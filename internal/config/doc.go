// Package config loads and merges verifycache configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (VERIFYCACHE_CACHE_DIR, VERIFYCACHE_TTL_SECONDS, etc.)
//  3. Config file (./.verifycache.toml, else $XDG_CONFIG_HOME/verifycache/config.toml)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged, validated [Config].
package config
