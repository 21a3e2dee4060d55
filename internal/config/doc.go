// Package config loads the snooze client configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/snooze/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # TOML Format
//
//	base_url = "https://hack-or-snooze-v3.herokuapp.com"
//	timeout = "10s"
//	log_dir = "~/.local/state/snooze"
//	log_level = "info"
//	credentials_path = "~/.config/snooze/credentials.toml"
//	page_size = 25
//	poll_interval = "30s"
//
// Every field is optional. Tilde expansion is performed on paths. Durations
// use time.ParseDuration syntax and must be positive.
//
// # Error Handling
//
// Load returns errors for path expansion failures, read errors other than a
// missing file, TOML parse errors and invalid durations. A missing file is
// not an error.
package config
