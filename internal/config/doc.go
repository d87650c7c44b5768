// SPDX-License-Identifier: MPL-2.0

// Package config loads the modhost configuration using Viper with CUE as the
// file format.
//
// The file is config.cue in the platform config directory (XDG on Linux,
// ~/Library/Application Support on macOS, %APPDATA% on Windows), or a file
// given explicitly. It is validated against the embedded #Config schema,
// layered over the defaults, and every key can be overridden from the
// environment with the MODHOST_ prefix (MODHOST_LOG_LEVEL,
// MODHOST_WATCH_DEBOUNCE, MODHOST_SEARCH_PATHS as a comma-separated list).
package config
