// SPDX-License-Identifier: MPL-2.0

// Package config loads modhost configuration using Viper with CUE as the file
// format.
//
// The file is config.cue in the platform configuration directory
// ($XDG_CONFIG_HOME/modhost on Linux, ~/Library/Application Support/modhost on
// macOS, %APPDATA%\modhost on Windows), falling back to ./config.cue. It is
// validated against the embedded #Config schema, layered over defaults and
// finally overridden by MODHOST_* environment variables (MODHOST_LOG_LEVEL,
// MODHOST_DEV_ENABLED, ...).
package config
