// Package file provides a TOML file-based implementation of the config
// store.
//
// Configuration lives in a single TOML file, by default
// ~/.north/config.toml. Nested tables are flattened into dot-notation
// keys, so [dropbox] token = "..." is read as "dropbox.token".
package file
