// Package config reads the settings record and the peak table.
//
// Both are small TOML files. The settings record supplies file paths and
// bin counts; a key the caller requires but the file lacks is reported as
// a not-found error rather than defaulted. The peak table is keyed by peak
// number and is always rewritten as a whole.
package config
