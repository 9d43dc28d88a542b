// Package config loads conjunct's configuration.
//
// Sources, lowest precedence first:
//   - built-in defaults
//   - an optional YAML file
//   - CONJUNCT_* environment variables (CONJUNCT_HTTP_ADDR, CONJUNCT_AUTH_TOKEN, ...)
//   - command-line flags registered with RegisterFlags
//
// Load validates the merged result before returning it.
package config
