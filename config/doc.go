// Package config loads fetchkit configuration from a YAML file, a .env file
// and FETCHKIT_ environment variables, in increasing order of precedence.
//
// # Usage
//
//	cfg, err := config.Load(config.WithConfigFile("fetchkit.yml"))
//
// Nested keys map to upper-case underscore-separated variables, so
// client.base_url is set by FETCHKIT_CLIENT_BASE_URL.
package config
