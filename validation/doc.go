// Package validation checks configuration structs against their `validate`
// tags and reports failures by their mapstructure key path, the same path
// used in config files and FETCHKIT_ environment variables.
//
//	type Config struct {
//	    BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
//	}
//	err := validation.Struct(cfg) // "base_url: must be a valid URL"
package validation
