package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if cfg.Store.Type == "badger" {
		path, _ := cfg.Store.Badger["db_path"].(string)
		if path == "" {
			return fmt.Errorf("store.badger.db_path: required when store.type is badger")
		}
	}

	if cfg.Client.RateLimit.CallsPerSecond == 0 && cfg.Client.RateLimit.Burst > 0 {
		return fmt.Errorf("client.rate_limit: burst is set but calls_per_second is 0 (limiting disabled)")
	}

	if cfg.Client.MaxRecordSize > 0 && cfg.Client.MaxRecordSize < 1024 {
		return fmt.Errorf("client.max_record_size: %d is too small to hold a MOUNT reply (minimum 1024)", cfg.Client.MaxRecordSize)
	}

	if cfg.Client.Auth.Flavor != "unix" && (cfg.Client.Auth.UID != 0 || cfg.Client.Auth.GID != 0 || len(cfg.Client.Auth.GIDs) > 0) {
		return fmt.Errorf("client.auth: uid/gid/gids are only used with flavor unix (got %q)", cfg.Client.Auth.Flavor)
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		// Return the first validation error with context
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
