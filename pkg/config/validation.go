package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/asyncload/internal/telemetry"
)

// validate is shared; validator.Validate caches struct metadata and is safe
// for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a configuration after defaults have been applied.
//
// Struct tag rules run first and are reported with the failing tag name
// (e.g. "oneof", "max"). Rules spanning several fields follow.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}

	if err := validateTelemetry(&cfg.Telemetry); err != nil {
		return err
	}
	if err := validateStore(&cfg.Store); err != nil {
		return err
	}
	if cfg.Metrics.Enabled && cfg.API.IsEnabled() && cfg.Metrics.Port == cfg.API.Port {
		return fmt.Errorf("metrics.port and api.port must differ (both %d)", cfg.API.Port)
	}
	return nil
}

func formatValidationErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s=%s' validation (value: %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s' validation", field, fe.Tag()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func validateTelemetry(cfg *TelemetryConfig) error {
	if cfg.Enabled && cfg.Endpoint == "" {
		return errors.New("telemetry.endpoint is required when telemetry is enabled")
	}
	if cfg.Profiling.Enabled && cfg.Profiling.Endpoint == "" {
		return errors.New("telemetry.profiling.endpoint is required when profiling is enabled")
	}
	if err := telemetry.ValidateProfileTypes(cfg.Profiling.ProfileTypes); err != nil {
		return fmt.Errorf("telemetry.profiling.profile_types: %w", err)
	}
	return nil
}

func validateStore(cfg *StoreConfig) error {
	switch cfg.Type {
	case "memory":
		return nil
	case "fs":
		if cfg.FS.BasePath == "" {
			return errors.New("store.fs.base_path is required for the fs store")
		}
	case "s3":
		if cfg.S3.Bucket == "" {
			return errors.New("store.s3.bucket is required for the s3 store")
		}
		if (cfg.S3.AccessKeyID == "") != (cfg.S3.SecretAccessKey == "") {
			return errors.New("store.s3.access_key_id and store.s3.secret_access_key must be set together")
		}
	case "badger":
		if cfg.Badger.Path == "" && !cfg.Badger.InMemory {
			return errors.New("store.badger.path is required unless store.badger.in_memory is set")
		}
	case "sql":
		if err := cfg.SQL.Validate(); err != nil {
			return fmt.Errorf("store.sql: %w", err)
		}
	default:
		return fmt.Errorf("unknown store type: %q", cfg.Type)
	}
	return nil
}
