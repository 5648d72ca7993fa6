package config

import (
	"fmt"
	"strings"
)

// ValidateConfig checks the configuration for the current environment.
// Development and test run fine on defaults; production refuses placeholder
// credentials.
func ValidateConfig(cfg *Config) error {
	var errs []string

	required := map[string]string{
		"server port": cfg.ServerPort,
		"db host":     cfg.DBHost,
		"db port":     cfg.DBPort,
		"db user":     cfg.DBUser,
		"db name":     cfg.DBName,
		"jwt secret":  cfg.JWTSecret,
	}
	for name, value := range required {
		if value == "" {
			errs = append(errs, fmt.Sprintf("%s is not set", name))
		}
	}

	if IsProduction() {
		if cfg.JWTSecret == "dev-secret-change-me" {
			errs = append(errs, "jwt_secret must be set explicitly in production")
		}
		if cfg.DBPassword == "" || cfg.DBPassword == "postgres" {
			errs = append(errs, "db_password must be set explicitly in production")
		}
		if cfg.DBSSLMode == "disable" {
			errs = append(errs, "db_ssl_mode must not be disable in production")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	return nil
}
