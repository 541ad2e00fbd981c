package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Load resolves configuration from the environment. Precedence:
//
//  1. $CONFIG_JSON_PATH — JSON file with "auth" and "sites" objects.
//  2. Individual environment variables (TENANT_ID, CLIENT_ID, ...),
//     optionally preloaded from a dotenv file named by $ENV_FILE_PATH.
//
// The result is validated; a missing or incomplete configuration is a
// fatal construction error, never a deferred runtime surprise.
func Load() (*Config, error) {
	if path := os.Getenv(EnvConfigJSONPath); path != "" {
		return LoadFile(path)
	}

	return loadEnv()
}

// LoadFile reads and validates a JSON config file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config file %s: %v", ErrInvalidConfig, path, err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config file %s: %v", ErrInvalidConfig, path, err)
	}

	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	return cfg, nil
}

// loadEnv builds a Config from individual environment variables with a
// single synthetic "default" site. When $ENV_FILE_PATH names a dotenv
// file, it is loaded first; already-set variables win over file values.
func loadEnv() (*Config, error) {
	if envFile := os.Getenv(EnvDotenvPath); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("%w: loading dotenv file %s: %v", ErrInvalidConfig, envFile, err)
		}
	}

	cfg := &Config{
		Auth: Auth{
			TenantID:     os.Getenv(EnvTenantID),
			ClientID:     os.Getenv(EnvClientID),
			ClientSecret: os.Getenv(EnvClientSecret),
			Scope:        os.Getenv(EnvScope),
		},
		Sites: map[string]Site{
			DefaultSiteName: {
				SiteID:  os.Getenv(EnvSiteID),
				DriveID: os.Getenv(EnvDriveID),
			},
		},
	}

	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
