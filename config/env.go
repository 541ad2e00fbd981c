package config

// Environment variable names recognized by Load.
const (
	// EnvConfigJSONPath points at a JSON config file with auth + sites.
	EnvConfigJSONPath = "CONFIG_JSON_PATH"

	// EnvDotenvPath points at a dotenv file to preload before reading
	// the individual variables below.
	EnvDotenvPath = "ENV_FILE_PATH"

	EnvTenantID     = "TENANT_ID"
	EnvClientID     = "CLIENT_ID"
	EnvClientSecret = "CLIENT_SECRET"
	EnvScope        = "SCOPE"
	EnvSiteID       = "SITE_ID"
	EnvDriveID      = "DRIVE_ID"
)

// DefaultSiteName is the synthetic site name used when configuration
// comes from individual environment variables instead of a config file.
const DefaultSiteName = "default"
