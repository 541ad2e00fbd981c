package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTempConfig writes the given JSON to a temp file and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

const validConfigJSON = `{
  "auth": {
    "TENANT_ID": "tenant-1",
    "CLIENT_ID": "client-1",
    "CLIENT_SECRET": "secret-1",
    "SCOPE": "https://graph.microsoft.com/.default",
    "GRAPH_API_BASE_URL": "https://graph.microsoft.com/v1.0",
    "TOP": 50
  },
  "sites": {
    "HORTA": {
      "SITE_ID": "site-1",
      "DRIVE_ID": "drive-1",
      "SITE_URL": "https://example.sharepoint.com/sites/horta"
    }
  }
}`

func TestLoadFile_Valid(t *testing.T) {
	path := writeTempConfig(t, validConfigJSON)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "tenant-1", cfg.Auth.TenantID)
	assert.Equal(t, 50, cfg.Auth.Top)

	site, err := cfg.Site("HORTA")
	require.NoError(t, err)
	assert.Equal(t, "site-1", site.SiteID)
	assert.Equal(t, "drive-1", site.DriveID)
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadFile_MalformedJSON(t *testing.T) {
	path := writeTempConfig(t, `{"auth": nope}`)

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadFile_MissingKeysEnumerated(t *testing.T) {
	path := writeTempConfig(t, `{
  "auth": {"TENANT_ID": "tenant-1"},
  "sites": {"HORTA": {"SITE_URL": "https://example.sharepoint.com"}}
}`)

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	// All missing keys reported at once, not one per run.
	assert.Contains(t, err.Error(), "auth.CLIENT_ID")
	assert.Contains(t, err.Error(), "auth.CLIENT_SECRET")
	assert.Contains(t, err.Error(), "auth.SCOPE")
	assert.Contains(t, err.Error(), "sites.HORTA.SITE_ID")
	assert.Contains(t, err.Error(), "sites.HORTA.DRIVE_ID")
}

func TestLoadFile_Defaults(t *testing.T) {
	path := writeTempConfig(t, `{
  "auth": {
    "TENANT_ID": "t", "CLIENT_ID": "c", "CLIENT_SECRET": "s",
    "SCOPE": "https://graph.microsoft.com/.default"
  },
  "sites": {"HORTA": {"SITE_ID": "site-1", "DRIVE_ID": "drive-1"}}
}`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, defaultGraphBaseURL, cfg.Auth.GraphBaseURL)
	assert.Equal(t, defaultTop, cfg.Auth.Top)
}

func TestSite_Unknown(t *testing.T) {
	cfg := &Config{Sites: map[string]Site{
		"HORTA": {SiteID: "s", DriveID: "d"},
		"MICrONS": {SiteID: "s2", DriveID: "d2"},
	}}

	_, err := cfg.Site("TYPO")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	// Known site names are listed for diagnosis.
	assert.Contains(t, err.Error(), "HORTA")
	assert.Contains(t, err.Error(), "MICrONS")
}

func TestLoad_EnvVariables(t *testing.T) {
	t.Setenv(EnvConfigJSONPath, "")
	t.Setenv(EnvDotenvPath, "")
	t.Setenv(EnvTenantID, "env-tenant")
	t.Setenv(EnvClientID, "env-client")
	t.Setenv(EnvClientSecret, "env-secret")
	t.Setenv(EnvScope, "https://graph.microsoft.com/.default")
	t.Setenv(EnvSiteID, "env-site")
	t.Setenv(EnvDriveID, "env-drive")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env-tenant", cfg.Auth.TenantID)

	site, err := cfg.Site(DefaultSiteName)
	require.NoError(t, err)
	assert.Equal(t, "env-site", site.SiteID)
	assert.Equal(t, "env-drive", site.DriveID)
}

func TestLoad_Dotenv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"TENANT_ID=dotenv-tenant\n"+
			"CLIENT_ID=dotenv-client\n"+
			"CLIENT_SECRET=dotenv-secret\n"+
			"SCOPE=https://graph.microsoft.com/.default\n"+
			"SITE_ID=dotenv-site\n"+
			"DRIVE_ID=dotenv-drive\n"), 0o600))

	// t.Setenv registers the restore; Unsetenv makes the key truly absent
	// (godotenv skips keys that are present, even when empty).
	for _, key := range []string{EnvTenantID, EnvClientID, EnvClientSecret, EnvScope, EnvSiteID, EnvDriveID} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	t.Setenv(EnvConfigJSONPath, "")
	t.Setenv(EnvDotenvPath, envFile)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dotenv-tenant", cfg.Auth.TenantID)

	site, err := cfg.Site(DefaultSiteName)
	require.NoError(t, err)
	assert.Equal(t, "dotenv-drive", site.DriveID)
}

func TestLoad_ConfigFileWins(t *testing.T) {
	path := writeTempConfig(t, validConfigJSON)
	t.Setenv(EnvConfigJSONPath, path)
	t.Setenv(EnvTenantID, "ignored")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", cfg.Auth.TenantID)
}

func TestLoad_MissingEverything(t *testing.T) {
	t.Setenv(EnvConfigJSONPath, "")
	t.Setenv(EnvDotenvPath, "")

	// t.Setenv registers the restore; Unsetenv makes the key truly absent
	// (godotenv skips keys that are present, even when empty).
	for _, key := range []string{EnvTenantID, EnvClientID, EnvClientSecret, EnvScope, EnvSiteID, EnvDriveID} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
