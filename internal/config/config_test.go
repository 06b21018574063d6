package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFiles(t *testing.T, public, private string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "public.yaml"), []byte(public), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "private.yaml"), []byte(private), 0644))
	return dir
}

func TestMustLoad(t *testing.T) {
	dir := writeConfigFiles(t, `
listen_addr: ":8080"
media_api_base_url: "http://media:8090"
property_api_base_url: "http://crm:8091"
session_ttl: 900000000000 # 15m in nanoseconds
max_file_size_bytes: 5242880
`, `
service_token: "secret-token"
`)

	cfg := MustLoad(dir)

	assert.Equal(t, ":8080", cfg.Public.ListenAddr)
	assert.Equal(t, 15*time.Minute, cfg.Public.SessionTTL)
	assert.Equal(t, int64(5242880), cfg.Public.MaxFileSizeBytes)
	assert.Equal(t, "secret-token", cfg.ServiceToken())
}

func TestMustLoadDefaults(t *testing.T) {
	dir := writeConfigFiles(t, `
listen_addr: ":8080"
media_api_base_url: "http://media:8090"
property_api_base_url: "http://crm:8091"
`, ``)

	cfg := MustLoad(dir)

	assert.Equal(t, int64(10<<20), cfg.Public.MaxFileSizeBytes)
	assert.Equal(t, 200, cfg.Public.ThumbnailMaxDimension)
	assert.Equal(t, 80, cfg.Public.ThumbnailQuality)
	assert.Contains(t, cfg.Public.AllowedImageExtensions, ".jpg")
	assert.Contains(t, cfg.Public.AllowedDocumentExtensions, ".pdf")
	assert.Equal(t, []string{"expose", "floor_plan", "energy_certificate"}, cfg.Public.RequiredDocumentTypes)
	assert.Equal(t, 30*time.Minute, cfg.Public.SessionTTL)
}

func TestMustLoadMissingFile(t *testing.T) {
	assert.Panics(t, func() { MustLoad(t.TempDir()) })
}

func TestMustLoadInvalidConfig(t *testing.T) {
	dir := writeConfigFiles(t, `
listen_addr: ":8080"
media_api_base_url: "not a url"
property_api_base_url: "http://crm:8091"
`, ``)

	assert.Panics(t, func() { MustLoad(dir) })
}
