package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(5<<30), cfg.Drive.StorageLimit)
	assert.Equal(t, 24*time.Hour, cfg.Drive.BandwidthWindow)
	assert.Equal(t, []int{80, 90}, cfg.Drive.WarnThresholds)
	assert.Equal(t, "REQUEST", cfg.Drive.CopyPolicy)
	assert.Contains(t, cfg.Drive.BlockedExtensions, ".exe")
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DRIVE_STORAGE_LIMIT", "1000")
	t.Setenv("DRIVE_BANDWIDTH_WINDOW", "1h")
	t.Setenv("DRIVE_WARN_THRESHOLDS", "75, 95")
	t.Setenv("DRIVE_BLOCKED_EXTENSIONS", ".SH, .ps1,")
	t.Setenv("DRIVE_COPY_POLICY", "allow")
	t.Setenv("BLOB_BACKEND", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(1000), cfg.Drive.StorageLimit)
	assert.Equal(t, time.Hour, cfg.Drive.BandwidthWindow)
	assert.Equal(t, []int{75, 95}, cfg.Drive.WarnThresholds)
	assert.Equal(t, []string{".sh", ".ps1"}, cfg.Drive.BlockedExtensions)
	assert.Equal(t, "ALLOW", cfg.Drive.CopyPolicy)
	assert.Equal(t, "memory", cfg.BlobBackend)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("DRIVE_MAX_FILE_SIZE", "lots")
	t.Setenv("DRIVE_PRESIGN_TTL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(500<<20), cfg.Drive.MaxFileSize)
	assert.Equal(t, 15*time.Minute, cfg.Drive.PresignTTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "zero storage limit", env: map[string]string{"DRIVE_STORAGE_LIMIT": "0"}},
		{name: "unknown copy policy", env: map[string]string{"DRIVE_COPY_POLICY": "MAYBE"}},
		{name: "threshold above 100", env: map[string]string{"DRIVE_WARN_THRESHOLDS": "80,120"}},
		{name: "unknown blob backend", env: map[string]string{"BLOB_BACKEND": "floppy"}},
		{name: "unknown environment", env: map[string]string{"ENV": "staging"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
