package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JanStreffing/aleph-levante-uftp-transfer-script/internal/config"
)

func TestLoadTransferConfig_AppliesEnvOverrides(t *testing.T) {
	cfgPath := writeTestConfig(t, "/work/in", []string{"fesom/a.nc"})

	t.Setenv("UFTPSYNC_USER", "envuser")
	t.Setenv("UFTPSYNC_IDENTITY", filepath.Join(t.TempDir(), "id_uftp"))

	cfg, err := loadTransferConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "envuser", cfg.UFTP.User)
	assert.Contains(t, cfg.UFTP.Identity, "id_uftp")
	assert.Equal(t, config.DefaultMaxRetries, cfg.MaxRetries)
}

func TestLoadTransferConfig_MissingFile(t *testing.T) {
	_, err := loadTransferConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadTransferConfig_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transfer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("uftp: {user: ''}\ngroups: []\n"), 0o644))

	_, err := loadTransferConfig(path)
	assert.ErrorContains(t, err, "user")
}
