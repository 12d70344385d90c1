package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		UFTP: UFTPSettings{
			User:    "jstreffi",
			AuthURL: "https://uftp.example.org:9000/rest/auth/LEVANTE",
		},
		Groups: []TransferGroup{
			{
				Name:       "fesom_monthly",
				LocalBase:  t.TempDir(),
				RemoteBase: "/work/ab0246/incoming",
				Files:      []string{"fesom/temp_fesom_20000101.nc"},
			},
		},
	}
}

func TestConfig_Validate_AppliesDefaults(t *testing.T) {
	cfg := validConfig(t)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "uftp", cfg.UFTP.Binary)
	assert.Equal(t, DefaultStreams, cfg.UFTP.Streams)
	assert.Equal(t, DefaultThreads, cfg.UFTP.Threads)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.True(t, filepath.IsAbs(cfg.Groups[0].LocalBase))
}

func TestConfig_Validate_ErrorsOnInvalidInputs(t *testing.T) {
	t.Run("missing user", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.UFTP.User = ""
		assert.ErrorContains(t, cfg.Validate(), "user")
	})

	t.Run("missing auth url", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.UFTP.AuthURL = ""
		assert.ErrorContains(t, cfg.Validate(), "auth_url")
	})

	t.Run("absolute file path", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Groups[0].Files = []string{"/etc/passwd"}
		assert.ErrorContains(t, cfg.Validate(), "relative")
	})

	t.Run("escaping file path", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Groups[0].Files = []string{"../outside.nc"}
		assert.ErrorContains(t, cfg.Validate(), "escapes")
	})

	t.Run("duplicate group name", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Groups = append(cfg.Groups, cfg.Groups[0])
		assert.ErrorContains(t, cfg.Validate(), "duplicate")
	})
}

func TestConfig_SaveAndLoad_Roundtrip(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "transfer.yaml")

	cfg := validConfig(t)
	cfg.Groups[0].Exclude = []string{"*.swp"}
	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.UFTP, loaded.UFTP)
	assert.Equal(t, cfg.Groups, loaded.Groups)
	assert.Equal(t, path, loaded.Path)
}

func TestLoadFromReader_RejectsBadYAML(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("groups: [what"))
	assert.Error(t, err)
}

func TestTransferGroup_Paths(t *testing.T) {
	g := &TransferGroup{
		LocalBase:  "/proj/out",
		RemoteBase: "/work/in/",
	}

	assert.Equal(t, filepath.Join("/proj/out", "fesom/temp.nc"), g.LocalPath("fesom/temp.nc"))
	assert.Equal(t, "/work/in/fesom/temp.nc", g.RemotePath("fesom/temp.nc"))
}
