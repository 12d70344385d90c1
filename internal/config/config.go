package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JanStreffing/aleph-levante-uftp-transfer-script/internal/utils"
)

const (
	DefaultConfigName = "transfer.yaml"
	DefaultMaxRetries = 3
	DefaultStreams    = 2
	DefaultThreads    = 4
)

// UFTPSettings describe how the external uftp client is invoked.
type UFTPSettings struct {
	Binary   string `yaml:"binary,omitempty"`
	User     string `yaml:"user"`
	Identity string `yaml:"identity"`
	AuthURL  string `yaml:"auth_url"`
	Streams  int    `yaml:"streams,omitempty"`
	Threads  int    `yaml:"threads,omitempty"`
	Verbose  bool   `yaml:"verbose,omitempty"`
}

// TransferGroup is a named batch of files sharing one local/remote base
// directory pair. File paths are relative; joining them with the bases
// yields the full source and destination paths.
type TransferGroup struct {
	Name       string   `yaml:"name"`
	LocalBase  string   `yaml:"local_base"`
	RemoteBase string   `yaml:"remote_base"`
	Exclude    []string `yaml:"exclude,omitempty"`
	Files      []string `yaml:"files"`
}

// Config is the transfer configuration: uftp client settings plus an
// ordered list of transfer groups.
type Config struct {
	UFTP       UFTPSettings    `yaml:"uftp"`
	MaxRetries int             `yaml:"max_retries,omitempty"`
	Groups     []TransferGroup `yaml:"groups"`

	Path string `yaml:"-"`
}

// LocalPath returns the absolute source path for a relative file path.
func (g *TransferGroup) LocalPath(rel string) string {
	return filepath.Join(g.LocalBase, rel)
}

// RemotePath returns the destination path for a relative file path.
// Remote paths always use forward slashes.
func (g *TransferGroup) RemotePath(rel string) string {
	return strings.TrimRight(g.RemoteBase, "/") + "/" + filepath.ToSlash(rel)
}

// LoadFromFile loads and validates a transfer config from the given path.
func LoadFromFile(path string) (*Config, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	cfg, err := LoadFromReader(fd)
	if err != nil {
		return nil, fmt.Errorf("config '%s': %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config '%s': %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// LoadFromReader parses a transfer config from YAML content without
// validating it, so callers can apply flag/env overrides first.
func LoadFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config as YAML to the given path.
func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	return encoder.Close()
}

// Validate normalizes defaults and rejects configs the uploader cannot
// act on safely.
func (c *Config) Validate() error {
	if c.UFTP.Binary == "" {
		c.UFTP.Binary = "uftp"
	}
	if c.UFTP.Streams <= 0 {
		c.UFTP.Streams = DefaultStreams
	}
	if c.UFTP.Threads <= 0 {
		c.UFTP.Threads = DefaultThreads
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}

	if c.UFTP.User == "" {
		return fmt.Errorf("uftp user cannot be empty")
	}
	if c.UFTP.AuthURL == "" {
		return fmt.Errorf("uftp auth_url cannot be empty")
	}
	if c.UFTP.Identity != "" {
		identity, err := utils.ResolvePath(c.UFTP.Identity)
		if err != nil {
			return fmt.Errorf("uftp identity: %w", err)
		}
		c.UFTP.Identity = identity
	}

	seen := make(map[string]bool, len(c.Groups))
	for i := range c.Groups {
		g := &c.Groups[i]
		if err := g.validate(); err != nil {
			return err
		}
		if seen[g.Name] {
			return fmt.Errorf("duplicate group name %q", g.Name)
		}
		seen[g.Name] = true
	}

	return nil
}

func (g *TransferGroup) validate() error {
	if g.Name == "" {
		return fmt.Errorf("group name cannot be empty")
	}
	if g.LocalBase == "" {
		return fmt.Errorf("group %q: local_base cannot be empty", g.Name)
	}
	if g.RemoteBase == "" {
		return fmt.Errorf("group %q: remote_base cannot be empty", g.Name)
	}

	localBase, err := utils.ResolvePath(g.LocalBase)
	if err != nil {
		return fmt.Errorf("group %q: local_base: %w", g.Name, err)
	}
	g.LocalBase = localBase

	for _, rel := range g.Files {
		if rel == "" {
			return fmt.Errorf("group %q: file path cannot be empty", g.Name)
		}
		if filepath.IsAbs(rel) {
			return fmt.Errorf("group %q: file path %q must be relative", g.Name, rel)
		}
		clean := filepath.ToSlash(filepath.Clean(rel))
		if clean == ".." || strings.HasPrefix(clean, "../") {
			return fmt.Errorf("group %q: file path %q escapes the base directory", g.Name, rel)
		}
	}

	return nil
}
