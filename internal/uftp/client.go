package uftp

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/JanStreffing/aleph-levante-uftp-transfer-script/internal/config"
)

var (
	ErrCommandFailed       = errors.New("uftp command failed")
	ErrChecksumUnavailable = errors.New("no checksum in uftp output")
)

// md5Pattern matches the 32-character hex digest the uftp checksum
// subcommand prints alongside the file name.
var md5Pattern = regexp.MustCompile(`\b[0-9a-f]{32}\b`)

// Client issues uftp subcommands (mkdir, ls, cp, checksum) against one
// authentication endpoint.
type Client struct {
	settings config.UFTPSettings
	runner   Runner
}

func NewClient(settings config.UFTPSettings) *Client {
	return NewClientWithRunner(settings, NewExecRunner())
}

func NewClientWithRunner(settings config.UFTPSettings, runner Runner) *Client {
	return &Client{settings: settings, runner: runner}
}

// RemoteRef renders a remote path as the auth-url-qualified reference the
// uftp binary expects, e.g. `https://host:9000/rest/auth/SITE:/work/file`.
func (c *Client) RemoteRef(path string) string {
	return c.settings.AuthURL + ":" + path
}

func (c *Client) baseArgs(sub string) []string {
	args := []string{sub, "-u", c.settings.User}
	if c.settings.Identity != "" {
		args = append(args, "-i", c.settings.Identity)
	}
	if c.settings.Verbose {
		args = append(args, "-v")
	}
	return args
}

func (c *Client) run(ctx context.Context, args ...string) (*Result, error) {
	return c.runner.Run(ctx, c.settings.Binary, args...)
}

// Mkdir creates a single remote directory. An "already exists" failure is
// indistinguishable from any other nonzero exit, so callers treat mkdir
// errors as tolerable and confirm with Ls afterwards.
func (c *Client) Mkdir(ctx context.Context, dir string) error {
	args := append(c.baseArgs("mkdir"), c.RemoteRef(dir))
	res, err := c.run(ctx, args...)
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("%w: mkdir %s: exit %d: %s", ErrCommandFailed, dir, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// Ls lists a remote directory and returns the raw listing.
func (c *Client) Ls(ctx context.Context, dir string) (string, error) {
	args := append(c.baseArgs("ls"), c.RemoteRef(dir))
	res, err := c.run(ctx, args...)
	if err != nil {
		return "", err
	}
	if !res.OK() {
		return "", fmt.Errorf("%w: ls %s: exit %d: %s", ErrCommandFailed, dir, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return res.Stdout, nil
}

// Copy uploads one local file to a remote path.
func (c *Client) Copy(ctx context.Context, localPath, remotePath string) error {
	args := append(c.baseArgs("cp"),
		"-n", strconv.Itoa(c.settings.Streams),
		"-t", strconv.Itoa(c.settings.Threads),
		localPath,
		c.RemoteRef(remotePath),
	)
	res, err := c.run(ctx, args...)
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("%w: cp %s: exit %d: %s", ErrCommandFailed, remotePath, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// Checksum fetches the server-side MD5 digest of a remote file. It returns
// ErrChecksumUnavailable when the command succeeds but no digest can be
// found in the output.
func (c *Client) Checksum(ctx context.Context, remotePath string) (string, error) {
	args := append(c.baseArgs("checksum"), c.RemoteRef(remotePath))
	res, err := c.run(ctx, args...)
	if err != nil {
		return "", err
	}
	if !res.OK() {
		return "", fmt.Errorf("%w: checksum %s: exit %d: %s", ErrCommandFailed, remotePath, res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	digest := md5Pattern.FindString(strings.ToLower(res.Stdout))
	if digest == "" {
		return "", ErrChecksumUnavailable
	}
	return digest, nil
}
