package transfer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/JanStreffing/aleph-levante-uftp-transfer-script/internal/config"
	"github.com/JanStreffing/aleph-levante-uftp-transfer-script/internal/uftp"
	"github.com/JanStreffing/aleph-levante-uftp-transfer-script/internal/utils"
)

// Client is the narrow slice of the uftp wrapper the uploader needs.
// *uftp.Client satisfies it; tests substitute a fake.
type Client interface {
	Mkdir(ctx context.Context, dir string) error
	Ls(ctx context.Context, dir string) (string, error)
	Copy(ctx context.Context, localPath, remotePath string) error
	Checksum(ctx context.Context, remotePath string) (string, error)
}

// Stats aggregates the outcome of one uploader run.
type Stats struct {
	Uploaded   int
	Skipped    int
	Excluded   int
	Failed     int
	Unverified int
	Bytes      int64
}

// HasFailures reports whether the run should exit nonzero.
func (s *Stats) HasFailures() bool {
	return s.Failed > 0
}

// Uploader drives the sequential upload loop: ensure remote directories,
// skip already-completed files, upload with bounded retries, persist state
// after every success.
type Uploader struct {
	client     Client
	store      *Store // nil disables resume (verifying variant)
	maxRetries int
	verify     bool
	hashFile   func(string) (string, error)

	// remote directories confirmed to exist during this run
	dirs mapset.Set[string]

	// most recently completed upload, candidate for the safety eviction
	lastDone string
}

// NewUploader returns the resume-aware uploader of the given store.
func NewUploader(client Client, store *Store, maxRetries int) *Uploader {
	return &Uploader{
		client:     client,
		store:      store,
		maxRetries: maxRetries,
		hashFile:   utils.FileHash,
		dirs:       mapset.NewThreadUnsafeSet[string](),
	}
}

// NewVerifyingUploader returns the checksum-verifying variant. It keeps no
// resume state; every run re-uploads everything.
func NewVerifyingUploader(client Client, maxRetries int) *Uploader {
	u := NewUploader(client, nil, maxRetries)
	u.verify = true
	return u
}

// Run processes all groups in order. Individual file failures never abort
// the run; the returned stats carry the aggregate outcome. A non-nil error
// means the run itself broke (cancellation, unwritable state file).
func (u *Uploader) Run(ctx context.Context, groups []config.TransferGroup) (*Stats, error) {
	stats := &Stats{}

	for i := range groups {
		g := &groups[i]
		if err := u.runGroup(ctx, g, stats); err != nil {
			return stats, err
		}
	}

	// A failing or interrupted uftp process may have left the most recent
	// "completed" file partially written. Force its re-upload next run.
	if stats.Failed > 0 && u.store != nil && u.lastDone != "" {
		slog.Warn("run had failures, invalidating last completed upload", "path", u.lastDone)
		if err := u.store.Evict(u.lastDone); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

func (u *Uploader) runGroup(ctx context.Context, g *config.TransferGroup, stats *Stats) error {
	pending := make([]string, 0, len(g.Files))
	for _, rel := range g.Files {
		if excluded(g.Exclude, rel) {
			slog.Debug("excluded", "group", g.Name, "path", rel)
			stats.Excluded++
			continue
		}
		if u.store != nil && u.store.Has(g.RemotePath(rel)) {
			slog.Info("skip, already uploaded", "group", g.Name, "path", rel)
			stats.Skipped++
			continue
		}
		pending = append(pending, rel)
	}

	if len(pending) == 0 {
		slog.Info("nothing to upload", "group", g.Name)
		return nil
	}

	slog.Info("uploading group", "group", g.Name, "files", len(pending))

	if err := u.ensureGroupDirs(ctx, g, pending); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Error("remote directory creation failed, skipping group", "group", g.Name, "error", err)
		stats.Failed += len(pending)
		return nil
	}

	for _, rel := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := u.uploadFile(ctx, g, rel, stats); err != nil {
			return err
		}
	}

	return nil
}

// ensureGroupDirs creates every remote directory the pending files land
// in, root segment first, and confirms each with a listing. Confirmed
// directories are cached for the rest of the run.
func (u *Uploader) ensureGroupDirs(ctx context.Context, g *config.TransferGroup, pending []string) error {
	targets := mapset.NewThreadUnsafeSet[string]()
	for _, rel := range pending {
		targets.Add(path.Dir(g.RemotePath(rel)))
	}

	for dir := range targets.Iter() {
		if err := u.ensureRemoteDir(ctx, dir); err != nil {
			return err
		}
	}
	return nil
}

func (u *Uploader) ensureRemoteDir(ctx context.Context, dir string) error {
	if u.dirs.Contains(dir) {
		return nil
	}

	prefixes := pathPrefixes(dir)
	for _, p := range prefixes {
		if u.dirs.Contains(p) {
			continue
		}
		// mkdir also fails when the directory already exists, so errors
		// here are tolerated and existence is confirmed by Ls below.
		if err := u.client.Mkdir(ctx, p); err != nil {
			slog.Debug("mkdir", "dir", p, "error", err)
		}
	}

	if _, err := u.client.Ls(ctx, dir); err != nil {
		return err
	}

	for _, p := range prefixes {
		u.dirs.Add(p)
	}
	return nil
}

func (u *Uploader) uploadFile(ctx context.Context, g *config.TransferGroup, rel string, stats *Stats) error {
	localPath := g.LocalPath(rel)
	remotePath := g.RemotePath(rel)

	info, err := os.Stat(localPath)
	if err != nil || info.IsDir() {
		slog.Error("local file missing", "group", g.Name, "path", localPath)
		stats.Failed++
		return nil
	}

	uploadedUnverified := false
	for attempt := 1; attempt <= u.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := u.client.Copy(ctx, localPath, remotePath); err != nil {
			slog.Warn("upload failed", "path", remotePath, "attempt", attempt, "error", err)
			continue
		}

		if u.verify {
			verified, err := u.verifyUpload(ctx, localPath, remotePath)
			if err != nil {
				slog.Warn("checksum mismatch, re-uploading", "path", remotePath, "attempt", attempt, "error", err)
				uploadedUnverified = true
				continue
			}
			if !verified {
				slog.Warn("checksum not reported by server, accepting upload", "path", remotePath)
			}
		}

		stats.Uploaded++
		stats.Bytes += info.Size()
		slog.Info("uploaded", "path", remotePath, "size", info.Size(), "attempt", attempt)

		if u.store != nil {
			if err := u.store.MarkDone(remotePath); err != nil {
				return err
			}
			u.lastDone = remotePath
		}
		return nil
	}

	if uploadedUnverified {
		// the transfer itself succeeded; only verification kept failing
		slog.Error("uploaded but unverified", "path", remotePath, "attempts", u.maxRetries)
		stats.Unverified++
		return nil
	}

	slog.Error("upload failed permanently", "path", remotePath, "attempts", u.maxRetries)
	stats.Failed++
	return nil
}

var errChecksumMismatch = errors.New("checksum mismatch")

// verifyUpload compares the local MD5 digest with the server-reported one.
// It returns (false, nil) when the server cannot report a checksum, which
// counts as an unverifiable but accepted upload.
func (u *Uploader) verifyUpload(ctx context.Context, localPath, remotePath string) (bool, error) {
	remoteDigest, err := u.client.Checksum(ctx, remotePath)
	if errors.Is(err, uftp.ErrChecksumUnavailable) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	localDigest, err := u.hashFile(localPath)
	if err != nil {
		return false, err
	}

	if !strings.EqualFold(localDigest, remoteDigest) {
		return false, errChecksumMismatch
	}
	return true, nil
}

func excluded(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// pathPrefixes returns every path from the root segment down to dir, e.g.
// "/a/b/c" -> ["/a", "/a/b", "/a/b/c"].
func pathPrefixes(dir string) []string {
	clean := path.Clean(dir)
	if clean == "/" || clean == "." {
		return nil
	}

	parts := strings.Split(strings.Trim(clean, "/"), "/")
	prefixes := make([]string, 0, len(parts))
	current := ""
	for _, part := range parts {
		current += "/" + part
		prefixes = append(prefixes, current)
	}
	return prefixes
}
