package transfer

import (
	"errors"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofrs/flock"

	"github.com/JanStreffing/aleph-levante-uftp-transfer-script/internal/utils"
)

var ErrStateLocked = errors.New("state file locked by another run")

// Store is the resume state: a mapping from fully-qualified remote path to
// the completion timestamp of a previous successful upload. Presence of a
// key means "skip this file". The store is rewritten to disk after every
// mutation so an interrupted run loses at most the file in flight.
type Store struct {
	path    string
	entries map[string]time.Time
	flock   *flock.Flock
}

// LoadStore reads the state file at path, returning an empty store when
// the file does not exist yet.
func LoadStore(path string) (*Store, error) {
	s := &Store{
		path:    path,
		entries: make(map[string]time.Time),
		flock:   flock.New(path + ".lock"),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.entries); err != nil {
			return nil, fmt.Errorf("state '%s': %w", path, err)
		}
	}
	return s, nil
}

// Lock takes the companion lock file so that two uploader runs cannot
// share one state file. Returns ErrStateLocked when another run holds it.
func (s *Store) Lock() error {
	if err := utils.EnsureParent(s.path); err != nil {
		return err
	}
	locked, err := s.flock.TryLock()
	if err != nil {
		return err
	}
	if !locked {
		return ErrStateLocked
	}
	return nil
}

func (s *Store) Unlock() error {
	return s.flock.Unlock()
}

// Has reports whether the remote path completed in a prior run.
func (s *Store) Has(remotePath string) bool {
	_, ok := s.entries[remotePath]
	return ok
}

// MarkDone records a completed upload and persists the store immediately.
func (s *Store) MarkDone(remotePath string) error {
	s.entries[remotePath] = time.Now().UTC()
	return s.save()
}

// Evict removes an entry and persists the removal, forcing a re-upload of
// that file on the next run.
func (s *Store) Evict(remotePath string) error {
	delete(s.entries, remotePath)
	return s.save()
}

func (s *Store) Len() int {
	return len(s.entries)
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) save() error {
	if err := utils.EnsureParent(s.path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o644)
}
