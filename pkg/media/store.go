package media

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"citysafe/pkg/logger"
	"citysafe/pkg/utils"
)

// DefaultMaxUpload caps a single attachment when no limit is configured.
const DefaultMaxUpload = 25 << 20 // 25 MiB

// ErrTooLarge is returned by Save when an upload exceeds the cap.
var ErrTooLarge = errors.New("upload exceeds size limit")

// Blob describes a stored attachment.
type Blob struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Mime      string `json:"mime,omitempty"`
	Size      int64  `json:"size"`
	Owner     string `json:"owner,omitempty"`
	CreatedTS int64  `json:"created_ts"`
}

// Store keeps attachment blobs on disk: <dir>/<id> for the bytes and
// <dir>/<id>.json for the metadata sidecar.
type Store struct {
	dir string
	max int64
}

// NewStore opens (creating if needed) a disk-backed blob store.
func NewStore(dir string, maxBytes int64) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("media dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUpload
	}
	return &Store{dir: dir, max: maxBytes}, nil
}

// MaxBytes returns the configured per-upload cap.
func (s *Store) MaxBytes() int64 { return s.max }

// Save streams r to disk under a fresh id. Uploads exceeding the cap are
// rejected and the partial file removed.
func (s *Store) Save(name, mime, owner string, r io.Reader) (Blob, error) {
	b := Blob{
		ID:        utils.GenID(),
		Name:      filepath.Base(strings.TrimSpace(name)),
		Mime:      mime,
		Owner:     owner,
		CreatedTS: time.Now().UTC().UnixNano(),
	}
	path := filepath.Join(s.dir, b.ID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return Blob{}, fmt.Errorf("failed to create blob: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(r, s.max+1))
	cerr := f.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return Blob{}, fmt.Errorf("failed to write blob: %w", err)
	}
	if n > s.max {
		_ = os.Remove(path)
		return Blob{}, ErrTooLarge
	}
	b.Size = n

	meta, err := json.Marshal(b)
	if err != nil {
		_ = os.Remove(path)
		return Blob{}, err
	}
	if err := os.WriteFile(path+".json", meta, 0o640); err != nil {
		_ = os.Remove(path)
		return Blob{}, fmt.Errorf("failed to write blob metadata: %w", err)
	}
	logger.Info("media_saved", "id", b.ID, "size", n, "mime", mime)
	return b, nil
}

// Get returns the metadata and an open reader for a blob. The caller
// closes the reader.
func (s *Store) Get(id string) (Blob, io.ReadCloser, error) {
	b, err := s.Stat(id)
	if err != nil {
		return Blob{}, nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, b.ID))
	if err != nil {
		return Blob{}, nil, fmt.Errorf("blob missing: %s", id)
	}
	return b, f, nil
}

// Stat returns metadata for a blob without opening the bytes.
func (s *Store) Stat(id string) (Blob, error) {
	if !validID(id) {
		return Blob{}, fmt.Errorf("invalid blob id")
	}
	raw, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		return Blob{}, fmt.Errorf("blob not found: %s", id)
	}
	var b Blob
	if err := json.Unmarshal(raw, &b); err != nil {
		return Blob{}, fmt.Errorf("invalid blob metadata: %w", err)
	}
	return b, nil
}

// Delete removes a blob and its metadata.
func (s *Store) Delete(id string) error {
	if !validID(id) {
		return fmt.Errorf("invalid blob id")
	}
	if err := os.Remove(filepath.Join(s.dir, id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, id+".json")); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ListIDs returns the ids of all stored blobs. Used by the retention
// sweeper to find orphans.
func (s *Store) ListIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}

// validID rejects ids that could escape the store directory. Generated
// ids are UUIDs, so anything with a path separator or dot is hostile.
func validID(id string) bool {
	if id == "" {
		return false
	}
	return !strings.ContainsAny(id, "/\\.")
}
