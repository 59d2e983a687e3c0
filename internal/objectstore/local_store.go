package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dlops-io/mega-pipeline-aws/internal/core"
)

const (
	dirPermissions = 0o750
	tempSuffix     = ".partial"
)

// Static errors.
var (
	ErrRootEmpty  = errors.New("local store root cannot be empty")
	ErrInvalidID  = errors.New("invalid artifact id")
	ErrBucketName = errors.New("bucket name cannot be empty")
)

// LocalStore keeps artifacts as files under root/<kind dir>/<id><ext>.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at root, creating the directory.
func NewLocalStore(root string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, ErrRootEmpty
	}

	err := os.MkdirAll(root, dirPermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to create local store root '%s': %w", root, err)
	}

	return &LocalStore{root: root}, nil
}

// Root returns the store's root directory.
func (s *LocalStore) Root() string {
	return s.root
}

// Path returns the file path of an artifact.
func (s *LocalStore) Path(kind core.Kind, id string) string {
	return filepath.Join(s.root, kind.Dir(), kind.Filename(id))
}

// List returns the ids of all complete artifacts of kind. A missing kind
// directory is an empty listing.
func (s *LocalStore) List(_ context.Context, kind core.Kind) ([]string, error) {
	dir := filepath.Join(s.root, kind.Dir())

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list '%s': %w", dir, err)
	}

	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		id, ok := idFromName(entry.Name(), kind.Ext)
		if !ok || !entry.Type().IsRegular() {
			continue
		}

		ids = append(ids, id)
	}

	return ids, nil
}

// Exists reports whether a complete artifact is present.
func (s *LocalStore) Exists(_ context.Context, kind core.Kind, id string) (bool, error) {
	err := validateID(id)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(s.Path(kind, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("failed to stat '%s': %w", s.Path(kind, id), err)
	}

	return info.Mode().IsRegular(), nil
}

// Read returns the artifact bytes.
func (s *LocalStore) Read(_ context.Context, kind core.Kind, id string) ([]byte, error) {
	err := validateID(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(kind, id))
	if err != nil {
		return nil, fmt.Errorf("failed to read '%s': %w", s.Path(kind, id), err)
	}

	return data, nil
}

// Write stores data atomically: it is written to a hidden temp file in the
// kind directory and renamed into place, so a failed write never leaves a
// partial artifact behind.
func (s *LocalStore) Write(_ context.Context, kind core.Kind, id string, data []byte) error {
	err := validateID(id)
	if err != nil {
		return err
	}

	dir := filepath.Join(s.root, kind.Dir())

	err = os.MkdirAll(dir, dirPermissions)
	if err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, "."+id+"-*"+tempSuffix)
	if err != nil {
		return fmt.Errorf("failed to create temp file in '%s': %w", dir, err)
	}

	tempName := tempFile.Name()

	writeErr := writeAndClose(tempFile, data)
	if writeErr != nil {
		_ = os.Remove(tempName)

		return fmt.Errorf("failed to write '%s': %w", tempName, writeErr)
	}

	renameErr := os.Rename(tempName, s.Path(kind, id))
	if renameErr != nil {
		_ = os.Remove(tempName)

		return fmt.Errorf("failed to move artifact into '%s': %w", s.Path(kind, id), renameErr)
	}

	return nil
}

// Clear removes every artifact of kind and recreates the empty directory.
func (s *LocalStore) Clear(_ context.Context, kind core.Kind) error {
	dir := filepath.Join(s.root, kind.Dir())

	err := os.RemoveAll(dir)
	if err != nil {
		return fmt.Errorf("failed to remove '%s': %w", dir, err)
	}

	err = os.MkdirAll(dir, dirPermissions)
	if err != nil {
		return fmt.Errorf("failed to recreate '%s': %w", dir, err)
	}

	return nil
}

func writeAndClose(file *os.File, data []byte) error {
	_, err := file.Write(data)
	if err != nil {
		_ = file.Close()

		return err
	}

	err = file.Sync()
	if err != nil {
		_ = file.Close()

		return err
	}

	return file.Close()
}

// idFromName maps a file or object name to an id when it carries ext and is
// not hidden.
func idFromName(name, ext string) (string, bool) {
	if name == "" || strings.HasPrefix(name, ".") || strings.Contains(name, "/") {
		return "", false
	}

	if !strings.HasSuffix(name, ext) {
		return "", false
	}

	id := strings.TrimSuffix(name, ext)
	if id == "" {
		return "", false
	}

	return id, true
}

func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	return nil
}
