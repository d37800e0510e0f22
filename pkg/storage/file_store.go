package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"smartaset/pkg/domain"
)

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = errors.New("upload exceeds size limit")

const stagingDir = ".staging"

// FileStore keeps uploaded sources on disk, one folder per workspace and slot.
type FileStore struct {
	basePath string
	maxBytes int64
}

// NewFileStore creates the base directory if missing. maxBytes <= 0 disables the limit.
func NewFileStore(basePath string, maxBytes int64) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{basePath: basePath, maxBytes: maxBytes}, nil
}

// Staged is an upload written to disk but not yet placed in a slot.
type Staged struct {
	dir  string
	name string
	size int64
}

// Save stages r and commits it to <workspace>/<slot>/<name>, replacing
// whatever the slot held before.
func (f *FileStore) Save(workspaceID, slot, filename string, r io.Reader) (domain.UploadedFile, error) {
	staged, err := f.Stage(workspaceID, filename, r)
	if err != nil {
		return domain.UploadedFile{}, err
	}
	file, err := f.Commit(workspaceID, slot, staged)
	if err != nil {
		_ = f.Discard(staged)
		return domain.UploadedFile{}, err
	}
	return file, nil
}

// Stage writes r to a private directory of the workspace. Slots are left
// untouched until Commit.
func (f *FileStore) Stage(workspaceID, filename string, r io.Reader) (Staged, error) {
	stagingRoot := filepath.Join(f.basePath, safeSegment(workspaceID, "workspace"), stagingDir)
	if err := os.MkdirAll(stagingRoot, 0o755); err != nil {
		return Staged{}, fmt.Errorf("create staging dir: %w", err)
	}
	dir, err := os.MkdirTemp(stagingRoot, "upload-")
	if err != nil {
		return Staged{}, fmt.Errorf("create staging dir: %w", err)
	}
	name := safeSegment(filename, "upload")
	out, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		_ = os.RemoveAll(dir)
		return Staged{}, fmt.Errorf("create file: %w", err)
	}
	src := r
	if f.maxBytes > 0 {
		src = io.LimitReader(r, f.maxBytes+1)
	}
	n, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.RemoveAll(dir)
		return Staged{}, fmt.Errorf("write file: %w", err)
	}
	if f.maxBytes > 0 && n > f.maxBytes {
		_ = os.RemoveAll(dir)
		return Staged{}, ErrTooLarge
	}
	return Staged{dir: dir, name: name, size: n}, nil
}

// Commit moves a staged upload into slot, replacing the previous contents.
func (f *FileStore) Commit(workspaceID, slot string, s Staged) (domain.UploadedFile, error) {
	targetDir := f.slotDir(workspaceID, slot)
	if err := os.RemoveAll(targetDir); err != nil {
		return domain.UploadedFile{}, fmt.Errorf("clear slot dir: %w", err)
	}
	if err := os.Rename(s.dir, targetDir); err != nil {
		return domain.UploadedFile{}, fmt.Errorf("commit upload: %w", err)
	}
	return domain.UploadedFile{
		Name:       s.name,
		Path:       filepath.Join(targetDir, s.name),
		SizeBytes:  s.size,
		UploadedAt: time.Now(),
	}, nil
}

// Discard drops a staged upload that was never committed.
func (f *FileStore) Discard(s Staged) error {
	if s.dir == "" {
		return nil
	}
	return os.RemoveAll(s.dir)
}

func (f *FileStore) slotDir(workspaceID, slot string) string {
	slot = safeSegment(slot, "file")
	if slot == stagingDir {
		slot = "file"
	}
	return filepath.Join(f.basePath, safeSegment(workspaceID, "workspace"), slot)
}

// Remove deletes one slot of a workspace.
func (f *FileStore) Remove(workspaceID, slot string) error {
	return os.RemoveAll(f.slotDir(workspaceID, slot))
}

// Delete removes all files for a workspace.
func (f *FileStore) Delete(workspaceID string) error {
	return os.RemoveAll(filepath.Join(f.basePath, safeSegment(workspaceID, "workspace")))
}

func safeSegment(name, fallback string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || name == "/" {
		return fallback
	}
	return name
}
