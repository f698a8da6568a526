package datastore

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/webcapsule/webcapsule/internal/common"
)

// FileStore persists capture artifacts under a root directory. It implements
// models.BlobStore with one file per artifact, relative paths only.
type FileStore struct {
	rootDir  string
	fileMode os.FileMode
	mutexes  *PathMutexManager
	logger   zerolog.Logger
}

// NewFileStore creates a file store rooted at rootDir
func NewFileStore(rootDir string, fileMode os.FileMode, logger zerolog.Logger) *FileStore {
	if rootDir == "" {
		rootDir = "."
	}
	if fileMode == 0 {
		fileMode = 0644
	}
	return &FileStore{
		rootDir:  rootDir,
		fileMode: fileMode,
		mutexes:  NewPathMutexManager(logger),
		logger:   logger.With().Str("component", "FileStore").Logger(),
	}
}

// Write stores the payload at the given relative path, creating parent
// directories as needed. Writes to the same path are serialized.
func (fs *FileStore) Write(ctx context.Context, relPath string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath, err := fs.resolve(relPath)
	if err != nil {
		return err
	}

	mutex := fs.mutexes.GetMutex(fullPath)
	mutex.Lock()
	defer mutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return common.WrapError(err, "failed to create directory for "+relPath)
	}

	// Write through a temp file so readers never observe a partial artifact.
	tmpPath := fullPath + ".tmp"
	if err := os.WriteFile(tmpPath, payload, fs.fileMode); err != nil {
		return common.WrapError(err, "failed to write "+relPath)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		_ = os.Remove(tmpPath)
		return common.WrapError(err, "failed to finalize "+relPath)
	}

	fs.logger.Debug().
		Str("path", fullPath).
		Int("bytes", len(payload)).
		Msg("Stored artifact")

	return nil
}

// Read returns the payload stored at the given relative path
func (fs *FileStore) Read(relPath string) ([]byte, error) {
	fullPath, err := fs.resolve(relPath)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(fullPath)
}

// resolve maps a relative artifact path onto the root directory, rejecting
// absolute paths and traversal outside the root.
func (fs *FileStore) resolve(relPath string) (string, error) {
	if relPath == "" || filepath.IsAbs(relPath) {
		return "", common.WrapError(common.ErrInvalidConfiguration, "artifact path must be relative: "+relPath)
	}

	cleaned := filepath.Clean(relPath)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", common.WrapError(common.ErrInvalidConfiguration, "artifact path escapes the store root: "+relPath)
	}

	return filepath.Join(fs.rootDir, cleaned), nil
}
