// Package artifacts implements the content-addressed store for canvas
// snapshots and other per-phase uploads referenced by evidence items.
package artifacts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/designduel/grading-pipeline/pkg/logger"
)

// Store is a local-filesystem-backed artifact store, content-addressed by
// sha256 so a re-upload of an identical canvas snapshot is a no-op write.
type Store struct {
	baseDir        string
	maxUploadBytes int64
}

func NewStore(baseDir string, maxUploadSizeMiB int) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact store directory: %w", err)
	}
	return &Store{
		baseDir:        baseDir,
		maxUploadBytes: int64(maxUploadSizeMiB) * 1024 * 1024,
	}, nil
}

// PutResult describes a stored artifact: its content hash (used as the
// primary key) and the relative path it was written under.
type PutResult struct {
	ContentHash string
	StoragePath string
	SizeBytes   int64
}

// Put writes data under submissionID/phase, keyed by its content hash. It
// rejects uploads over the configured size ceiling before touching disk.
func (s *Store) Put(ctx context.Context, submissionID, phase string, data []byte) (*PutResult, error) {
	if int64(len(data)) > s.maxUploadBytes {
		return nil, fmt.Errorf("artifact exceeds max upload size of %d bytes", s.maxUploadBytes)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	dir := filepath.Join(s.baseDir, submissionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create submission artifact directory: %w", err)
	}

	relPath := filepath.Join(submissionID, fmt.Sprintf("%s-%s.png", phase, hash[:16]))
	fullPath := filepath.Join(s.baseDir, relPath)

	if _, err := os.Stat(fullPath); err == nil {
		// Identical content already stored under this name; nothing to do.
		logger.Debug("Artifact already stored", zap.String("path", relPath))
		return &PutResult{ContentHash: hash, StoragePath: relPath, SizeBytes: int64(len(data))}, nil
	}

	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write artifact: %w", err)
	}

	logger.Info("Artifact stored", zap.String("path", relPath), zap.Int("size_bytes", len(data)))
	return &PutResult{ContentHash: hash, StoragePath: relPath, SizeBytes: int64(len(data))}, nil
}

// Get opens a previously stored artifact for reading.
func (s *Store) Get(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.baseDir, storagePath))
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	return f, nil
}

// URLFor returns the path an API handler should expose for a stored
// artifact; the frontend fetches it through a dedicated static route rather
// than this store knowing about HTTP at all.
func (s *Store) URLFor(storagePath string) string {
	return "/artifacts/" + filepath.ToSlash(storagePath)
}
