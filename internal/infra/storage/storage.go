package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hausview/panotour/internal/infra/blob"
)

// Store persists a processed artifact under a stable key
// (tours/{propertyId}/{roomId or tourId}/...) and returns the URL a viewer
// can fetch it from.
type Store interface {
	Save(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	// SaveFile is Save for an already-on-disk artifact.
	SaveFile(ctx context.Context, key, contentType, localPath string) (string, error)
}

// LocalStore keeps artifacts on the local filesystem under baseDir and serves
// them under baseURL via the router's static mount.
type LocalStore struct {
	baseDir string
	baseURL string
}

func NewLocalStore(baseDir, baseURL string) *LocalStore {
	return &LocalStore{baseDir: baseDir, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *LocalStore) Save(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	dst := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	// Write via temp name so a crash mid-copy never leaves a half artifact
	// at the public path.
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	return s.baseURL + "/" + key, nil
}

func (s *LocalStore) SaveFile(ctx context.Context, key, contentType, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return s.Save(ctx, key, contentType, f)
}

// S3Store persists artifacts to an S3-compatible bucket.
type S3Store struct {
	deps      *blob.S3Deps
	publicURL string
}

func NewS3Store(deps *blob.S3Deps, publicURL string) *S3Store {
	return &S3Store{deps: deps, publicURL: strings.TrimSuffix(publicURL, "/")}
}

func (s *S3Store) Save(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	if err := s.deps.Upload(ctx, key, contentType, r); err != nil {
		return "", err
	}
	return s.publicURL + "/" + key, nil
}

func (s *S3Store) SaveFile(ctx context.Context, key, contentType, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return s.Save(ctx, key, contentType, f)
}
