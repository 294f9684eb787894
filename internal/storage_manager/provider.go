// Package storage_manager provides the storage abstraction used for archive
// and persona persistence. Local filesystem and S3 backends are supported;
// components receive prefix-scoped providers for isolated storage.
package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileProvider defines the interface for file storage operations.
type FileProvider interface {
	// Read reads the entire content of a file
	Read(ctx context.Context, path string) ([]byte, error)

	// Write writes data to a file, creating it if it doesn't exist
	Write(ctx context.Context, path string, data []byte) error

	// Exists checks if a file exists
	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes a file
	Delete(ctx context.Context, path string) error

	// List returns a list of file paths under a prefix
	List(ctx context.Context, prefix string) ([]string, error)
}

// LocalFileProvider implements FileProvider for the local filesystem.
type LocalFileProvider struct {
	baseDir string
}

// NewLocalFileProvider creates a new local file provider rooted at baseDir.
func NewLocalFileProvider(baseDir string) *LocalFileProvider {
	return &LocalFileProvider{baseDir: baseDir}
}

// Read reads a file from the local filesystem.
func (p *LocalFileProvider) Read(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(p.baseDir, path))
}

// Write writes data to a local file, creating parent directories as needed.
func (p *LocalFileProvider) Write(_ context.Context, path string, data []byte) error {
	fullPath := filepath.Join(p.baseDir, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(fullPath), err)
	}
	return os.WriteFile(fullPath, data, 0o644)
}

// Exists checks if a file exists on the local filesystem.
func (p *LocalFileProvider) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(filepath.Join(p.baseDir, path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Delete removes a file from the local filesystem. Deleting an absent file
// is a no-op.
func (p *LocalFileProvider) Delete(_ context.Context, path string) error {
	err := os.Remove(filepath.Join(p.baseDir, path))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// List returns paths of all regular files under the given prefix, relative to
// the provider root. An absent prefix directory yields an empty list.
func (p *LocalFileProvider) List(_ context.Context, prefix string) ([]string, error) {
	searchPath := filepath.Join(p.baseDir, prefix)

	result := []string{}
	err := filepath.Walk(searchPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(p.baseDir, path)
		if relErr == nil {
			result = append(result, rel)
		}
		return nil
	})
	if err != nil && os.IsNotExist(err) {
		return []string{}, nil
	}
	return result, err
}

// PrefixedFileProvider wraps another provider, scoping every path under a
// fixed namespace prefix.
type PrefixedFileProvider struct {
	inner  FileProvider
	prefix string
}

// NewPrefixedFileProvider creates a provider scoped under prefix.
func NewPrefixedFileProvider(inner FileProvider, prefix string) *PrefixedFileProvider {
	return &PrefixedFileProvider{inner: inner, prefix: prefix}
}

func (p *PrefixedFileProvider) scoped(path string) string {
	if path == "" {
		return p.prefix
	}
	return p.prefix + "/" + path
}

// Read reads a file under the namespace.
func (p *PrefixedFileProvider) Read(ctx context.Context, path string) ([]byte, error) {
	return p.inner.Read(ctx, p.scoped(path))
}

// Write writes a file under the namespace.
func (p *PrefixedFileProvider) Write(ctx context.Context, path string, data []byte) error {
	return p.inner.Write(ctx, p.scoped(path), data)
}

// Exists checks a file under the namespace.
func (p *PrefixedFileProvider) Exists(ctx context.Context, path string) (bool, error) {
	return p.inner.Exists(ctx, p.scoped(path))
}

// Delete removes a file under the namespace.
func (p *PrefixedFileProvider) Delete(ctx context.Context, path string) error {
	return p.inner.Delete(ctx, p.scoped(path))
}

// List lists files under the namespace, with the namespace prefix stripped.
func (p *PrefixedFileProvider) List(ctx context.Context, prefix string) ([]string, error) {
	paths, err := p.inner.List(ctx, p.scoped(prefix))
	if err != nil {
		return nil, err
	}
	stripped := make([]string, 0, len(paths))
	for _, path := range paths {
		if len(path) > len(p.prefix)+1 {
			stripped = append(stripped, path[len(p.prefix)+1:])
		}
	}
	return stripped, nil
}
