package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BackendType represents the storage backend type.
type BackendType string

const (
	// BackendLocal uses the local filesystem for storage.
	BackendLocal BackendType = "local"
	// BackendS3 uses AWS S3 for storage.
	BackendS3 BackendType = "s3"
)

// Config holds the configuration for the Manager.
type Config struct {
	Backend BackendType
	Local   *LocalConfig
	S3      *S3Config
}

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	BaseDir string
}

// S3Config holds configuration for S3 storage.
type S3Config struct {
	Bucket string
	Prefix string
	Client *s3.Client
}

// Manager hands out prefix-scoped file providers so components such as the
// filtered-content archive and the persona loader get isolated storage areas
// within one backend.
type Manager struct {
	backend  BackendType
	provider FileProvider
}

// New creates a Manager for the configured backend.
func New(config Config) (*Manager, error) {
	var provider FileProvider

	switch config.Backend {
	case BackendLocal:
		if config.Local == nil || config.Local.BaseDir == "" {
			return nil, fmt.Errorf("local backend requires a base directory")
		}
		provider = NewLocalFileProvider(config.Local.BaseDir)

	case BackendS3:
		if config.S3 == nil || config.S3.Bucket == "" {
			return nil, fmt.Errorf("s3 backend requires a bucket")
		}
		if config.S3.Client == nil {
			return nil, fmt.Errorf("s3 backend requires a client")
		}
		provider = NewS3FileProvider(config.S3.Bucket, config.S3.Prefix, NewAWSS3Client(config.S3.Client))

	default:
		return nil, fmt.Errorf("unsupported storage backend: %s (must be 'local' or 's3')", config.Backend)
	}

	return &Manager{backend: config.Backend, provider: provider}, nil
}

// NewWithProvider creates a Manager over a custom FileProvider. Useful for
// tests.
func NewWithProvider(provider FileProvider) *Manager {
	return &Manager{provider: provider}
}

// GetProvider returns a FileProvider scoped under the given namespace. An
// empty namespace returns the root provider.
func (m *Manager) GetProvider(namespace string) FileProvider {
	if namespace == "" {
		return m.provider
	}
	return NewPrefixedFileProvider(m.provider, namespace)
}

// Backend returns the configured backend type.
func (m *Manager) Backend() BackendType {
	return m.backend
}
