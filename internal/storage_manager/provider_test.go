package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFileProviderRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := NewLocalFileProvider(t.TempDir())

	require.NoError(t, p.Write(ctx, "archive/a/record.json", []byte(`{"ok":true}`)))

	exists, err := p.Exists(ctx, "archive/a/record.json")
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := p.Read(ctx, "archive/a/record.json")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))

	paths, err := p.List(ctx, "archive")
	require.NoError(t, err)
	assert.Len(t, paths, 1)

	require.NoError(t, p.Delete(ctx, "archive/a/record.json"))
	exists, err = p.Exists(ctx, "archive/a/record.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalFileProviderListMissingPrefix(t *testing.T) {
	p := NewLocalFileProvider(t.TempDir())
	paths, err := p.List(context.Background(), "nothing/here")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestLocalFileProviderDeleteAbsent(t *testing.T) {
	p := NewLocalFileProvider(t.TempDir())
	assert.NoError(t, p.Delete(context.Background(), "missing.json"))
}

func TestPrefixedFileProviderScoping(t *testing.T) {
	ctx := context.Background()
	root := NewLocalFileProvider(t.TempDir())

	archive := NewPrefixedFileProvider(root, "archive")
	personas := NewPrefixedFileProvider(root, "personas")

	require.NoError(t, archive.Write(ctx, "one.json", []byte("a")))
	require.NoError(t, personas.Write(ctx, "one.json", []byte("b")))

	data, err := archive.Read(ctx, "one.json")
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	paths, err := archive.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"one.json"}, paths)
}

func TestS3FileProviderWithMemoryClient(t *testing.T) {
	ctx := context.Background()
	client := NewMemoryS3Client()
	p := NewS3FileProvider("bucket", "bots", client)

	require.NoError(t, p.Write(ctx, "records/r1.json", []byte("payload")))

	exists, err := p.Exists(ctx, "records/r1.json")
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := p.Read(ctx, "records/r1.json")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	paths, err := p.List(ctx, "records")
	require.NoError(t, err)
	assert.Equal(t, []string{"records/r1.json"}, paths)

	require.NoError(t, p.Delete(ctx, "records/r1.json"))
	exists, err = p.Exists(ctx, "records/r1.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestManagerNamespaces(t *testing.T) {
	m, err := New(Config{Backend: BackendLocal, Local: &LocalConfig{BaseDir: t.TempDir()}})
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, m.Backend())

	ctx := context.Background()
	a := m.GetProvider("archive")
	b := m.GetProvider("personas")

	require.NoError(t, a.Write(ctx, "x.json", []byte("1")))
	exists, err := b.Exists(ctx, "x.json")
	require.NoError(t, err)
	assert.False(t, exists, "namespaces must be isolated")
}

func TestManagerRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Backend: BackendLocal})
	assert.Error(t, err)

	_, err = New(Config{Backend: BackendS3, S3: &S3Config{}})
	assert.Error(t, err)

	_, err = New(Config{Backend: "ftp"})
	assert.Error(t, err)
}
