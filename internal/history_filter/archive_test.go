package history_filter //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solinlabs/persona_bot_platform/internal/storage_manager"
)

// failingProvider fails every write, for degraded-archive tests.
type failingProvider struct{}

func (failingProvider) Read(context.Context, string) ([]byte, error) {
	return nil, errors.New("read failed")
}

func (failingProvider) Write(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func (failingProvider) Exists(context.Context, string) (bool, error) { return false, nil }
func (failingProvider) Delete(context.Context, string) error         { return nil }
func (failingProvider) List(context.Context, string) ([]string, error) {
	return nil, errors.New("list failed")
}

func TestArchiveStoreAndRetrieve(t *testing.T) {
	ctx := context.Background()
	archive := NewArchive(storage_manager.NewLocalFileProvider(t.TempDir()), newTestLogger())

	path, err := archive.Store(ctx, Record{
		ChatID: "chat1",
		UserID: "user1",
		Items: []FilteredContent{
			{OriginalContent: "好的", FilterReason: ReasonTrivial},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, path, "filtered_")
	assert.Contains(t, path, ".json")

	records, err := archive.Retrieve(ctx, "chat1", "user1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Version)
	assert.Equal(t, "chat1", records[0].ChatID)
	assert.Equal(t, 1, records[0].FilteredCount)
	assert.Equal(t, "好的", records[0].Items[0].OriginalContent)
}

func TestArchiveRetrieveFiltersByCoordinates(t *testing.T) {
	ctx := context.Background()
	archive := NewArchive(storage_manager.NewLocalFileProvider(t.TempDir()), newTestLogger())

	// distinct timestamps keep the deterministic filenames from colliding
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, coords := range []struct{ chat, user string }{
		{"chat1", "user1"},
		{"chat1", "user2"},
		{"chat2", "user1"},
	} {
		ts := base.Add(time.Duration(i) * time.Second)
		archive.now = func() time.Time { return ts }
		_, err := archive.Store(ctx, Record{
			ChatID: coords.chat,
			UserID: coords.user,
			Items:  []FilteredContent{{OriginalContent: "嗯", FilterReason: ReasonTrivial}},
		})
		require.NoError(t, err)
	}

	records, err := archive.Retrieve(ctx, "chat1", "")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = archive.Retrieve(ctx, "chat1", "user2")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "user2", records[0].UserID)

	records, err = archive.Retrieve(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestArchiveRetrieveEmptyRoot(t *testing.T) {
	archive := NewArchive(storage_manager.NewLocalFileProvider(t.TempDir()), newTestLogger())

	records, err := archive.Retrieve(context.Background(), "chat1", "user1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestArchiveRetrieveSkipsMalformedRecords(t *testing.T) {
	ctx := context.Background()
	provider := storage_manager.NewLocalFileProvider(t.TempDir())
	archive := NewArchive(provider, newTestLogger())

	require.NoError(t, provider.Write(ctx, "filtered_20250301_120000_deadbeef.json", []byte("not json")))
	require.NoError(t, provider.Write(ctx, "notes.txt", []byte("unrelated")))

	_, err := archive.Store(ctx, Record{
		ChatID: "chat1",
		UserID: "user1",
		Items:  []FilteredContent{{OriginalContent: "好", FilterReason: ReasonTrivial}},
	})
	require.NoError(t, err)

	records, err := archive.Retrieve(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestArchiveStoreWriteFailure(t *testing.T) {
	archive := NewArchive(failingProvider{}, newTestLogger())

	_, err := archive.Store(context.Background(), Record{
		ChatID: "c",
		UserID: "u",
		Items:  []FilteredContent{{OriginalContent: "好的", FilterReason: ReasonTrivial}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestArchiveRetrieveListFailureDegrades(t *testing.T) {
	archive := NewArchive(failingProvider{}, newTestLogger())

	records, err := archive.Retrieve(context.Background(), "c", "u")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCoordinatesHash(t *testing.T) {
	assert.Len(t, coordinatesHash("chat1", "user1"), 8)
	assert.Equal(t, coordinatesHash("chat1", "user1"), coordinatesHash("chat1", "user1"))
	assert.NotEqual(t, coordinatesHash("chat1", "user1"), coordinatesHash("chat2", "user1"))
	assert.Equal(t, coordinatesHash("", ""), coordinatesHash("unknown", "unknown"))
}
