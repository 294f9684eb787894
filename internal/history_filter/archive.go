package history_filter //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"crypto/md5" //nolint:gosec // G501: non-cryptographic filename suffix
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/solinlabs/persona_bot_platform/internal/storage_manager"
	"github.com/solinlabs/persona_bot_platform/pkg/logger"
)

// archiveSchemaVersion is stamped on every record for forward compatibility.
const archiveSchemaVersion = 1

// Archive is the best-effort side storage for removed content. Records are
// JSON files named deterministically from the session coordinates and the
// invocation time.
type Archive struct {
	provider storage_manager.FileProvider
	log      logger.Logger
	now      func() time.Time
}

// NewArchive creates an Archive over the given file provider.
func NewArchive(provider storage_manager.FileProvider, log logger.Logger) *Archive {
	if provider == nil {
		panic("file provider cannot be nil")
	}
	if log == nil {
		panic("logger cannot be nil")
	}
	return &Archive{provider: provider, log: log, now: time.Now}
}

// Store serialises the record and writes it under the archive root. It
// returns the path written.
func (a *Archive) Store(ctx context.Context, record Record) (string, error) {
	ts := a.now().UTC()
	record.Version = archiveSchemaVersion
	record.Timestamp = ts
	record.FilteredCount = len(record.Items)

	name := fmt.Sprintf("filtered_%s_%s.json", ts.Format("20060102_150405"), coordinatesHash(record.ChatID, record.UserID))

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal archive record: %w", err)
	}
	if err := a.provider.Write(ctx, name, data); err != nil {
		return "", fmt.Errorf("failed to write archive record: %w", err)
	}

	a.log.Debug("Stored filtered content",
		logger.StringField("path", name),
		logger.IntField("items", len(record.Items)))

	return name, nil
}

// Retrieve returns all archived records matching the given coordinates. An
// empty chatID or userID matches anything. A missing archive root or an
// unreadable record yields an empty/shorter result, not an error.
func (a *Archive) Retrieve(ctx context.Context, chatID, userID string) ([]Record, error) {
	paths, err := a.provider.List(ctx, "")
	if err != nil {
		a.log.Warn("Failed to list archive", logger.ErrorField(err))
		return []Record{}, nil
	}

	records := []Record{}
	for _, p := range paths {
		base := path.Base(p)
		if !strings.HasPrefix(base, "filtered_") || !strings.HasSuffix(base, ".json") {
			continue
		}
		data, err := a.provider.Read(ctx, p)
		if err != nil {
			a.log.Warn("Failed to read archive record",
				logger.StringField("path", p),
				logger.ErrorField(err))
			continue
		}
		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			a.log.Warn("Skipping malformed archive record",
				logger.StringField("path", p),
				logger.ErrorField(err))
			continue
		}
		if chatID != "" && record.ChatID != chatID {
			continue
		}
		if userID != "" && record.UserID != userID {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// coordinatesHash derives a short stable suffix from the session coordinates.
func coordinatesHash(chatID, userID string) string {
	if chatID == "" {
		chatID = "unknown"
	}
	if userID == "" {
		userID = "unknown"
	}
	sum := md5.Sum([]byte(chatID + "_" + userID)) //nolint:gosec // G401: filename suffix only
	return hex.EncodeToString(sum[:])[:8]
}
