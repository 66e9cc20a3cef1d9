package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"vaultdrive/models"
	"vaultdrive/utils"
)

func TestRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	cutoff := RetentionCutoff(now, 30*24*time.Hour)
	assert.Equal(t, time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC), cutoff)

	// Non-positive retention falls back to the default window.
	assert.Equal(t, now.Add(-DefaultTrashRetention), RetentionCutoff(now, 0))
	assert.Equal(t, now.Add(-DefaultTrashRetention), RetentionCutoff(now, -time.Hour))
}

func TestRerootOnRestore(t *testing.T) {
	tests := []struct {
		name       string
		parent     *models.VaultItem
		lookupErr  error
		wantReroot bool
		wantErr    bool
	}{
		{
			name:       "live parent keeps the item in place",
			parent:     &models.VaultItem{},
			wantReroot: false,
		},
		{
			name:       "trashed parent reroots",
			parent:     &models.VaultItem{IsDeleted: true},
			wantReroot: true,
		},
		{
			name:       "purged parent reroots",
			lookupErr:  utils.NotFoundf("item not found"),
			wantReroot: true,
		},
		{
			name:      "transient lookup failure aborts instead of rerooting",
			lookupErr: utils.Internalf(errors.New("connection reset"), "failed to load item"),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reroot, err := RerootOnRestore(tt.parent, tt.lookupErr)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantReroot, reroot)
		})
	}
}

func TestObjectCleanupTargets(t *testing.T) {
	items := []models.VaultItem{
		{Type: models.ItemTypeFolder, Path: "/F"},
		{Type: models.ItemTypeFile, Path: "/F/a.txt", StorageKey: "o/a"},
		{Type: models.ItemTypeFile, Path: "/F/pending.txt"}, // upload never finalized
		{Type: models.ItemTypeFile, Path: "/F/Sub/b.txt", StorageKey: "o/b"},
	}

	targets := ObjectCleanupTargets(items)
	require.Len(t, targets, 2)
	assert.Equal(t, "o/a", targets[0].StorageKey)
	assert.Equal(t, "o/b", targets[1].StorageKey)

	assert.Empty(t, ObjectCleanupTargets(nil))
}

func TestPurgeAuditEntriesOnePerItem(t *testing.T) {
	victims := []models.VaultItem{
		{ID: primitive.NewObjectID(), Path: "/F", Type: models.ItemTypeFolder},
		{ID: primitive.NewObjectID(), Path: "/F/a.txt", Type: models.ItemTypeFile},
		{ID: primitive.NewObjectID(), Path: "/F/Sub/b.txt", Type: models.ItemTypeFile},
	}

	entries := PurgeAuditEntries("alice", victims)
	require.Len(t, entries, len(victims))

	for i, entry := range entries {
		assert.Equal(t, victims[i].ID, entry.ItemID)
		assert.Equal(t, "alice", entry.ActorID)
		assert.Equal(t, models.AuditPurge, entry.Action)
		assert.Equal(t, victims[i].Path, entry.Metadata["path"])
	}

	assert.Empty(t, PurgeAuditEntries("alice", nil))
}
