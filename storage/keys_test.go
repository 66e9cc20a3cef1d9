package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildObjectKey(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	key := BuildObjectKey(CategoryVault, "user-1", "folder-9", "report.pdf", now)
	assert.Equal(t, "vault/user-1/folder-9/1773480413000_report.pdf", key)

	rootKey := BuildObjectKey(CategoryVault, "user-1", "", "report.pdf", now)
	assert.Equal(t, "vault/user-1/1773480413000_report.pdf", rootKey)
}

func TestBuildObjectKeySanitizesFilename(t *testing.T) {
	now := time.Unix(0, 0)

	key := BuildObjectKey(CategoryProfiles, "u", "", "my photo (1) ünïcode.png", now)
	assert.False(t, strings.ContainsAny(key, " ()ü"), "unsafe characters must be replaced: %s", key)
	assert.True(t, strings.HasPrefix(key, "profiles/u/"))
}

func TestBuildObjectKeyDistinctTimestamps(t *testing.T) {
	a := BuildObjectKey(CategoryVault, "u", "", "same.txt", time.UnixMilli(1))
	b := BuildObjectKey(CategoryVault, "u", "", "same.txt", time.UnixMilli(2))
	assert.NotEqual(t, a, b, "timestamp must keep identical names collision-free")
}
