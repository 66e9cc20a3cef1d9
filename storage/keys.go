package storage

import (
	"fmt"
	"time"

	"vaultdrive/utils"
)

// Category namespaces the object key space by content kind so per-user
// objects stay grouped for bulk operations like provider migration.
type Category string

const (
	CategoryVault    Category = "vault"
	CategoryStories  Category = "stories"
	CategoryEvents   Category = "events"
	CategoryProfiles Category = "profiles"
)

// BuildObjectKey constructs a collision-free storage key:
// <category>/<owner>[/<parent>]/<unix-millis>_<sanitized-name>.
func BuildObjectKey(category Category, ownerID, parentID, filename string, now time.Time) string {
	name := utils.SanitizeKeyComponent(filename)
	ts := now.UnixMilli()
	if parentID != "" {
		return fmt.Sprintf("%s/%s/%s/%d_%s", category, ownerID, parentID, ts, name)
	}
	return fmt.Sprintf("%s/%s/%d_%s", category, ownerID, ts, name)
}
