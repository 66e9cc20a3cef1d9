package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ItemType string

const (
	ItemTypeFolder ItemType = "folder"
	ItemTypeFile   ItemType = "file"
)

// AccessLevel is the granularity collaborators can be shared at.
type AccessLevel string

const (
	AccessRead  AccessLevel = "read"
	AccessWrite AccessLevel = "write"
)

func (l AccessLevel) Valid() bool {
	return l == AccessRead || l == AccessWrite
}

// SharePermissions holds the per-item collaborator permission sets.
// Invariant: CanWrite ⊆ CanRead ⊆ the item's SharedWith.
type SharePermissions struct {
	CanRead  []string `bson:"can_read" json:"can_read"`
	CanWrite []string `bson:"can_write" json:"can_write"`
}

// VaultItem is one record per file or folder. Path is the materialized
// /-delimited path from the root; every structural mutation must keep
// path == parentPath + "/" + name.
type VaultItem struct {
	ID       primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OwnerID  string              `bson:"owner_id" json:"owner_id"`
	Type     ItemType            `bson:"type" json:"type"`
	Name     string              `bson:"name" json:"name"`
	ParentID *primitive.ObjectID `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	Path     string              `bson:"path" json:"path"`

	IsDeleted bool       `bson:"is_deleted" json:"is_deleted"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`

	// File-only fields.
	Size            int64             `bson:"size,omitempty" json:"size,omitempty"`
	MimeType        string            `bson:"mime_type,omitempty" json:"mime_type,omitempty"`
	StorageProvider string            `bson:"storage_provider,omitempty" json:"storage_provider,omitempty"`
	StorageBucket   string            `bson:"storage_bucket,omitempty" json:"storage_bucket,omitempty"`
	StorageKey      string            `bson:"storage_key,omitempty" json:"storage_key,omitempty"`
	UploadPending   bool              `bson:"upload_pending,omitempty" json:"upload_pending,omitempty"`
	IsEncrypted     bool              `bson:"is_encrypted,omitempty" json:"is_encrypted,omitempty"`
	EncryptionMeta  map[string]string `bson:"encryption_meta,omitempty" json:"encryption_meta,omitempty"`

	// Cached signed URL, an optimization only. Re-derived when expired.
	CachedURL       string     `bson:"cached_url,omitempty" json:"-"`
	CachedURLExpiry *time.Time `bson:"cached_url_expiry,omitempty" json:"-"`

	SharedWith  []string         `bson:"shared_with" json:"shared_with"`
	Permissions SharePermissions `bson:"permissions" json:"permissions"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (i *VaultItem) IsFolder() bool { return i.Type == ItemTypeFolder }

// IsSharedWith reports whether uid appears in the share list at all.
func (i *VaultItem) IsSharedWith(uid string) bool {
	return containsString(i.SharedWith, uid)
}

// UserCanRead reports read access for a collaborator (not the owner path).
func (i *VaultItem) UserCanRead(uid string) bool {
	return containsString(i.Permissions.CanRead, uid) || containsString(i.Permissions.CanWrite, uid)
}

// UserCanWrite reports write access for a collaborator.
func (i *VaultItem) UserCanWrite(uid string) bool {
	return containsString(i.Permissions.CanWrite, uid)
}

// Grant merges uid into the share sets at the requested level. Granting is
// idempotent; granting write implies read, and re-granting a write user at
// read downgrades them out of can_write.
func (i *VaultItem) Grant(uid string, level AccessLevel) {
	i.SharedWith = addString(i.SharedWith, uid)
	i.Permissions.CanRead = addString(i.Permissions.CanRead, uid)
	if level == AccessWrite {
		i.Permissions.CanWrite = addString(i.Permissions.CanWrite, uid)
	} else {
		i.Permissions.CanWrite = removeString(i.Permissions.CanWrite, uid)
	}
}

// Revoke removes uid from the share list and both permission sets.
func (i *VaultItem) Revoke(uid string) {
	i.SharedWith = removeString(i.SharedWith, uid)
	i.Permissions.CanRead = removeString(i.Permissions.CanRead, uid)
	i.Permissions.CanWrite = removeString(i.Permissions.CanWrite, uid)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func addString(list []string, s string) []string {
	if containsString(list, s) {
		return list
	}
	return append(list, s)
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
