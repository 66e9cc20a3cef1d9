package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ShareLink is a token-addressable public pointer to an item. It carries the
// owner's storage authority; requesters need no platform identity. Mutated
// only by the access counter, deleted when its item is purged.
type ShareLink struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ShareID        string             `bson:"share_id" json:"share_id"`
	ItemID         primitive.ObjectID `bson:"item_id" json:"item_id"`
	OwnerID        string             `bson:"owner_id" json:"owner_id"`
	ExpiresAt      *time.Time         `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	AllowDownload  bool               `bson:"allow_download" json:"allow_download"`
	PasswordHash   string             `bson:"password_hash,omitempty" json:"-"`
	AccessCount    int64              `bson:"access_count" json:"access_count"`
	MaxAccessCount *int64             `bson:"max_access_count,omitempty" json:"max_access_count,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	LastAccessedAt *time.Time         `bson:"last_accessed_at,omitempty" json:"last_accessed_at,omitempty"`
}
