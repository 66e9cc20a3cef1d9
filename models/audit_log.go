package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Audit actions recorded by the services. One entry per mutating action and
// per sensitive read.
const (
	AuditFolderCreate    = "folder_create"
	AuditUploadRequest   = "upload_request"
	AuditUploadFinalize  = "upload_finalize"
	AuditRename          = "rename"
	AuditMove            = "move"
	AuditSoftDelete      = "soft_delete"
	AuditRestore         = "restore"
	AuditPurge           = "purge"
	AuditShare           = "share"
	AuditRevoke          = "revoke"
	AuditShareLinkCreate = "share_link_create"
	AuditShareLinkAccess = "share_link_access"
	AuditDownloadURL     = "download_url"
)

// AuditLogEntry is append-only. It is never mutated and only deleted by the
// purge that removes its subject item.
type AuditLogEntry struct {
	ID           primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	ItemID       primitive.ObjectID     `bson:"item_id" json:"item_id"`
	ActorID      string                 `bson:"actor_id" json:"actor_id"`
	TargetUserID string                 `bson:"target_user_id,omitempty" json:"target_user_id,omitempty"`
	Action       string                 `bson:"action" json:"action"`
	Timestamp    time.Time              `bson:"timestamp" json:"timestamp"`
	Metadata     map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
}
