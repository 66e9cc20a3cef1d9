package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"vaultdrive/models"
	"vaultdrive/storage"
	"vaultdrive/utils"
)

// DefaultTrashRetention is how long trashed items survive before the
// scheduled sweep purges them.
const DefaultTrashRetention = 30 * 24 * time.Hour

// objectCleanupTimeout bounds the detached goroutine that deletes backing
// objects after a soft delete.
const objectCleanupTimeout = 10 * time.Minute

type TrashService struct {
	items   *mongo.Collection
	users   *mongo.Collection
	links   *mongo.Collection
	logs    *mongo.Collection
	storage *storage.Manager
	vault   *VaultService
	access  *AccessService
	audit   *AuditService
	logger  *zap.SugaredLogger

	retention time.Duration
}

type PurgeResult struct {
	PurgedCount   int64 `json:"purged_count"`
	ReclaimedSize int64 `json:"reclaimed_size"`
	FilesDeleted  int64 `json:"files_deleted"`
}

func NewTrashService(db *mongo.Database, storageMgr *storage.Manager, vault *VaultService, access *AccessService, audit *AuditService, logger *zap.SugaredLogger, retention time.Duration) *TrashService {
	if retention <= 0 {
		retention = DefaultTrashRetention
	}
	return &TrashService{
		items:     db.Collection("vault_items"),
		users:     db.Collection("users"),
		links:     db.Collection("share_links"),
		logs:      db.Collection("audit_logs"),
		storage:   storageMgr,
		vault:     vault,
		access:    access,
		audit:     audit,
		logger:    logger,
		retention: retention,
	}
}

// SoftDelete moves an item and, for folders, its entire subtree to the
// trash. The subtree includes items collaborators created inside the folder,
// whoever owns them. Backing objects are scheduled for deletion in the
// background; object failures are logged, never fatal. Returns how many
// items were marked.
func (s *TrashService) SoftDelete(ctx context.Context, uid, itemID string) (int64, error) {
	item, err := s.vault.GetItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	if err := s.access.CheckOwner(item, uid); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	set := bson.M{"$set": bson.M{
		"is_deleted": true,
		"deleted_at": now,
		"updated_at": now,
	}}

	res, err := s.items.UpdateOne(ctx, bson.M{"_id": item.ID, "is_deleted": false}, set)
	if err != nil {
		return 0, utils.Internalf(err, "failed to delete item")
	}
	deleted := res.ModifiedCount

	if item.IsFolder() {
		filter := SubtreeFilter(item.Path)
		filter["is_deleted"] = false
		res, err := s.items.UpdateMany(ctx, filter, set)
		if err != nil {
			return deleted, utils.Internalf(err, "failed to delete folder contents")
		}
		deleted += res.ModifiedCount
	}

	s.scheduleObjectCleanup(ctx, item)

	s.audit.Record(ctx, models.AuditLogEntry{
		ItemID:  item.ID,
		ActorID: uid,
		Action:  models.AuditSoftDelete,
		Metadata: map[string]interface{}{
			"path":          item.Path,
			"deleted_count": deleted,
		},
	})
	return deleted, nil
}

// scheduleObjectCleanup deletes the backing objects of the trashed subtree
// in a detached goroutine. The documents are already marked, so failures
// here only leave objects for the purge to retry.
func (s *TrashService) scheduleObjectCleanup(ctx context.Context, item *models.VaultItem) {
	var files []models.VaultItem
	if item.Type == models.ItemTypeFile {
		files = []models.VaultItem{*item}
	} else {
		filter := SubtreeFilter(item.Path)
		filter["type"] = models.ItemTypeFile
		cursor, err := s.items.Find(ctx, filter)
		if err != nil {
			s.logger.Warnw("failed to list files for object cleanup",
				"item", item.ID.Hex(), "error", err)
			return
		}
		if err := cursor.All(ctx, &files); err != nil {
			s.logger.Warnw("failed to decode files for object cleanup",
				"item", item.ID.Hex(), "error", err)
			return
		}
	}
	if len(files) == 0 {
		return
	}

	go func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), objectCleanupTimeout)
		defer cancel()
		s.deleteObjects(cleanupCtx, files)
	}()
}

// ObjectCleanupTargets filters a subtree down to the file documents that
// actually carry a backing object. Folders and never-finalized uploads with
// no key have nothing to delete.
func ObjectCleanupTargets(items []models.VaultItem) []models.VaultItem {
	var files []models.VaultItem
	for _, it := range items {
		if it.Type == models.ItemTypeFile && it.StorageKey != "" {
			files = append(files, it)
		}
	}
	return files
}

func (s *TrashService) deleteObjects(ctx context.Context, files []models.VaultItem) int64 {
	var deleted int64
	for _, f := range ObjectCleanupTargets(files) {
		if err := s.storage.DeleteObject(ctx, f.StorageProvider, f.StorageKey); err != nil {
			s.logger.Warnw("failed to delete storage object",
				"item", f.ID.Hex(), "key", f.StorageKey, "error", err)
			continue
		}
		deleted++
	}
	return deleted
}

// ListTrash returns every trashed item uid owns, newest deletions first.
// Descendants trashed along with a folder appear individually.
func (s *TrashService) ListTrash(ctx context.Context, uid string) ([]models.VaultItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "deleted_at", Value: -1}})
	cursor, err := s.items.Find(ctx, bson.M{"owner_id": uid, "is_deleted": true}, opts)
	if err != nil {
		return nil, utils.Internalf(err, "failed to list trash")
	}
	defer cursor.Close(ctx)

	var items []models.VaultItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, utils.Internalf(err, "failed to decode trash")
	}
	return items, nil
}

// Restore brings a trashed item and its trashed descendants back to the
// live tree. Restoring something that is not trashed is a no-op; the
// returned count covers only items actually flipped.
func (s *TrashService) Restore(ctx context.Context, uid, itemID string) (int64, error) {
	item, err := s.vault.GetItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	if item.OwnerID != uid {
		return 0, utils.PermissionDeniedf("only the owner may restore items")
	}

	if item.ParentID != nil {
		parent, lookupErr := s.vault.getByObjectID(ctx, *item.ParentID)
		reroot, err := RerootOnRestore(parent, lookupErr)
		if err != nil {
			return 0, err
		}
		// The original parent was purged meanwhile; reattach at the root.
		if reroot {
			newPath := ChildPath("", item.Name)
			if _, err := s.items.UpdateOne(ctx, bson.M{"_id": item.ID}, bson.M{"$set": bson.M{
				"parent_id": nil,
				"path":      newPath,
			}}); err != nil {
				return 0, utils.Internalf(err, "failed to reattach item at root")
			}
			if item.IsFolder() {
				oldPath := item.Path
				item.Path = newPath
				s.vault.propagateDescendantPaths(ctx, item.ID, newPath)
				s.logger.Infow("restored item reattached at root",
					"item", item.ID.Hex(), "old_path", oldPath, "new_path", newPath)
			}
			item.ParentID = nil
		}
	}

	now := time.Now().UTC()
	unset := bson.M{
		"$set":   bson.M{"is_deleted": false, "updated_at": now},
		"$unset": bson.M{"deleted_at": ""},
	}

	res, err := s.items.UpdateOne(ctx, bson.M{"_id": item.ID, "is_deleted": true}, unset)
	if err != nil {
		return 0, utils.Internalf(err, "failed to restore item")
	}
	restored := res.ModifiedCount

	if item.IsFolder() {
		filter := SubtreeFilter(item.Path)
		filter["is_deleted"] = true
		res, err := s.items.UpdateMany(ctx, filter, unset)
		if err != nil {
			return restored, utils.Internalf(err, "failed to restore folder contents")
		}
		restored += res.ModifiedCount
	}

	if restored > 0 {
		s.audit.Record(ctx, models.AuditLogEntry{
			ItemID:  item.ID,
			ActorID: uid,
			Action:  models.AuditRestore,
			Metadata: map[string]interface{}{
				"restored_count": restored,
			},
		})
	}
	return restored, nil
}

// RerootOnRestore decides whether a restored item must reattach at the root
// because its parent is gone. A missing parent or a still-trashed parent
// reroots; any other lookup failure aborts the restore instead of silently
// moving the item.
func RerootOnRestore(parent *models.VaultItem, lookupErr error) (bool, error) {
	if lookupErr != nil {
		if utils.CodeOf(lookupErr) == utils.CodeNotFound {
			return true, nil
		}
		return false, lookupErr
	}
	return parent.IsDeleted, nil
}

// Purge permanently removes a trashed item and its subtree: storage objects,
// metadata documents, share links, and the items' audit trail. Only trashed
// items can be purged.
func (s *TrashService) Purge(ctx context.Context, uid, itemID string) (*PurgeResult, error) {
	item, err := s.vault.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != uid {
		return nil, utils.PermissionDeniedf("only the owner may purge items")
	}
	if !item.IsDeleted {
		return nil, utils.FailedPreconditionf("item must be in the trash before it can be purged")
	}

	victims := []models.VaultItem{*item}
	if item.IsFolder() {
		cursor, err := s.items.Find(ctx, SubtreeFilter(item.Path))
		if err != nil {
			return nil, utils.Internalf(err, "failed to list folder contents")
		}
		var descendants []models.VaultItem
		if err := cursor.All(ctx, &descendants); err != nil {
			return nil, utils.Internalf(err, "failed to decode folder contents")
		}
		victims = append(victims, descendants...)
	}

	return s.purgeItems(ctx, uid, victims), nil
}

// PurgeMany purges an explicit list of trashed items the caller owns. Any
// item that is missing, foreign, or not trashed fails the whole request
// before anything is deleted.
func (s *TrashService) PurgeMany(ctx context.Context, uid string, itemIDs []string) (*PurgeResult, error) {
	if len(itemIDs) == 0 {
		return nil, utils.InvalidArgumentf("no items given")
	}

	total := &PurgeResult{}
	for _, itemID := range itemIDs {
		item, err := s.vault.GetItem(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if item.OwnerID != uid {
			return nil, utils.PermissionDeniedf("only the owner may purge items")
		}
		if !item.IsDeleted {
			return nil, utils.FailedPreconditionf("item %s must be in the trash before it can be purged", itemID)
		}
	}

	for _, itemID := range itemIDs {
		result, err := s.Purge(ctx, uid, itemID)
		if err != nil {
			// A folder purged earlier in the list may have taken this
			// descendant with it.
			if utils.CodeOf(err) == utils.CodeNotFound {
				continue
			}
			return total, err
		}
		total.PurgedCount += result.PurgedCount
		total.ReclaimedSize += result.ReclaimedSize
		total.FilesDeleted += result.FilesDeleted
	}
	return total, nil
}

// EmptyTrash purges everything in uid's trash.
func (s *TrashService) EmptyTrash(ctx context.Context, uid string) (*PurgeResult, error) {
	trashed, err := s.ListTrash(ctx, uid)
	if err != nil {
		return nil, err
	}
	if len(trashed) == 0 {
		return &PurgeResult{}, nil
	}
	return s.purgeItems(ctx, uid, trashed), nil
}

// PurgeExpiredTrash removes every trashed item older than the retention
// window, across all users. Called by the scheduled sweeper.
func (s *TrashService) PurgeExpiredTrash(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.retention)
	cursor, err := s.items.Find(ctx, bson.M{
		"is_deleted": true,
		"deleted_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, utils.Internalf(err, "failed to list expired trash")
	}
	var expired []models.VaultItem
	if err := cursor.All(ctx, &expired); err != nil {
		return 0, utils.Internalf(err, "failed to decode expired trash")
	}
	if len(expired) == 0 {
		return 0, nil
	}

	result := s.purgeItems(ctx, "system", expired)
	s.logger.Infow("expired trash purged", "count", result.PurgedCount, "cutoff", cutoff)
	return result.PurgedCount, nil
}

// RetentionCutoff returns the deleted-at threshold below which trash is
// eligible for the scheduled purge.
func RetentionCutoff(now time.Time, retention time.Duration) time.Time {
	if retention <= 0 {
		retention = DefaultTrashRetention
	}
	return now.Add(-retention)
}

// PurgeAuditEntries builds the one-entry-per-item audit trail of a purge.
func PurgeAuditEntries(actor string, victims []models.VaultItem) []models.AuditLogEntry {
	entries := make([]models.AuditLogEntry, 0, len(victims))
	for _, v := range victims {
		entries = append(entries, models.AuditLogEntry{
			ItemID:  v.ID,
			ActorID: actor,
			Action:  models.AuditPurge,
			Metadata: map[string]interface{}{
				"path": v.Path,
				"type": string(v.Type),
			},
		})
	}
	return entries
}

// purgeItems deletes storage objects best-effort, then the metadata
// documents, share links, and the old audit trail, and finally records one
// purge audit entry per item. Reclaimed quota is credited back to each
// document's own owner.
func (s *TrashService) purgeItems(ctx context.Context, actor string, victims []models.VaultItem) *PurgeResult {
	ids := make([]primitive.ObjectID, 0, len(victims))
	reclaimedByOwner := make(map[string]int64)
	var files []models.VaultItem
	for _, v := range victims {
		ids = append(ids, v.ID)
		if v.Type == models.ItemTypeFile && v.StorageKey != "" {
			files = append(files, v)
			if !v.UploadPending {
				reclaimedByOwner[v.OwnerID] += v.Size
			}
		}
	}

	filesDeleted := s.deleteObjects(ctx, files)

	var purged int64
	for _, chunk := range utils.Chunk(ids, utils.MaxBatchOps) {
		res, err := s.items.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": chunk}})
		if err != nil {
			s.logger.Warnw("failed to delete item documents during purge", "error", err)
			continue
		}
		purged += res.DeletedCount
	}

	for _, chunk := range utils.Chunk(ids, utils.MaxBatchOps) {
		if _, err := s.links.DeleteMany(ctx, bson.M{"item_id": bson.M{"$in": chunk}}); err != nil {
			s.logger.Warnw("failed to delete share links during purge", "error", err)
		}
		if _, err := s.logs.DeleteMany(ctx, bson.M{"item_id": bson.M{"$in": chunk}}); err != nil {
			s.logger.Warnw("failed to delete audit entries during purge", "error", err)
		}
	}

	var reclaimed int64
	for owner, size := range reclaimedByOwner {
		reclaimed += size
		if _, err := s.users.UpdateOne(ctx, bson.M{"_id": owner},
			bson.M{"$inc": bson.M{"used_storage": -size}}); err != nil {
			s.logger.Warnw("failed to release storage quota", "uid", owner, "error", err)
		}
	}

	for _, entry := range PurgeAuditEntries(actor, victims) {
		s.audit.Record(ctx, entry)
	}

	return &PurgeResult{PurgedCount: purged, ReclaimedSize: reclaimed, FilesDeleted: filesDeleted}
}
