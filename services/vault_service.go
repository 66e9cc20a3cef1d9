package services

import (
	"context"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"vaultdrive/models"
	"vaultdrive/storage"
	"vaultdrive/utils"
)

// maxPropagationDepth bounds the descendant path rewrite after a folder
// rename or move. Deeper descendants keep a stale path, by documented
// trade-off, rather than failing the whole operation.
const maxPropagationDepth = 10

// rangeSentinel is the high code point closing path-prefix range queries.
const rangeSentinel = ""

type VaultService struct {
	items   *mongo.Collection
	users   *mongo.Collection
	storage *storage.Manager
	access  *AccessService
	audit   *AuditService
	logger  *zap.SugaredLogger

	maxFileSize int64
	maxStorage  int64
}

type UploadRequest struct {
	FileName    string
	MimeType    string
	ParentID    *string
	FileSize    int64
	IsEncrypted bool
}

type UploadTicketResponse struct {
	SignedURL       string `json:"signed_url"`
	ItemID          string `json:"item_id"`
	StorageProvider string `json:"storage_provider"`
	StoragePath     string `json:"storage_path"`
	DirectUpload    bool   `json:"direct_upload"`
}

type FinalizeResult struct {
	ID          string `json:"id"`
	DownloadURL string `json:"download_url"`
	IsEncrypted bool   `json:"is_encrypted"`
}

func NewVaultService(db *mongo.Database, storageMgr *storage.Manager, access *AccessService, audit *AuditService, logger *zap.SugaredLogger, maxFileSize, maxStorage int64) *VaultService {
	return &VaultService{
		items:       db.Collection("vault_items"),
		users:       db.Collection("users"),
		storage:     storageMgr,
		access:      access,
		audit:       audit,
		logger:      logger,
		maxFileSize: maxFileSize,
		maxStorage:  maxStorage,
	}
}

// ChildPath derives an item path from its parent's path. A nil parent path
// means a root-level item.
func ChildPath(parentPath, name string) string {
	if parentPath == "" {
		return "/" + name
	}
	return parentPath + "/" + name
}

// DescendantRange returns the half-open [lo, hi) path range covering every
// descendant of the given folder path, for single prefix-range queries.
func DescendantRange(path string) (lo, hi string) {
	return path + "/", path + "/" + rangeSentinel
}

// SubtreeFilter matches every descendant document of a folder path. It
// deliberately carries no owner constraint: items a collaborator created
// inside a shared folder keep the collaborator's owner_id, and subtree
// operations authorized on the folder must reach them too.
func SubtreeFilter(path string) bson.M {
	lo, hi := DescendantRange(path)
	return bson.M{"path": bson.M{"$gte": lo, "$lt": hi}}
}

func (s *VaultService) CreateFolder(ctx context.Context, uid, name string, parentID *string) (*models.VaultItem, error) {
	name, err := utils.SanitizeFolderName(name)
	if err != nil {
		return nil, err
	}

	parent, err := s.resolveParentForWrite(ctx, uid, parentID)
	if err != nil {
		return nil, err
	}
	parentPath := ""
	var parentObjID *primitive.ObjectID
	if parent != nil {
		parentPath = parent.Path
		parentObjID = &parent.ID
	}

	// Reject duplicate folder names within the same parent.
	dupFilter := bson.M{
		"owner_id":   uid,
		"type":       models.ItemTypeFolder,
		"name":       name,
		"is_deleted": false,
	}
	if parentObjID != nil {
		dupFilter["parent_id"] = *parentObjID
	} else {
		dupFilter["parent_id"] = nil
	}
	if err := s.items.FindOne(ctx, dupFilter).Err(); err == nil {
		return nil, utils.AlreadyExistsf("folder %q already exists here", name)
	} else if err != mongo.ErrNoDocuments {
		return nil, utils.Internalf(err, "failed to check for duplicate folder")
	}

	now := time.Now().UTC()
	folder := models.VaultItem{
		ID:          primitive.NewObjectID(),
		OwnerID:     uid,
		Type:        models.ItemTypeFolder,
		Name:        name,
		ParentID:    parentObjID,
		Path:        ChildPath(parentPath, name),
		SharedWith:  []string{},
		Permissions: models.SharePermissions{CanRead: []string{}, CanWrite: []string{}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.items.InsertOne(ctx, folder); err != nil {
		return nil, utils.Internalf(err, "failed to create folder")
	}

	s.audit.Record(ctx, models.AuditLogEntry{
		ItemID:  folder.ID,
		ActorID: uid,
		Action:  models.AuditFolderCreate,
		Metadata: map[string]interface{}{
			"name": name,
			"path": folder.Path,
		},
	})

	return &folder, nil
}

func (s *VaultService) RequestUploadURL(ctx context.Context, uid string, req UploadRequest) (*UploadTicketResponse, error) {
	name, err := utils.SanitizeFileName(req.FileName)
	if err != nil {
		return nil, err
	}
	if req.FileSize <= 0 {
		return nil, utils.InvalidArgumentf("file size must be positive")
	}
	if s.maxFileSize > 0 && req.FileSize > s.maxFileSize {
		return nil, utils.InvalidArgumentf("file exceeds maximum size of %d bytes", s.maxFileSize)
	}

	if err := s.checkStorageQuota(ctx, uid, req.FileSize); err != nil {
		return nil, err
	}

	parent, err := s.resolveParentForWrite(ctx, uid, req.ParentID)
	if err != nil {
		return nil, err
	}
	parentPath := ""
	parentHex := ""
	var parentObjID *primitive.ObjectID
	if parent != nil {
		parentPath = parent.Path
		parentHex = parent.ID.Hex()
		parentObjID = &parent.ID
	}

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = mimeTypeFor(name)
	}

	now := time.Now().UTC()
	key := storage.BuildObjectKey(storage.CategoryVault, uid, parentHex, name, now)

	ticket, err := s.storage.GenerateUploadURL(ctx, "", key, mimeType, storage.DefaultUploadTTL, map[string]string{
		"owner": uid,
	})
	if err != nil {
		return nil, utils.Internalf(err, "failed to generate upload URL")
	}

	item := models.VaultItem{
		ID:              primitive.NewObjectID(),
		OwnerID:         uid,
		Type:            models.ItemTypeFile,
		Name:            name,
		ParentID:        parentObjID,
		Path:            ChildPath(parentPath, name),
		Size:            req.FileSize,
		MimeType:        mimeType,
		StorageProvider: ticket.Provider,
		StorageBucket:   ticket.Bucket,
		StorageKey:      ticket.Key,
		UploadPending:   true,
		IsEncrypted:     req.IsEncrypted,
		SharedWith:      []string{},
		Permissions:     models.SharePermissions{CanRead: []string{}, CanWrite: []string{}},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if _, err := s.items.InsertOne(ctx, item); err != nil {
		return nil, utils.Internalf(err, "failed to save file metadata")
	}

	s.audit.Record(ctx, models.AuditLogEntry{
		ItemID:  item.ID,
		ActorID: uid,
		Action:  models.AuditUploadRequest,
		Metadata: map[string]interface{}{
			"name":     name,
			"size":     req.FileSize,
			"provider": ticket.Provider,
		},
	})

	return &UploadTicketResponse{
		SignedURL:       ticket.URL,
		ItemID:          item.ID.Hex(),
		StorageProvider: ticket.Provider,
		StoragePath:     ticket.Key,
		DirectUpload:    ticket.Direct,
	}, nil
}

func (s *VaultService) FinalizeUpload(ctx context.Context, uid, itemID string, size int64, encryptionMeta map[string]string) (*FinalizeResult, error) {
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.access.CheckOwner(item, uid); err != nil {
		return nil, err
	}
	if item.Type != models.ItemTypeFile {
		return nil, utils.InvalidArgumentf("only files can be finalized")
	}

	exists, err := s.storage.ObjectExists(ctx, item.StorageProvider, item.StorageKey)
	if err != nil {
		return nil, utils.Internalf(err, "failed to verify uploaded object")
	}
	if !exists {
		return nil, utils.FailedPreconditionf("object has not been uploaded yet")
	}

	now := time.Now().UTC()
	set := bson.M{
		"upload_pending": false,
		"updated_at":     now,
	}
	if size > 0 {
		set["size"] = size
	} else {
		size = item.Size
	}
	if len(encryptionMeta) > 0 {
		set["is_encrypted"] = true
		set["encryption_meta"] = encryptionMeta
	}

	if _, err := s.items.UpdateOne(ctx, bson.M{"_id": item.ID}, bson.M{"$set": set}); err != nil {
		return nil, utils.Internalf(err, "failed to finalize upload")
	}

	// Account the bytes against the owner's quota once the upload is real.
	if item.UploadPending {
		if _, err := s.users.UpdateOne(ctx, bson.M{"_id": uid},
			bson.M{"$inc": bson.M{"used_storage": size}}); err != nil {
			s.logger.Warnw("failed to update storage usage", "uid", uid, "error", err)
		}
	}

	downloadURL, err := s.downloadURLForItem(ctx, item)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, models.AuditLogEntry{
		ItemID:  item.ID,
		ActorID: uid,
		Action:  models.AuditUploadFinalize,
		Metadata: map[string]interface{}{
			"size": size,
		},
	})

	return &FinalizeResult{
		ID:          item.ID.Hex(),
		DownloadURL: downloadURL,
		IsEncrypted: item.IsEncrypted || len(encryptionMeta) > 0,
	}, nil
}

// ListItems returns the live items under a parent that uid owns or has been
// shared. Folders sort before files, then lexicographically by name.
func (s *VaultService) ListItems(ctx context.Context, uid string, parentID *string) ([]models.VaultItem, error) {
	filter := bson.M{
		"is_deleted":     false,
		"upload_pending": bson.M{"$ne": true},
		"$or": []bson.M{
			{"owner_id": uid},
			{"shared_with": uid},
		},
	}
	if parentID != nil && *parentID != "" {
		parentObjID, err := primitive.ObjectIDFromHex(*parentID)
		if err != nil {
			return nil, utils.InvalidArgumentf("invalid parent ID")
		}
		filter["parent_id"] = parentObjID
	} else {
		filter["parent_id"] = nil
	}

	cursor, err := s.items.Find(ctx, filter)
	if err != nil {
		return nil, utils.Internalf(err, "failed to list items")
	}
	defer cursor.Close(ctx)

	var items []models.VaultItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, utils.Internalf(err, "failed to decode items")
	}

	SortItems(items)
	return items, nil
}

// SortItems orders folders before files, then by name.
func SortItems(items []models.VaultItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Type != items[j].Type {
			return items[i].Type == models.ItemTypeFolder
		}
		return items[i].Name < items[j].Name
	})
}

func (s *VaultService) Rename(ctx context.Context, uid, itemID, newName string) error {
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if err := s.access.CheckOwner(item, uid); err != nil {
		return err
	}

	if item.IsFolder() {
		newName, err = utils.SanitizeFolderName(newName)
	} else {
		newName, err = utils.SanitizeFileName(newName)
	}
	if err != nil {
		return err
	}

	parentPath := ""
	if item.ParentID != nil {
		parent, err := s.getByObjectID(ctx, *item.ParentID)
		if err != nil {
			return utils.NotFoundf("parent folder not found")
		}
		parentPath = parent.Path
	}
	oldPath := item.Path
	newPath := ChildPath(parentPath, newName)

	if _, err := s.items.UpdateOne(ctx, bson.M{"_id": item.ID}, bson.M{"$set": bson.M{
		"name":       newName,
		"path":       newPath,
		"updated_at": time.Now().UTC(),
	}}); err != nil {
		return utils.Internalf(err, "failed to rename item")
	}

	if item.IsFolder() {
		s.propagateDescendantPaths(ctx, item.ID, newPath)
	}

	s.audit.Record(ctx, models.AuditLogEntry{
		ItemID:  item.ID,
		ActorID: uid,
		Action:  models.AuditRename,
		Metadata: map[string]interface{}{
			"old_path": oldPath,
			"new_path": newPath,
		},
	})
	return nil
}

func (s *VaultService) Move(ctx context.Context, uid, itemID string, newParentID *string) error {
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if err := s.access.CheckOwner(item, uid); err != nil {
		return err
	}

	newParentPath := ""
	var newParentObjID *primitive.ObjectID
	if newParentID != nil && *newParentID != "" {
		if *newParentID == itemID {
			return utils.InvalidArgumentf("cannot move an item into itself")
		}
		parent, err := s.GetItem(ctx, *newParentID)
		if err != nil {
			return utils.NotFoundf("destination folder not found")
		}
		if !parent.IsFolder() || parent.IsDeleted {
			return utils.InvalidArgumentf("destination is not a live folder")
		}
		if err := s.access.CheckOwner(parent, uid); err != nil {
			return err
		}
		// Moving a folder under its own subtree would create a cycle.
		if item.IsFolder() && strings.HasPrefix(parent.Path+"/", item.Path+"/") {
			return utils.InvalidArgumentf("cannot move a folder into its own descendant")
		}
		newParentPath = parent.Path
		newParentObjID = &parent.ID
	}

	oldPath := item.Path
	newPath := ChildPath(newParentPath, item.Name)

	update := bson.M{"$set": bson.M{
		"parent_id":  newParentObjID,
		"path":       newPath,
		"updated_at": time.Now().UTC(),
	}}
	if _, err := s.items.UpdateOne(ctx, bson.M{"_id": item.ID}, update); err != nil {
		return utils.Internalf(err, "failed to move item")
	}

	if item.IsFolder() {
		s.propagateDescendantPaths(ctx, item.ID, newPath)
	}

	s.audit.Record(ctx, models.AuditLogEntry{
		ItemID:  item.ID,
		ActorID: uid,
		Action:  models.AuditMove,
		Metadata: map[string]interface{}{
			"old_path": oldPath,
			"new_path": newPath,
		},
	})
	return nil
}

// propagateDescendantPaths rewrites descendant paths level by level with an
// explicit stack, never recursion, so adversarial tree depth cannot blow the
// call stack. Writes are idempotent path recomputations; interleaved runs
// converge on last-write-wins.
func (s *VaultService) propagateDescendantPaths(ctx context.Context, folderID primitive.ObjectID, folderPath string) {
	type frame struct {
		id    primitive.ObjectID
		path  string
		depth int
	}
	stack := []frame{{id: folderID, path: folderPath, depth: 0}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.depth >= maxPropagationDepth {
			s.logger.Warnw("descendant path propagation hit depth ceiling",
				"folder", folderID.Hex(), "depth", top.depth)
			continue
		}

		cursor, err := s.items.Find(ctx, bson.M{"parent_id": top.id})
		if err != nil {
			s.logger.Warnw("failed to list children during path propagation",
				"parent", top.id.Hex(), "error", err)
			continue
		}
		var children []models.VaultItem
		if err := cursor.All(ctx, &children); err != nil {
			s.logger.Warnw("failed to decode children during path propagation",
				"parent", top.id.Hex(), "error", err)
			continue
		}

		var writes []mongo.WriteModel
		for _, child := range RecomputeChildPaths(top.path, children) {
			writes = append(writes, mongo.NewUpdateOneModel().
				SetFilter(bson.M{"_id": child.ID}).
				SetUpdate(bson.M{"$set": bson.M{"path": child.Path}}))
			if child.IsFolder() {
				stack = append(stack, frame{id: child.ID, path: child.Path, depth: top.depth + 1})
			}
		}
		for _, chunk := range utils.Chunk(writes, utils.MaxBatchOps) {
			if _, err := s.items.BulkWrite(ctx, chunk); err != nil {
				s.logger.Warnw("bulk path update failed", "parent", top.id.Hex(), "error", err)
			}
		}
	}
}

// RecomputeChildPaths derives the path each child must carry under the new
// parent path. Unconditional recomputation keeps the write idempotent.
func RecomputeChildPaths(parentPath string, children []models.VaultItem) []models.VaultItem {
	updated := make([]models.VaultItem, len(children))
	for i, child := range children {
		child.Path = ChildPath(parentPath, child.Name)
		updated[i] = child
	}
	return updated
}

// GetDownloadURL issues a signed download URL for an item uid can read,
// reusing the cached URL while it is still fresh.
func (s *VaultService) GetDownloadURL(ctx context.Context, uid, itemID string) (string, error) {
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return "", err
	}
	if err := s.access.Check(item, uid, models.AccessRead); err != nil {
		return "", err
	}
	if item.Type != models.ItemTypeFile {
		return "", utils.InvalidArgumentf("folders have no download URL")
	}

	url, err := s.downloadURLForItem(ctx, item)
	if err != nil {
		return "", err
	}

	s.audit.Record(ctx, models.AuditLogEntry{
		ItemID:  item.ID,
		ActorID: uid,
		Action:  models.AuditDownloadURL,
	})
	return url, nil
}

// GetDownloadURLByKey resolves an item by its storage key, for callers that
// hold a storage path instead of an item id.
func (s *VaultService) GetDownloadURLByKey(ctx context.Context, uid, storageKey string) (string, error) {
	var item models.VaultItem
	err := s.items.FindOne(ctx, bson.M{"storage_key": storageKey, "is_deleted": false}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return "", utils.NotFoundf("file not found")
	} else if err != nil {
		return "", utils.Internalf(err, "failed to look up file")
	}
	return s.GetDownloadURL(ctx, uid, item.ID.Hex())
}

// downloadURLForItem returns the cached signed URL while valid, otherwise
// signs a fresh one and persists the cache. The cache is an optimization
// only; correctness never depends on it.
func (s *VaultService) downloadURLForItem(ctx context.Context, item *models.VaultItem) (string, error) {
	now := time.Now().UTC()
	if item.CachedURL != "" && item.CachedURLExpiry != nil && item.CachedURLExpiry.After(now.Add(5*time.Minute)) {
		return item.CachedURL, nil
	}

	url, err := s.storage.GenerateDownloadURL(ctx, item.StorageProvider, item.StorageKey, storage.DefaultDownloadTTL)
	if err != nil {
		return "", utils.Internalf(err, "failed to generate download URL")
	}

	expiry := now.Add(storage.DefaultDownloadTTL)
	if _, err := s.items.UpdateOne(ctx, bson.M{"_id": item.ID}, bson.M{"$set": bson.M{
		"cached_url":        url,
		"cached_url_expiry": expiry,
	}}); err != nil {
		s.logger.Warnw("failed to persist cached download URL", "item", item.ID.Hex(), "error", err)
	}
	return url, nil
}

// ProxyUpload streams an upload body to the backend for tickets whose
// provider cannot presign PUT URLs. The key must belong to a pending upload
// owned by uid.
func (s *VaultService) ProxyUpload(ctx context.Context, uid, key, contentType string, body io.Reader) error {
	var item models.VaultItem
	err := s.items.FindOne(ctx, bson.M{
		"storage_key":    key,
		"owner_id":       uid,
		"upload_pending": true,
	}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return utils.NotFoundf("no pending upload for this key")
	} else if err != nil {
		return utils.Internalf(err, "failed to look up pending upload")
	}

	if err := s.storage.Upload(ctx, item.StorageProvider, key, contentType, body); err != nil {
		return utils.Internalf(err, "failed to store upload")
	}
	return nil
}

// GetItem loads any item (live or trashed) by id.
func (s *VaultService) GetItem(ctx context.Context, itemID string) (*models.VaultItem, error) {
	objID, err := primitive.ObjectIDFromHex(itemID)
	if err != nil {
		return nil, utils.InvalidArgumentf("invalid item ID")
	}
	return s.getByObjectID(ctx, objID)
}

func (s *VaultService) getByObjectID(ctx context.Context, id primitive.ObjectID) (*models.VaultItem, error) {
	var item models.VaultItem
	err := s.items.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NotFoundf("item not found")
	} else if err != nil {
		return nil, utils.Internalf(err, "failed to fetch item")
	}
	return &item, nil
}

// resolveParentForWrite loads the destination folder and verifies uid may
// create content inside it. A nil/empty parent means the root, which is
// always writable by its owner.
func (s *VaultService) resolveParentForWrite(ctx context.Context, uid string, parentID *string) (*models.VaultItem, error) {
	if parentID == nil || *parentID == "" {
		return nil, nil
	}
	parent, err := s.GetItem(ctx, *parentID)
	if err != nil {
		return nil, utils.NotFoundf("parent folder not found")
	}
	if !parent.IsFolder() || parent.IsDeleted {
		return nil, utils.NotFoundf("parent folder not found")
	}
	if err := s.access.Check(parent, uid, models.AccessWrite); err != nil {
		return nil, err
	}
	return parent, nil
}

func (s *VaultService) checkStorageQuota(ctx context.Context, uid string, additional int64) error {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"_id": uid}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return utils.NotFoundf("user not found")
	} else if err != nil {
		return utils.Internalf(err, "failed to load user")
	}

	limit := user.MaxStorage
	if limit <= 0 {
		limit = s.maxStorage
	}
	if limit > 0 && user.UsedStorage+additional > limit {
		return utils.ResourceExhaustedf("upload would exceed storage quota of %d bytes", limit)
	}
	return nil
}

func mimeTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".zip":
		return "application/zip"
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}
