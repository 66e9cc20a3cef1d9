package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/pbkdf2"

	"vaultdrive/models"
	"vaultdrive/utils"
)

const (
	linkPasswordIterations = 10000
	linkPasswordKeyLen     = 32
	linkPasswordSaltLen    = 16
)

type ShareService struct {
	items  *mongo.Collection
	users  *mongo.Collection
	links  *mongo.Collection
	vault  *VaultService
	access *AccessService
	audit  *AuditService
	logger *zap.SugaredLogger
}

type ShareLinkOptions struct {
	ExpiresAt      *time.Time
	Password       string
	AllowDownload  bool
	MaxAccessCount *int64
}

type SharingInfo struct {
	ItemID     string             `json:"item_id"`
	OwnerID    string             `json:"owner_id"`
	IsOwner    bool               `json:"is_owner"`
	SharedWith []CollaboratorRef  `json:"shared_with"`
	ShareLinks []models.ShareLink `json:"share_links"`
}

type CollaboratorRef struct {
	UID   string             `json:"uid"`
	Level models.AccessLevel `json:"level"`
}

type ShareLinkAccess struct {
	ItemID      string          `json:"item_id"`
	Name        string          `json:"name"`
	Type        models.ItemType `json:"type"`
	Size        int64           `json:"size,omitempty"`
	MimeType    string          `json:"mime_type,omitempty"`
	DownloadURL string          `json:"download_url,omitempty"`
}

func NewShareService(db *mongo.Database, vault *VaultService, access *AccessService, audit *AuditService, logger *zap.SugaredLogger) *ShareService {
	return &ShareService{
		items:  db.Collection("vault_items"),
		users:  db.Collection("users"),
		links:  db.Collection("share_links"),
		vault:  vault,
		access: access,
		audit:  audit,
		logger: logger,
	}
}

// Share grants targetUIDs the given level on the item, and, when recursive
// is set on a folder, on every live descendant too. Granting is idempotent;
// granting a current write-collaborator at read downgrades them.
func (s *ShareService) Share(ctx context.Context, ownerUID, itemID string, targetUIDs []string, level models.AccessLevel, recursive bool) error {
	if !level.Valid() {
		return utils.InvalidArgumentf("invalid access level %q", level)
	}
	if len(targetUIDs) == 0 {
		return utils.InvalidArgumentf("no target users given")
	}

	item, err := s.vault.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if err := s.access.CheckOwner(item, ownerUID); err != nil {
		return err
	}

	targets := make([]string, 0, len(targetUIDs))
	for _, target := range targetUIDs {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if target == ownerUID {
			return utils.InvalidArgumentf("cannot share an item with yourself")
		}
		if err := s.users.FindOne(ctx, bson.M{"_id": target}).Err(); err == mongo.ErrNoDocuments {
			return utils.NotFoundf("user %s not found", target)
		} else if err != nil {
			return utils.Internalf(err, "failed to look up user %s", target)
		}
		targets = append(targets, target)
	}
	if len(targets) == 0 {
		return utils.InvalidArgumentf("no target users given")
	}

	if err := s.applyGrant(ctx, item, targets, level, recursive); err != nil {
		return err
	}

	for _, target := range targets {
		s.audit.Record(ctx, models.AuditLogEntry{
			ItemID:       item.ID,
			ActorID:      ownerUID,
			TargetUserID: target,
			Action:       models.AuditShare,
			Metadata: map[string]interface{}{
				"level":     string(level),
				"recursive": recursive,
			},
		})
	}
	return nil
}

// ShareWithFamily shares the item with every member of the owner's family
// group.
func (s *ShareService) ShareWithFamily(ctx context.Context, ownerUID, itemID string, level models.AccessLevel, recursive bool) error {
	var owner models.User
	err := s.users.FindOne(ctx, bson.M{"_id": ownerUID}).Decode(&owner)
	if err == mongo.ErrNoDocuments {
		return utils.NotFoundf("user not found")
	} else if err != nil {
		return utils.Internalf(err, "failed to load user")
	}
	if owner.FamilyGroupID == "" {
		return utils.FailedPreconditionf("you are not part of a family group")
	}

	cursor, err := s.users.Find(ctx, bson.M{
		"family_group_id": owner.FamilyGroupID,
		"_id":             bson.M{"$ne": ownerUID},
	})
	if err != nil {
		return utils.Internalf(err, "failed to list family members")
	}
	defer cursor.Close(ctx)

	var members []models.User
	if err := cursor.All(ctx, &members); err != nil {
		return utils.Internalf(err, "failed to decode family members")
	}
	if len(members) == 0 {
		return utils.FailedPreconditionf("your family group has no other members")
	}

	targets := make([]string, 0, len(members))
	for _, m := range members {
		targets = append(targets, m.UID)
	}
	return s.Share(ctx, ownerUID, itemID, targets, level, recursive)
}

// Revoke removes targetUID from the item's share sets, and, when recursive
// is set on a folder, from every descendant too. Descendants are matched by
// path alone so grants on collaborator-created items are removed as well.
// Revoking a user who was never shared is a no-op.
func (s *ShareService) Revoke(ctx context.Context, ownerUID, itemID, targetUID string, recursive bool) error {
	item, err := s.vault.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if err := s.access.CheckOwner(item, ownerUID); err != nil {
		return err
	}

	update := bson.M{"$pull": bson.M{
		"shared_with":           targetUID,
		"permissions.can_read":  targetUID,
		"permissions.can_write": targetUID,
	}}
	if _, err := s.items.UpdateOne(ctx, bson.M{"_id": item.ID}, update); err != nil {
		return utils.Internalf(err, "failed to revoke access")
	}
	if recursive && item.IsFolder() {
		if _, err := s.items.UpdateMany(ctx, SubtreeFilter(item.Path), update); err != nil {
			return utils.Internalf(err, "failed to revoke access on folder contents")
		}
	}

	s.audit.Record(ctx, models.AuditLogEntry{
		ItemID:       item.ID,
		ActorID:      ownerUID,
		TargetUserID: targetUID,
		Action:       models.AuditRevoke,
		Metadata: map[string]interface{}{
			"recursive": recursive,
		},
	})
	return nil
}

// GetSharingInfo reports the collaborator list and active share links for an
// item. Anyone who can read the item may look; mutations stay owner-only.
func (s *ShareService) GetSharingInfo(ctx context.Context, uid, itemID string) (*SharingInfo, error) {
	item, err := s.vault.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Check(item, uid, models.AccessRead); err != nil {
		return nil, err
	}

	info := BuildSharingInfo(item, uid)

	cursor, err := s.links.Find(ctx, bson.M{"item_id": item.ID})
	if err != nil {
		return nil, utils.Internalf(err, "failed to list share links")
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, &info.ShareLinks); err != nil {
		return nil, utils.Internalf(err, "failed to decode share links")
	}
	return info, nil
}

// BuildSharingInfo assembles the database-free part of a sharing report for
// the given viewer.
func BuildSharingInfo(item *models.VaultItem, uid string) *SharingInfo {
	return &SharingInfo{
		ItemID:     item.ID.Hex(),
		OwnerID:    item.OwnerID,
		IsOwner:    item.OwnerID == uid,
		SharedWith: CollaboratorLevels(item),
		ShareLinks: []models.ShareLink{},
	}
}

// CollaboratorLevels flattens an item's permission sets into one entry per
// collaborator at their effective level.
func CollaboratorLevels(item *models.VaultItem) []CollaboratorRef {
	refs := make([]CollaboratorRef, 0, len(item.SharedWith))
	for _, uid := range item.SharedWith {
		level := models.AccessRead
		if item.UserCanWrite(uid) {
			level = models.AccessWrite
		}
		refs = append(refs, CollaboratorRef{UID: uid, Level: level})
	}
	return refs
}

// CreateShareLink mints a token-addressable public link to the item.
func (s *ShareService) CreateShareLink(ctx context.Context, uid, itemID string, opts ShareLinkOptions) (*models.ShareLink, error) {
	item, err := s.vault.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.access.CheckOwner(item, uid); err != nil {
		return nil, err
	}
	if opts.ExpiresAt != nil && !opts.ExpiresAt.After(time.Now().UTC()) {
		return nil, utils.InvalidArgumentf("expiry must be in the future")
	}
	if opts.MaxAccessCount != nil && *opts.MaxAccessCount <= 0 {
		return nil, utils.InvalidArgumentf("max access count must be positive")
	}

	link := models.ShareLink{
		ShareID:        uuid.NewString(),
		ItemID:         item.ID,
		OwnerID:        uid,
		ExpiresAt:      opts.ExpiresAt,
		AllowDownload:  opts.AllowDownload,
		MaxAccessCount: opts.MaxAccessCount,
		CreatedAt:      time.Now().UTC(),
	}
	if opts.Password != "" {
		hash, err := HashLinkPassword(opts.Password)
		if err != nil {
			return nil, utils.Internalf(err, "failed to hash link password")
		}
		link.PasswordHash = hash
	}

	if _, err := s.links.InsertOne(ctx, link); err != nil {
		return nil, utils.Internalf(err, "failed to create share link")
	}

	s.audit.Record(ctx, models.AuditLogEntry{
		ItemID:  item.ID,
		ActorID: uid,
		Action:  models.AuditShareLinkCreate,
		Metadata: map[string]interface{}{
			"share_id":       link.ShareID,
			"allow_download": opts.AllowDownload,
		},
	})
	return &link, nil
}

// AccessShareLink resolves a public share token. When the link allows it and
// the item is a file, the response carries a signed download URL issued with
// the link owner's storage authority.
func (s *ShareService) AccessShareLink(ctx context.Context, shareID, password string) (*ShareLinkAccess, error) {
	var link models.ShareLink
	err := s.links.FindOne(ctx, bson.M{"share_id": shareID}).Decode(&link)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NotFoundf("share link not found")
	} else if err != nil {
		return nil, utils.Internalf(err, "failed to load share link")
	}

	if err := ValidateShareLink(&link, password, time.Now().UTC()); err != nil {
		return nil, err
	}

	item, err := s.vault.getByObjectID(ctx, link.ItemID)
	if err != nil {
		return nil, utils.NotFoundf("shared item no longer exists")
	}
	if item.IsDeleted {
		return nil, utils.NotFoundf("shared item no longer exists")
	}

	now := time.Now().UTC()
	if _, err := s.links.UpdateOne(ctx, bson.M{"_id": link.ID}, bson.M{
		"$inc": bson.M{"access_count": 1},
		"$set": bson.M{"last_accessed_at": now},
	}); err != nil {
		s.logger.Warnw("failed to bump share link access count", "share_id", shareID, "error", err)
	}

	resp := &ShareLinkAccess{
		ItemID:   item.ID.Hex(),
		Name:     item.Name,
		Type:     item.Type,
		Size:     item.Size,
		MimeType: item.MimeType,
	}
	if link.AllowDownload && item.Type == models.ItemTypeFile {
		url, err := s.vault.downloadURLForItem(ctx, item)
		if err != nil {
			return nil, err
		}
		resp.DownloadURL = url
	}

	s.audit.Record(ctx, models.AuditLogEntry{
		ItemID:  item.ID,
		ActorID: "public",
		Action:  models.AuditShareLinkAccess,
		Metadata: map[string]interface{}{
			"share_id": shareID,
		},
	})
	return resp, nil
}

// RevokeShareLink deletes a link by token. Owner-only.
func (s *ShareService) RevokeShareLink(ctx context.Context, uid, shareID string) error {
	res, err := s.links.DeleteOne(ctx, bson.M{"share_id": shareID, "owner_id": uid})
	if err != nil {
		return utils.Internalf(err, "failed to revoke share link")
	}
	if res.DeletedCount == 0 {
		return utils.NotFoundf("share link not found")
	}
	return nil
}

// ValidateShareLink checks expiry, access budget, and password. Pure so it
// can be tested without a database.
func ValidateShareLink(link *models.ShareLink, password string, now time.Time) error {
	if link.ExpiresAt != nil && now.After(*link.ExpiresAt) {
		return utils.FailedPreconditionf("share link has expired")
	}
	if link.MaxAccessCount != nil && link.AccessCount >= *link.MaxAccessCount {
		return utils.ResourceExhaustedf("share link access limit reached")
	}
	if link.PasswordHash != "" {
		if password == "" {
			return utils.PermissionDeniedf("password required")
		}
		if !VerifyLinkPassword(password, link.PasswordHash) {
			return utils.PermissionDeniedf("incorrect password")
		}
	}
	return nil
}

// HashLinkPassword derives a salted PBKDF2 hash, encoded as salt$hash hex.
func HashLinkPassword(password string) (string, error) {
	salt := make([]byte, linkPasswordSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := pbkdf2.Key([]byte(password), salt, linkPasswordIterations, linkPasswordKeyLen, sha256.New)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(key), nil
}

// VerifyLinkPassword checks a candidate password against a salt$hash value.
func VerifyLinkPassword(password, encoded string) bool {
	parts := strings.SplitN(encoded, "$", 2)
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	got := pbkdf2.Key([]byte(password), salt, linkPasswordIterations, linkPasswordKeyLen, sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

// applyGrant writes the grant to the item document, and, when asked, to the
// whole live subtree, with set-semantics updates so repeats are idempotent.
// The subtree match is by path only: items collaborators created inside the
// folder carry their own owner_id and must be granted too.
func (s *ShareService) applyGrant(ctx context.Context, item *models.VaultItem, targets []string, level models.AccessLevel, recursive bool) error {
	update := bson.M{
		"$addToSet": bson.M{
			"shared_with":          bson.M{"$each": targets},
			"permissions.can_read": bson.M{"$each": targets},
		},
	}
	if level == models.AccessWrite {
		update["$addToSet"].(bson.M)["permissions.can_write"] = bson.M{"$each": targets}
	} else {
		update["$pull"] = bson.M{"permissions.can_write": bson.M{"$in": targets}}
	}

	if _, err := s.items.UpdateOne(ctx, bson.M{"_id": item.ID}, update); err != nil {
		return utils.Internalf(err, "failed to share item")
	}
	if recursive && item.IsFolder() {
		filter := SubtreeFilter(item.Path)
		filter["is_deleted"] = false
		if _, err := s.items.UpdateMany(ctx, filter, update); err != nil {
			return utils.Internalf(err, "failed to share folder contents")
		}
	}
	return nil
}
