package services

import (
	"vaultdrive/models"
	"vaultdrive/utils"
)

// AccessService decides owner/read/write/no-access for an item and a
// requesting identity. Structural mutations (rename, move, delete, purge,
// share, revoke) stay owner-only regardless of write shares: write-sharing
// grants content mutation, not structural or access-control mutation.
type AccessService struct{}

func NewAccessService() *AccessService {
	return &AccessService{}
}

// Check returns nil when uid holds the required level on the item.
// Soft-deleted items grant no access to anyone, the owner included.
func (s *AccessService) Check(item *models.VaultItem, uid string, level models.AccessLevel) error {
	if item.IsDeleted {
		return utils.NotFoundf("item is deleted")
	}
	if item.OwnerID == uid {
		return nil
	}
	if !item.IsSharedWith(uid) {
		return utils.PermissionDeniedf("no access to this item")
	}
	switch level {
	case models.AccessRead:
		if item.UserCanRead(uid) {
			return nil
		}
	case models.AccessWrite:
		if item.UserCanWrite(uid) {
			return nil
		}
	}
	return utils.PermissionDeniedf("insufficient %s permission", level)
}

// CheckOwner enforces the owner-only policy for structural mutations.
func (s *AccessService) CheckOwner(item *models.VaultItem, uid string) error {
	if item.IsDeleted {
		return utils.NotFoundf("item is deleted")
	}
	if item.OwnerID != uid {
		return utils.PermissionDeniedf("only the owner may perform this operation")
	}
	return nil
}
