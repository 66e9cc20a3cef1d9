package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vaultdrive/models"
	"vaultdrive/utils"
)

func sharedItem(owner string, grant func(*models.VaultItem)) *models.VaultItem {
	item := &models.VaultItem{OwnerID: owner, Type: models.ItemTypeFile}
	if grant != nil {
		grant(item)
	}
	return item
}

func TestAccessCheck(t *testing.T) {
	access := NewAccessService()

	tests := []struct {
		name     string
		item     *models.VaultItem
		uid      string
		level    models.AccessLevel
		wantCode utils.ErrorCode
	}{
		{
			name:  "owner always passes",
			item:  sharedItem("owner", nil),
			uid:   "owner",
			level: models.AccessWrite,
		},
		{
			name:     "stranger denied",
			item:     sharedItem("owner", nil),
			uid:      "stranger",
			level:    models.AccessRead,
			wantCode: utils.CodePermissionDenied,
		},
		{
			name: "read collaborator can read",
			item: sharedItem("owner", func(i *models.VaultItem) {
				i.Grant("alice", models.AccessRead)
			}),
			uid:   "alice",
			level: models.AccessRead,
		},
		{
			name: "read collaborator cannot write",
			item: sharedItem("owner", func(i *models.VaultItem) {
				i.Grant("alice", models.AccessRead)
			}),
			uid:      "alice",
			level:    models.AccessWrite,
			wantCode: utils.CodePermissionDenied,
		},
		{
			name: "write collaborator can write",
			item: sharedItem("owner", func(i *models.VaultItem) {
				i.Grant("alice", models.AccessWrite)
			}),
			uid:   "alice",
			level: models.AccessWrite,
		},
		{
			name: "write collaborator can read",
			item: sharedItem("owner", func(i *models.VaultItem) {
				i.Grant("alice", models.AccessWrite)
			}),
			uid:   "alice",
			level: models.AccessRead,
		},
		{
			name: "deleted item denies everyone including owner",
			item: sharedItem("owner", func(i *models.VaultItem) {
				i.IsDeleted = true
			}),
			uid:      "owner",
			level:    models.AccessRead,
			wantCode: utils.CodeNotFound,
		},
		{
			name: "deleted item denies collaborator",
			item: sharedItem("owner", func(i *models.VaultItem) {
				i.Grant("alice", models.AccessWrite)
				i.IsDeleted = true
			}),
			uid:      "alice",
			level:    models.AccessRead,
			wantCode: utils.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := access.Check(tt.item, tt.uid, tt.level)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantCode, utils.CodeOf(err))
		})
	}
}

func TestCheckOwner(t *testing.T) {
	access := NewAccessService()

	item := sharedItem("owner", func(i *models.VaultItem) {
		i.Grant("alice", models.AccessWrite)
	})

	assert.NoError(t, access.CheckOwner(item, "owner"))

	// Write-sharing never grants structural authority.
	err := access.CheckOwner(item, "alice")
	assert.Equal(t, utils.CodePermissionDenied, utils.CodeOf(err))

	item.IsDeleted = true
	err = access.CheckOwner(item, "owner")
	assert.Equal(t, utils.CodeNotFound, utils.CodeOf(err))
}
