package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultdrive/models"
	"vaultdrive/utils"
)

func TestLinkPasswordRoundTrip(t *testing.T) {
	hash, err := HashLinkPassword("hunter2")
	require.NoError(t, err)
	require.Contains(t, hash, "$")

	assert.True(t, VerifyLinkPassword("hunter2", hash))
	assert.False(t, VerifyLinkPassword("wrong", hash))
	assert.False(t, VerifyLinkPassword("", hash))
}

func TestLinkPasswordHashesAreSalted(t *testing.T) {
	first, err := HashLinkPassword("same-password")
	require.NoError(t, err)
	second, err := HashLinkPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, VerifyLinkPassword("same-password", first))
	assert.True(t, VerifyLinkPassword("same-password", second))
}

func TestVerifyLinkPasswordMalformedHash(t *testing.T) {
	assert.False(t, VerifyLinkPassword("pw", "no-separator"))
	assert.False(t, VerifyLinkPassword("pw", "zz$zz"))
	assert.False(t, VerifyLinkPassword("pw", ""))
}

func TestValidateShareLink(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	five := int64(5)

	hash, err := HashLinkPassword("secret")
	require.NoError(t, err)

	tests := []struct {
		name     string
		link     models.ShareLink
		password string
		wantCode utils.ErrorCode
	}{
		{
			name: "open link passes",
			link: models.ShareLink{},
		},
		{
			name: "unexpired link passes",
			link: models.ShareLink{ExpiresAt: &future},
		},
		{
			name:     "expired link fails",
			link:     models.ShareLink{ExpiresAt: &past},
			wantCode: utils.CodeFailedPrecondition,
		},
		{
			name: "under access budget passes",
			link: models.ShareLink{MaxAccessCount: &five, AccessCount: 4},
		},
		{
			name:     "access budget exhausted",
			link:     models.ShareLink{MaxAccessCount: &five, AccessCount: 5},
			wantCode: utils.CodeResourceExhausted,
		},
		{
			name:     "password required",
			link:     models.ShareLink{PasswordHash: hash},
			wantCode: utils.CodePermissionDenied,
		},
		{
			name:     "wrong password",
			link:     models.ShareLink{PasswordHash: hash},
			password: "guess",
			wantCode: utils.CodePermissionDenied,
		},
		{
			name:     "correct password passes",
			link:     models.ShareLink{PasswordHash: hash},
			password: "secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateShareLink(&tt.link, tt.password, now)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantCode, utils.CodeOf(err))
		})
	}
}

func TestBuildSharingInfo(t *testing.T) {
	item := &models.VaultItem{OwnerID: "owner"}
	item.Grant("bob", models.AccessRead)

	owner := BuildSharingInfo(item, "owner")
	assert.True(t, owner.IsOwner)
	assert.Equal(t, "owner", owner.OwnerID)
	require.Len(t, owner.SharedWith, 1)

	// A read collaborator sees the same report, flagged as not the owner.
	viewer := BuildSharingInfo(item, "bob")
	assert.False(t, viewer.IsOwner)
	assert.Equal(t, owner.SharedWith, viewer.SharedWith)
	assert.NotNil(t, viewer.ShareLinks)
}

func TestCollaboratorLevels(t *testing.T) {
	item := &models.VaultItem{OwnerID: "owner"}
	item.Grant("reader", models.AccessRead)
	item.Grant("writer", models.AccessWrite)

	refs := CollaboratorLevels(item)
	require.Len(t, refs, 2)

	byUID := map[string]models.AccessLevel{}
	for _, ref := range refs {
		byUID[ref.UID] = ref.Level
	}
	assert.Equal(t, models.AccessRead, byUID["reader"])
	assert.Equal(t, models.AccessWrite, byUID["writer"])
}
