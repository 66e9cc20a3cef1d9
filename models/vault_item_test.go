package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantReadThenWrite(t *testing.T) {
	item := &VaultItem{OwnerID: "owner"}

	item.Grant("alice", AccessRead)
	require.True(t, item.IsSharedWith("alice"))
	assert.True(t, item.UserCanRead("alice"))
	assert.False(t, item.UserCanWrite("alice"))

	item.Grant("alice", AccessWrite)
	assert.True(t, item.UserCanRead("alice"))
	assert.True(t, item.UserCanWrite("alice"))
}

func TestGrantIsIdempotent(t *testing.T) {
	item := &VaultItem{OwnerID: "owner"}

	item.Grant("alice", AccessWrite)
	item.Grant("alice", AccessWrite)
	item.Grant("alice", AccessWrite)

	assert.Len(t, item.SharedWith, 1)
	assert.Len(t, item.Permissions.CanRead, 1)
	assert.Len(t, item.Permissions.CanWrite, 1)
}

func TestGrantReadDowngradesWriter(t *testing.T) {
	item := &VaultItem{OwnerID: "owner"}

	item.Grant("alice", AccessWrite)
	require.True(t, item.UserCanWrite("alice"))

	item.Grant("alice", AccessRead)
	assert.True(t, item.UserCanRead("alice"))
	assert.False(t, item.UserCanWrite("alice"))
	assert.True(t, item.IsSharedWith("alice"))
}

func TestRevokeRemovesAllSets(t *testing.T) {
	item := &VaultItem{OwnerID: "owner"}
	item.Grant("alice", AccessWrite)
	item.Grant("bob", AccessRead)

	item.Revoke("alice")

	assert.False(t, item.IsSharedWith("alice"))
	assert.False(t, item.UserCanRead("alice"))
	assert.False(t, item.UserCanWrite("alice"))

	assert.True(t, item.IsSharedWith("bob"))
	assert.True(t, item.UserCanRead("bob"))
}

func TestRevokeUnknownUserIsNoop(t *testing.T) {
	item := &VaultItem{OwnerID: "owner"}
	item.Grant("alice", AccessRead)

	item.Revoke("nobody")

	assert.Equal(t, []string{"alice"}, item.SharedWith)
}

func TestWriteImpliesRead(t *testing.T) {
	item := &VaultItem{OwnerID: "owner"}
	// Simulate a legacy document where the uid landed only in can_write.
	item.SharedWith = []string{"alice"}
	item.Permissions.CanWrite = []string{"alice"}

	assert.True(t, item.UserCanRead("alice"))
}

func TestAccessLevelValid(t *testing.T) {
	assert.True(t, AccessRead.Valid())
	assert.True(t, AccessWrite.Valid())
	assert.False(t, AccessLevel("admin").Valid())
	assert.False(t, AccessLevel("").Valid())
}
