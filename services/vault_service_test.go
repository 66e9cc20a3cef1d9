package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"vaultdrive/models"
)

func TestChildPath(t *testing.T) {
	assert.Equal(t, "/Documents", ChildPath("", "Documents"))
	assert.Equal(t, "/Documents/Taxes", ChildPath("/Documents", "Taxes"))
	assert.Equal(t, "/Documents/Taxes/2026.pdf", ChildPath("/Documents/Taxes", "2026.pdf"))
}

func TestDescendantRange(t *testing.T) {
	lo, hi := DescendantRange("/Documents")

	assert.Equal(t, "/Documents/", lo)

	// Every descendant path falls inside the half-open range; siblings with
	// the same prefix in their name do not.
	for _, path := range []string{"/Documents/a", "/Documents/Taxes/2026.pdf", "/Documents/zzz"} {
		assert.True(t, path >= lo && path < hi, "expected %q inside range", path)
	}
	for _, path := range []string{"/Documents", "/Documents2", "/Downloads/a"} {
		assert.False(t, path >= lo && path < hi, "expected %q outside range", path)
	}
}

func TestSubtreeFilterMatchesByPathAlone(t *testing.T) {
	filter := SubtreeFilter("/Family")

	// No owner constraint: a collaborator who uploads into a shared folder
	// owns the resulting document, and subtree operations on the folder must
	// still reach it.
	_, hasOwner := filter["owner_id"]
	assert.False(t, hasOwner)

	rng, ok := filter["path"].(bson.M)
	require.True(t, ok)
	lo := rng["$gte"].(string)
	hi := rng["$lt"].(string)

	inRange := func(path string) bool { return path >= lo && path < hi }

	// A five-document cascade: the folder's own children, a nested subfolder,
	// its file, and a collaborator-uploaded file all fall inside the range.
	for _, path := range []string{
		"/Family/budget.xlsx",
		"/Family/Photos",
		"/Family/Photos/trip.jpg",
		"/Family/Photos/2026",
		"/Family/upload-from-collaborator.txt",
	} {
		assert.True(t, inRange(path), "expected %q inside subtree", path)
	}
	assert.False(t, inRange("/Family"))
	assert.False(t, inRange("/FamilyArchive/old.txt"))
}

func TestRecomputeChildPaths(t *testing.T) {
	children := []models.VaultItem{
		{Name: "b.txt", Path: "/A/b.txt"},
		{Name: "Sub", Path: "/A/Sub"},
	}

	updated := RecomputeChildPaths("/A2", children)
	require.Len(t, updated, 2)
	assert.Equal(t, "/A2/b.txt", updated[0].Path)
	assert.Equal(t, "/A2/Sub", updated[1].Path)

	// Inputs are left untouched; the caller writes the returned copies.
	assert.Equal(t, "/A/b.txt", children[0].Path)

	// Recomputing under an unchanged parent is a fixed point.
	again := RecomputeChildPaths("/A2", updated)
	assert.Equal(t, updated, again)

	// Deeper levels chain through the already-updated parent path.
	grandchildren := RecomputeChildPaths(updated[1].Path, []models.VaultItem{
		{Name: "deep.txt", Path: "/A/Sub/deep.txt"},
	})
	assert.Equal(t, "/A2/Sub/deep.txt", grandchildren[0].Path)
}

func TestSortItemsFoldersFirst(t *testing.T) {
	items := []models.VaultItem{
		{Type: models.ItemTypeFile, Name: "a.txt"},
		{Type: models.ItemTypeFolder, Name: "zeta"},
		{Type: models.ItemTypeFile, Name: "b.txt"},
		{Type: models.ItemTypeFolder, Name: "alpha"},
	}

	SortItems(items)

	var got []string
	for _, it := range items {
		got = append(got, it.Name)
	}
	assert.Equal(t, []string{"alpha", "zeta", "a.txt", "b.txt"}, got)
}

func TestMimeTypeFor(t *testing.T) {
	assert.Equal(t, "image/jpeg", mimeTypeFor("photo.JPG"))
	assert.Equal(t, "application/pdf", mimeTypeFor("scan.pdf"))
	assert.Equal(t, "application/octet-stream", mimeTypeFor("archive.tar.xz"))
	assert.Equal(t, "application/octet-stream", mimeTypeFor("noextension"))
}
