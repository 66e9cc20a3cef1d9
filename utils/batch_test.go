package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunk(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	chunks := Chunk(items, 3)
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}, {7}}, chunks)

	assert.Len(t, Chunk(items, 10), 1)
	assert.Empty(t, Chunk([]int{}, 3))

	// A non-positive size yields nothing rather than panicking.
	assert.Nil(t, Chunk(items, 0))
}
