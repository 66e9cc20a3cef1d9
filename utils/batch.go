package utils

// MaxBatchOps is the per-batch write ceiling used when chunking bulk
// document operations. Kept under the provider's 500-op limit.
const MaxBatchOps = 490

// Chunk splits items into slices of at most size elements. Chunks share the
// backing array with the input.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
