package history

// Chunk splits items into contiguous slices of at most size elements,
// preserving order. Concatenating the result reproduces items exactly.
// An empty input yields no chunks. The chunks share the backing array.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		chunks = append(chunks, items[i:end])
	}
	return chunks
}
