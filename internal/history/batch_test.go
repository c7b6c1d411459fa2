package history

import "testing"

func TestChunk(t *testing.T) {
	tests := []struct {
		name       string
		length     int
		size       int
		wantChunks int
		wantLast   int // length of last chunk, 0 when no chunks
	}{
		{name: "empty input", length: 0, size: 500, wantChunks: 0},
		{name: "single item", length: 1, size: 500, wantChunks: 1, wantLast: 1},
		{name: "one short of full", length: 499, size: 500, wantChunks: 1, wantLast: 499},
		{name: "exactly one full chunk", length: 500, size: 500, wantChunks: 1, wantLast: 500},
		{name: "one over full", length: 501, size: 500, wantChunks: 2, wantLast: 1},
		{name: "two full chunks", length: 1000, size: 500, wantChunks: 2, wantLast: 500},
		{name: "size one", length: 3, size: 1, wantChunks: 3, wantLast: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]int, tt.length)
			for i := range items {
				items[i] = i
			}

			chunks := Chunk(items, tt.size)
			if len(chunks) != tt.wantChunks {
				t.Fatalf("Chunk() returned %d chunks, want %d", len(chunks), tt.wantChunks)
			}
			if tt.wantChunks == 0 {
				return
			}
			if got := len(chunks[len(chunks)-1]); got != tt.wantLast {
				t.Errorf("last chunk has %d items, want %d", got, tt.wantLast)
			}

			// Concatenation must reproduce the input exactly.
			var flat []int
			for _, c := range chunks {
				if len(c) > tt.size {
					t.Errorf("chunk of %d items exceeds size %d", len(c), tt.size)
				}
				flat = append(flat, c...)
			}
			if len(flat) != tt.length {
				t.Fatalf("flattened length %d, want %d", len(flat), tt.length)
			}
			for i, v := range flat {
				if v != i {
					t.Fatalf("order broken at index %d: got %d", i, v)
				}
			}
		})
	}
}

func TestChunkInvalidSize(t *testing.T) {
	if got := Chunk([]int{1, 2, 3}, 0); got != nil {
		t.Errorf("Chunk with size 0 = %v, want nil", got)
	}
	if got := Chunk([]int{1, 2, 3}, -1); got != nil {
		t.Errorf("Chunk with negative size = %v, want nil", got)
	}
}
