package albion

// ChunkItems splits item ids into consecutive batches of at most size ids.
// The prices endpoint caps the number of ids per request.
// ["T6_A", "T6_B", "T6_C"], 2 -> [["T6_A", "T6_B"], ["T6_C"]]
func ChunkItems(items []string, size int) [][]string {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 || size >= len(items) {
		return [][]string{items}
	}

	chunks := make([][]string, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		chunks = append(chunks, items[i:end])
	}
	return chunks
}
