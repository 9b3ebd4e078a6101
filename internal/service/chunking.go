package service

import "unicode"

// Chunk is one windowed slice of a larger text.
type Chunk struct {
	Text  string
	Start int // rune offset into the source text
	Index int // 0-based sequence position
}

// ChunkConfig controls document chunking. Size must exceed Overlap.
type ChunkConfig struct {
	Size    int
	Overlap int
}

// DefaultChunkConfig matches the ingestion policy for oversized documents.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    1000,
		Overlap: 200,
	}
}

// ChunkText splits text into ordered, overlapping windows of at most
// cfg.Size runes. A window boundary that would land mid-word backs off to
// the nearest preceding whitespace; only a window with no whitespace at all
// is cut hard. Consecutive chunks share cfg.Overlap runes of context.
// Empty input yields no chunks; input within cfg.Size yields exactly one.
// Deterministic for a given (text, cfg).
func ChunkText(text string, cfg ChunkConfig) []Chunk {
	if cfg.Size <= 0 || cfg.Overlap < 0 || cfg.Overlap >= cfg.Size {
		cfg = DefaultChunkConfig()
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= cfg.Size {
		return []Chunk{{Text: text, Start: 0, Index: 0}}
	}

	chunks := make([]Chunk, 0, len(runes)/(cfg.Size-cfg.Overlap)+1)
	start := 0
	for start < len(runes) {
		end := start + cfg.Size
		if end >= len(runes) {
			end = len(runes)
		} else {
			// Back off to a whitespace boundary so words stay whole. The
			// lookback spans the whole window; a window without any
			// whitespace is cut hard at Size.
			cut := end
			for i := end; i > start+1; i-- {
				if unicode.IsSpace(runes[i-1]) {
					cut = i
					break
				}
			}
			end = cut
		}

		chunks = append(chunks, Chunk{
			Text:  string(runes[start:end]),
			Start: start,
			Index: len(chunks),
		})

		if end >= len(runes) {
			break
		}

		next := end - cfg.Overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}
