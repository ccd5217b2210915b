package service

import (
	"regexp"
	"strings"
)

// ChunkConfig controls segmentation of source documents for embedding.
type ChunkConfig struct {
	// TargetTokens is the token budget for one chunk.
	TargetTokens int
	// OverlapTokens bounds the sentence tail carried into the next chunk.
	OverlapTokens int
	// MinChunkChars drops trailing fragments below this length.
	MinChunkChars int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		TargetTokens:  800,
		OverlapTokens: 150,
		MinChunkChars: 100,
	}
}

var (
	sentenceRe   = regexp.MustCompile(`[^.!?]+[.!?]+`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// estimateTokens approximates token count at ~4 characters per token.
func estimateTokens(text string) int {
	return len(text) / 4
}

func normalizeText(text string) string {
	clean := strings.ReplaceAll(text, "\r\n", "\n")
	clean = strings.ReplaceAll(clean, "\r", "\n")
	clean = blankLinesRe.ReplaceAllString(clean, "\n\n")
	return strings.TrimSpace(clean)
}

func splitParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

func splitSentences(text string) []string {
	matches := sentenceRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	sentences := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimSpace(m)
		if m != "" {
			sentences = append(sentences, m)
		}
	}
	return sentences
}

// overlapTail returns the longest suffix of complete sentences from chunk
// whose estimated token count stays within the overlap budget.
func overlapTail(chunk string, overlapTokens int) string {
	if overlapTokens <= 0 {
		return ""
	}
	sentences := sentenceRe.FindAllString(chunk, -1)
	if len(sentences) == 0 {
		return ""
	}

	tail := ""
	for i := len(sentences) - 1; i >= 0; i-- {
		candidate := strings.TrimSpace(sentences[i])
		if tail != "" {
			candidate = candidate + " " + tail
		}
		if estimateTokens(candidate) > overlapTokens {
			break
		}
		tail = candidate
	}
	return tail
}

// chunkText splits normalized document text into token-budgeted segments with
// sentence-level overlap between consecutive chunks.
func chunkText(text string, cfg ChunkConfig) []string {
	if cfg.TargetTokens <= 0 {
		cfg = DefaultChunkConfig()
	}

	clean := normalizeText(text)
	if clean == "" {
		return nil
	}

	chunks := make([]string, 0, 8)
	current := ""

	emit := func() {
		if strings.TrimSpace(current) != "" {
			chunks = append(chunks, strings.TrimSpace(current))
		}
		current = overlapTail(current, cfg.OverlapTokens)
	}

	appendPiece := func(piece, sep string) {
		if current == "" {
			current = piece
			return
		}
		current = current + sep + piece
	}

	// Oversized paragraphs fall back to sentence granularity.
	oversized := cfg.TargetTokens + cfg.TargetTokens/5

	for _, paragraph := range splitParagraphs(clean) {
		if estimateTokens(paragraph) > oversized {
			for _, sentence := range splitSentences(paragraph) {
				if current != "" && estimateTokens(current+" "+sentence) > cfg.TargetTokens {
					emit()
				}
				appendPiece(sentence, " ")
			}
			continue
		}

		if current != "" && estimateTokens(current+"\n\n"+paragraph) > cfg.TargetTokens {
			emit()
		}
		appendPiece(paragraph, "\n\n")
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	if len(chunks) <= 1 {
		return chunks
	}

	kept := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if len(c) >= cfg.MinChunkChars {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		// Never drop everything for non-empty input.
		return chunks[:1]
	}
	return kept
}
