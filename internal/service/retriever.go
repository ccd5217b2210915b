package service

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/cloo-solutions/agentchat/internal/domain"
)

// RetrieverConfig controls the staged retrieval pipeline.
type RetrieverConfig struct {
	SimilarityThreshold float64
	VectorLimit         int
	KeywordCandidates   int
	KeywordLimit        int
	RawSourceLimit      int
}

// DefaultRetrieverConfig provides the standard thresholds and caps.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		SimilarityThreshold: 0.5,
		VectorLimit:         3,
		KeywordCandidates:   20,
		KeywordLimit:        3,
		RawSourceLimit:      2,
	}
}

// RetrieverSourceRepository lists knowledge sources for an agent.
type RetrieverSourceRepository interface {
	ListByAgent(ctx context.Context, agentID string) ([]*domain.KnowledgeSource, error)
}

// RetrieverChunkRepository provides chunk lookups for retrieval.
type RetrieverChunkRepository interface {
	SearchSimilar(ctx context.Context, embedding []float32, sourceIDs []string, threshold float64, limit int) ([]*domain.ChunkMatch, error)
	ListBySources(ctx context.Context, sourceIDs []string, limit int) ([]*domain.SourceChunk, error)
}

// Retriever finds context snippets for a query through an ordered pipeline of
// named stages: vector similarity, keyword scoring, raw-source fallback. A
// failing stage falls through to the next rather than raising, so a chat turn
// always reaches prompt building.
type Retriever struct {
	sources  RetrieverSourceRepository
	chunks   RetrieverChunkRepository
	embedder EmbeddingClient
	cfg      RetrieverConfig
}

// NewRetriever creates a new Retriever instance
func NewRetriever(sources RetrieverSourceRepository, chunks RetrieverChunkRepository, embedder EmbeddingClient) *Retriever {
	return NewRetrieverWithConfig(sources, chunks, embedder, DefaultRetrieverConfig())
}

// NewRetrieverWithConfig creates a Retriever with explicit configuration.
func NewRetrieverWithConfig(sources RetrieverSourceRepository, chunks RetrieverChunkRepository, embedder EmbeddingClient, cfg RetrieverConfig) *Retriever {
	if cfg.VectorLimit <= 0 {
		cfg = DefaultRetrieverConfig()
	}
	return &Retriever{
		sources:  sources,
		chunks:   chunks,
		embedder: embedder,
		cfg:      cfg,
	}
}

// retrievalStage runs one fallback stage. done reports whether the pipeline
// should stop with the returned results.
type retrievalStage struct {
	name string
	run  func(ctx context.Context, query string, sources []*domain.KnowledgeSource) (results []domain.RetrievalResult, done bool)
}

// Retrieve returns ranked context snippets for the query, restricted to the
// agent's knowledge sources. An agent with no sources yields an empty slice,
// which drives the refusal-only prompt variant.
func (r *Retriever) Retrieve(ctx context.Context, agentID, query string) []domain.RetrievalResult {
	sources, err := r.sources.ListByAgent(ctx, agentID)
	if err != nil {
		log.Printf("retriever: listing sources for agent %s failed: %v", agentID, err)
		return []domain.RetrievalResult{}
	}
	if len(sources) == 0 {
		return []domain.RetrievalResult{}
	}

	stages := []retrievalStage{
		{name: "vector", run: r.stageVector},
		{name: "keyword", run: r.stageKeyword},
		{name: "raw_source", run: r.stageRawSource},
	}

	for _, stage := range stages {
		results, done := stage.run(ctx, query, sources)
		if done {
			return results
		}
		log.Printf("retriever: stage %s produced no results, falling through", stage.name)
	}

	return []domain.RetrievalResult{}
}

// stageVector embeds the query and runs the similarity search. Any embedding
// or search failure falls through to keyword scoring.
func (r *Retriever) stageVector(ctx context.Context, query string, sources []*domain.KnowledgeSource) ([]domain.RetrievalResult, bool) {
	embedding, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		log.Printf("retriever: query embedding failed: %v", err)
		return nil, false
	}

	matches, err := r.chunks.SearchSimilar(ctx, embedding, sourceIDs(sources), r.cfg.SimilarityThreshold, r.cfg.VectorLimit)
	if err != nil {
		log.Printf("retriever: similarity search failed: %v", err)
		return nil, false
	}
	if len(matches) == 0 {
		return nil, false
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > r.cfg.VectorLimit {
		matches = matches[:r.cfg.VectorLimit]
	}

	results := make([]domain.RetrievalResult, 0, len(matches))
	for _, m := range matches {
		similarity := clampSimilarity(m.Similarity)
		results = append(results, domain.RetrievalResult{
			Content:     m.Content,
			SourceLabel: m.SourceName,
			Similarity:  &similarity,
		})
	}
	return results, true
}

// stageKeyword scores up to KeywordCandidates chunks lexically against the
// query: +100 for containing the full phrase, +10 per matched token longer
// than two characters.
func (r *Retriever) stageKeyword(ctx context.Context, query string, sources []*domain.KnowledgeSource) ([]domain.RetrievalResult, bool) {
	chunks, err := r.chunks.ListBySources(ctx, sourceIDs(sources), r.cfg.KeywordCandidates)
	if err != nil {
		log.Printf("retriever: keyword candidate fetch failed: %v", err)
		return nil, false
	}

	type scored struct {
		chunk *domain.SourceChunk
		score int
	}

	queryLower := strings.ToLower(query)
	tokens := strings.Fields(queryLower)

	var ranked []scored
	for _, chunk := range chunks {
		contentLower := strings.ToLower(chunk.Content)

		score := 0
		if strings.Contains(contentLower, queryLower) {
			score += 100
		}
		for _, token := range tokens {
			if len(token) > 2 && strings.Contains(contentLower, token) {
				score += 10
			}
		}
		if score > 0 {
			ranked = append(ranked, scored{chunk: chunk, score: score})
		}
	}
	if len(ranked) == 0 {
		return nil, false
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > r.cfg.KeywordLimit {
		ranked = ranked[:r.cfg.KeywordLimit]
	}

	results := make([]domain.RetrievalResult, 0, len(ranked))
	for _, s := range ranked {
		results = append(results, domain.RetrievalResult{
			Content:     s.chunk.Content,
			SourceLabel: s.chunk.SourceName,
		})
	}
	return results, true
}

// stageRawSource returns the raw content of the first sources that have any,
// capped at RawSourceLimit. This is the terminal stage; it never falls through
// with sources present.
func (r *Retriever) stageRawSource(ctx context.Context, query string, sources []*domain.KnowledgeSource) ([]domain.RetrievalResult, bool) {
	results := make([]domain.RetrievalResult, 0, r.cfg.RawSourceLimit)
	for _, src := range sources {
		if strings.TrimSpace(src.Content) == "" {
			continue
		}
		results = append(results, domain.RetrievalResult{
			Content:     src.Content,
			SourceLabel: src.Name,
		})
		if len(results) >= r.cfg.RawSourceLimit {
			break
		}
	}
	return results, true
}

func sourceIDs(sources []*domain.KnowledgeSource) []string {
	ids := make([]string, 0, len(sources))
	for _, s := range sources {
		ids = append(ids, s.ID)
	}
	return ids
}

func clampSimilarity(similarity float64) float64 {
	if similarity < 0 {
		return 0
	}
	if similarity > 1 {
		return 1
	}
	return similarity
}
