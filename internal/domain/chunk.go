package domain

import "time"

// SourceChunk represents an embedded segment of a knowledge source.
// Chunks are immutable; an ingestion run replaces all chunks of a source.
type SourceChunk struct {
	ID            string
	SourceID      string
	AgentID       string
	ChunkIndex    int
	Content       string
	TokenEstimate int
	Embedding     []float32
	SourceName    string
	SourceType    SourceType
	SourceURL     string
	TotalChunks   int
	CreatedAt     time.Time
}

// ChunkMatch is a transient chunk row returned by the vector similarity
// search, scored in [0,1].
type ChunkMatch struct {
	Content    string
	SourceName string
	Similarity float64
}

// RetrievalResult is a transient ranked context snippet returned by retrieval.
// Similarity is set only for vector-search hits and lies in [0,1].
type RetrievalResult struct {
	Content     string
	SourceLabel string
	Similarity  *float64
}
