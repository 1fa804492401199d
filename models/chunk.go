package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Chunk is a contiguous span of document text tagged with provenance.
// ChunkIndex is zero-based and contiguous within a (UserID, Source) group.
// The store returns chunks in arbitrary order; ChunkIndex is the only way
// to restore reading order, so order-sensitive consumers must sort by it.
type Chunk struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Text       string             `bson:"text" json:"text"`
	UserID     string             `bson:"user_id" json:"user_id"`
	Source     string             `bson:"source" json:"source"`
	ChunkIndex int                `bson:"chunk_index" json:"chunk_index"`
	Vector     []float32          `bson:"vector,omitempty" json:"-"`
}

// Collection names for the dual-index design. Retrieval chunks are small,
// overlapping and embedded; generation chunks are large and unembedded.
const (
	RetrievalCollection  = "retrieval_chunks"
	GenerationCollection = "generation_chunks"
)
