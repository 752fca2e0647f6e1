package models

// PendingFile is an uploaded or directory-resolved document awaiting
// ingestion. Ownership transfers to the coordinator at submission.
type PendingFile struct {
	Name    string
	Content []byte
}

// ChunkDocument is a single text span produced by the chunker, tagged with
// the file it came from. Consumed immediately by the vector store.
type ChunkDocument struct {
	Text   string
	Source string
}

// SearchResult is one ranked match from the vector index. Score is cosine
// distance in [0, 2]: 0 means identical, larger means less similar.
type SearchResult struct {
	Document string  `json:"document"`
	Score    float64 `json:"score"`
	Content  string  `json:"content"`
}
