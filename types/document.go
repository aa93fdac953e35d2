package types

// Document is an uploaded PDF that finished ingestion.
type Document struct {
	ID         string `json:"id" bson:"_id"`
	Name       string `json:"name" bson:"name"`
	Locator    string `json:"locator" bson:"locator"`
	OwnerID    string `json:"owner_id" bson:"owner_id"`
	Namespace  string `json:"namespace" bson:"namespace"`
	PageCount  int    `json:"page_count" bson:"page_count"`
	ChunkCount int    `json:"chunk_count" bson:"chunk_count"`
	CreatedAt  int64  `json:"created_at" bson:"created_at"`
}

// Page is the extracted text of one PDF page. Numbers start at 1.
type Page struct {
	Number int
	Text   string
}

// Chunk is a bounded segment of a page ready for embedding.
type Chunk struct {
	ID         string
	Text       string
	PageNumber int
	// PageText is the whole page text, truncated to a byte budget.
	PageText string
}

type ChunkMetadata struct {
	Text       string `json:"text"`
	PageNumber int    `json:"pageNumber"`
}

// VectorRecord is what gets written into a namespace of the vector index.
type VectorRecord struct {
	ID       string
	Vector   []float32
	Metadata ChunkMetadata
}

// Match is a query hit. Metadata is nil when it was not requested.
type Match struct {
	ID       string
	Score    float32
	Metadata *ChunkMetadata
}

type IngestRequest struct {
	Locator string `json:"locator"`
	Name    string `json:"name"`
	OwnerID string `json:"owner_id"`
}

type DocumentList struct {
	Documents []Document `json:"documents"`
	Page      int        `json:"page"`
	Limit     int        `json:"limit"`
	Total     int64      `json:"total"`
}
