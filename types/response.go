package types

type DataResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

const (
	ProcessingStatusFetching  = "fetching"
	ProcessingStatusExtracted = "extracted"
	ProcessingStatusEmbedding = "embedding"
	ProcessingStatusIndexing  = "indexing"
)

type ProcessingDocumentStatus struct {
	Status          string  `json:"status"`
	Message         string  `json:"message"`
	Progress        float64 `json:"progress"`
	TotalPages      int     `json:"total_pages"`
	TotalChunks     int     `json:"total_chunks"`
	ProcessedChunks int     `json:"processed_chunks"`
}
