package api

type EmbedDocumentRequest struct {
	Title  string
	Chunks []string
}

type DocumentEmbedding struct {
	Title  string
	Chunks []string
	Values [][]float32
}

// Len returns the number of embedded chunks.
func (e DocumentEmbedding) Len() int {
	return len(e.Values)
}
