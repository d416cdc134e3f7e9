package router

// EmbeddingHint is an optional routing suggestion from a similarity
// index.
type EmbeddingHint struct {
	Decision Decision
	Reason   string
}

// EmbeddingRouter is a placeholder for embedding-based routing. It
// returns no hint until an embedding store is wired in; the merge still
// honors a hint if one ever appears.
type EmbeddingRouter struct{}

// NewEmbeddingRouter creates the stub embedding router.
func NewEmbeddingRouter() *EmbeddingRouter {
	return &EmbeddingRouter{}
}

// Suggest returns a routing hint for the query, or nil.
func (e *EmbeddingRouter) Suggest(_ string) *EmbeddingHint {
	return nil
}
