package cache

// Settings is the admin API payload for retuning store policies. Zero fields
// leave the current value untouched.
type Settings struct {
	ResponsesTTLSeconds  int `json:"responses_ttl_seconds"`
	ResponsesMaxSize     int `json:"responses_max_size"`
	SearchesTTLSeconds   int `json:"searches_ttl_seconds"`
	SearchesMaxSize      int `json:"searches_max_size"`
	EmbeddingsTTLSeconds int `json:"embeddings_ttl_seconds"`
	EmbeddingsMaxSize    int `json:"embeddings_max_size"`
}

// ClearRequest selects which stores to drop. Empty means every store.
type ClearRequest struct {
	Stores []StoreType `json:"stores"`
}

// InvalidateScopeRequest targets every entry of one business scope.
type InvalidateScopeRequest struct {
	ScopeID string `json:"scope_id"`
}
