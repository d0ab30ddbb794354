package stylist

import "go.uber.org/zap"

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	password string

	embedder  Embedder
	completer Completer

	keyPrefix        string
	vectorDimensions int
	hnswM            int
	hnswEFConstruct  int

	scanRetrieval     bool
	candidatePoolSize int
	resultLimit       int

	maxIterations int
	minResults    int

	logger *zap.Logger
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithEmbedder sets the text embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithCompleter sets the LLM completion provider used for query analysis
// and result verification. Required.
func WithCompleter(cp Completer) Option {
	return optionFunc(func(c *clientConfig) {
		c.completer = cp
	})
}

// WithKeyPrefix overrides the datastore key namespace.
// Default: "stylist:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithVectorDimensions sets the catalog embedding dimension.
// Defaults to 512.
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
// Defaults: M=32, EFConstruct=400.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithScanRetrieval switches candidate search from index pushdown to a
// client-side filter-then-score scan. Use when the backend index cannot
// serve KNN with pre-filters.
func WithScanRetrieval() Option {
	return optionFunc(func(c *clientConfig) {
		c.scanRetrieval = true
	})
}

// WithCandidatePool sets how many candidates each search pulls before
// ranking. Default: 100.
func WithCandidatePool(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.candidatePoolSize = size
	})
}

// WithResultLimit caps the ranked candidate list per search. Default: 10.
func WithResultLimit(limit int) Option {
	return optionFunc(func(c *clientConfig) {
		c.resultLimit = limit
	})
}

// WithMaxIterations bounds the analyze/search/verify refinement cycles per
// request. Default: 3.
func WithMaxIterations(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxIterations = n
	})
}

// WithMinResults sets the sufficiency threshold the verifier falls back to
// when the LLM verdict is unusable. Default: 3.
func WithMinResults(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.minResults = n
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
