package replay

// Option applies a configuration option to the in-memory guard.
type Option func(*inMemoryGuard)

// WithMaxSize bounds the number of nonces kept in memory.
func WithMaxSize(size int) Option {
	return func(g *inMemoryGuard) {
		if size > 0 {
			g.maxSize = size
		}
	}
}
