package repository

type options struct {
	expectedTeams int
}

// Option applies a configuration option to the MemoryStore.
type Option func(*options)

// WithExpectedTeams pre-sizes the store.
func WithExpectedTeams(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.expectedTeams = n
		}
	}
}
