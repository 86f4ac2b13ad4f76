package dedupe

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*inMemoryDeduper)

// WithExpectedSize pre-sizes the seen set.
func WithExpectedSize(n int) Option {
	return func(d *inMemoryDeduper) {
		if n > 0 {
			d.hint = n
		}
	}
}

// WithKeyFunc normalizes keys before they are compared, e.g. to ignore
// stray whitespace in hand-typed identifiers.
func WithKeyFunc(fn func(string) string) Option {
	return func(d *inMemoryDeduper) {
		if fn != nil {
			d.keyFunc = fn
		}
	}
}
