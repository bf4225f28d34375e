package epub

import (
	"fmt"
	"strconv"
)

// IDPool keeps every XML id used in one package unique.
// It is shared by Metadata, Manifest and Spine of a single Package.
type IDPool struct {
	used     map[string]struct{}
	counters map[poolKey]int
}

type poolKey struct {
	prefix string
	suffix string
}

// GenerateOption tunes IDPool.Generate.
type GenerateOption func(*generateConfig)

type generateConfig struct {
	start       int
	omitCounter bool
}

// StartAt sets the first counter value tried for a new (prefix, suffix) key.
func StartAt(n int) GenerateOption {
	return func(c *generateConfig) { c.start = n }
}

// OmitCounter tries prefix+suffix before falling back to numbered ids.
func OmitCounter() GenerateOption {
	return func(c *generateConfig) { c.omitCounter = true }
}

// NewIDPool creates an empty pool.
func NewIDPool() *IDPool {
	return &IDPool{
		used:     make(map[string]struct{}),
		counters: make(map[poolKey]int),
	}
}

// Reserve marks id as used. It fails with ErrDuplicateID if id is already taken.
func (p *IDPool) Reserve(id string) error {
	if _, ok := p.used[id]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}
	p.used[id] = struct{}{}
	return nil
}

// Used reports whether id is reserved.
func (p *IDPool) Used(id string) bool {
	_, ok := p.used[id]
	return ok
}

// Release returns id to the pool. Releasing an unknown id is a no-op.
func (p *IDPool) Release(id string) {
	delete(p.used, id)
}

// Generate returns a fresh id of the form prefix+N+suffix and reserves it.
// The counter for each (prefix, suffix) pair only moves forward and skips
// values reserved out of band.
func (p *IDPool) Generate(prefix, suffix string, opts ...GenerateOption) string {
	cfg := generateConfig{start: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.omitCounter {
		id := prefix + suffix
		if id != "" && !p.Used(id) {
			p.used[id] = struct{}{}
			return id
		}
	}

	key := poolKey{prefix: prefix, suffix: suffix}
	n, ok := p.counters[key]
	if !ok {
		n = cfg.start
	}
	for {
		id := prefix + strconv.Itoa(n) + suffix
		n++
		if !p.Used(id) {
			p.counters[key] = n
			p.used[id] = struct{}{}
			return id
		}
	}
}
