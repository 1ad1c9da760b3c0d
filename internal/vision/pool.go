package vision

import "sync"

// KeyPool holds the ordered API credentials and the process-wide rotation
// cursor. The cursor survives across calls so load spreads over the pool
// instead of always preferring the first key.
type KeyPool struct {
	mu    sync.Mutex
	keys  []string
	index int
}

// NewKeyPool creates a pool from the configured credentials.
func NewKeyPool(keys []string) *KeyPool {
	return &KeyPool{keys: keys}
}

// Size returns the number of credentials in the pool.
func (p *KeyPool) Size() int {
	return len(p.keys)
}

// Current returns the credential at the rotation cursor.
func (p *KeyPool) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return ""
	}
	return p.keys[p.index]
}

// Rotate advances the cursor to the next credential, wrapping around, and
// returns it. Safe for concurrent callers; no ordering of which request gets
// which key is guaranteed.
func (p *KeyPool) Rotate() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return ""
	}
	p.index = (p.index + 1) % len(p.keys)
	return p.keys[p.index]
}
