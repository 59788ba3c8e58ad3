package signal

import "sync"

type poolKey struct {
	numChannels int
	length      int
}

// Pool reuses buffers of the same shape.
type Pool struct {
	numChannels int
	length      int
	sampleRate  int
	p           sync.Pool
}

var pools = struct {
	sync.Mutex
	m map[poolKey]*Pool
}{
	m: map[poolKey]*Pool{},
}

// GetPool returns pool for buffers of provided shape. Pools are cached,
// so calls with the same shape return the same instance.
func GetPool(numChannels, length int) *Pool {
	pools.Lock()
	defer pools.Unlock()
	k := poolKey{numChannels, length}
	if p, ok := pools.m[k]; ok {
		return p
	}
	p := &Pool{
		numChannels: numChannels,
		length:      length,
	}
	pools.m[k] = p
	return p
}

// Get returns zeroed buffer with the sample rate.
func (p *Pool) Get(sampleRate int) *Buffer {
	if v := p.p.Get(); v != nil {
		b := v.(*Buffer)
		b.ZeroOut()
		b.SampleRate = sampleRate
		return b
	}
	return NewBuffer(p.numChannels, p.length, sampleRate)
}

// Put returns buffer to the pool. Buffers of other shape are dropped.
func (p *Pool) Put(b *Buffer) {
	if b == nil || b.NumChannels() != p.numChannels || b.Len() != p.length {
		return
	}
	p.p.Put(b)
}
