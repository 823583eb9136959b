package comm

import "sync"

// bufferPool recycles payload buffers by length. A buffer travels from sender
// to receiver and is returned once the receiver has copied it out.
type bufferPool struct {
	pools sync.Map // int -> *sync.Pool
}

func (p *bufferPool) get(n int) []float64 {
	v, ok := p.pools.Load(n)
	if !ok {
		v, _ = p.pools.LoadOrStore(n, &sync.Pool{
			New: func() interface{} {
				return make([]float64, n)
			},
		})
	}
	return v.(*sync.Pool).Get().([]float64)
}

func (p *bufferPool) put(buf []float64) {
	if v, ok := p.pools.Load(len(buf)); ok {
		v.(*sync.Pool).Put(buf)
	}
}

func (p *bufferPool) getAndCopy(src []float64) []float64 {
	dst := p.get(len(src))
	copy(dst, src)
	return dst
}
