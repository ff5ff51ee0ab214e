package digitnet

import (
	"sync"
)

var (
	iterMu   sync.Mutex
	iterPool = make(map[int]*sync.Pool)
)

func borrowIterator(m int) [][]float32 {
	iterMu.Lock()
	p, ok := iterPool[m]
	iterMu.Unlock()
	if ok {
		return p.Get().([][]float32)
	}
	return make([][]float32, m)
}

// ReturnIterator returns an iterator made by MakeIterator. The iterator must not be used afterwards.
func ReturnIterator(m int, it [][]float32) {
	for i := range it {
		it[i] = nil // do not pin the image
	}
	iterMu.Lock()
	p, ok := iterPool[m]
	if !ok {
		p = &sync.Pool{
			New: func() interface{} { return make([][]float32, m) },
		}
		iterPool[m] = p
	}
	iterMu.Unlock()
	p.Put(it)
}
