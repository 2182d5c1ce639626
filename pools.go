package sdc

import "sync"

var encodeBufPool = &sync.Pool{
	New: func() any {
		return &bytesBuilder{Buf: make([]byte, 0, 4096)}
	},
}

func acquireBuilder() *bytesBuilder {
	return encodeBufPool.Get().(*bytesBuilder)
}

func releaseBuilder(bb *bytesBuilder) {
	const maxPooled = 1 << 20
	if cap(bb.Buf) > maxPooled {
		return
	}
	bb.Buf = bb.Buf[:0]
	encodeBufPool.Put(bb)
}
