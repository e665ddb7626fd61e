package archive

import (
	"sync"
)

const chunkSize = 32 * 1024 // 32KB bounded working buffer for streaming I/O

// bufferPool provides reusable byte slices for entry streaming.
//
//nolint:gochecknoglobals
var bufferPool = sync.Pool{
	New: func() any {
		return make([]byte, chunkSize)
	},
}
