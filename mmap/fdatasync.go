package mmap

import "os"

// Fdatasync makes the data written to f (or to its mapping) durable, using the
// cheapest call the platform offers. File metadata such as modification time
// is not necessarily synced.
//
// If mapping is non-nil, it must be the mapped contents of f; on platforms
// where mapped pages are synced separately from the file, the mapping is
// flushed instead.
//
// A failed sync leaves the written file in an unknown state: the kernel may
// have dropped the dirty pages already. Treat the output as lost and write it
// again rather than retrying the sync.
func Fdatasync(f *os.File, mapping []byte) error {
	return fdatasync(f, mapping)
}
