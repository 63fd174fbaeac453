package gzidx

import "github.com/coreos/gzidx/internal/rawflate"

// windowSize is the size of the dictionary captured at every access
// point, mirroring rawflate.WindowSize (32 KiB, DEFLATE's maximum
// back-reference distance).
const windowSize = rawflate.WindowSize

// point is one resumable DEFLATE restart state (spec.md §3, C1).
// Immutable after construction; copied by value into an Index.
type point struct {
	out    int64              // uncompressed offset this point restarts at
	in     int64              // compressed offset of the first whole unconsumed byte
	bits   int32              // 0-7: leading bits of the byte at in-1 still to feed
	window [windowSize]byte   // 32 KiB of output immediately preceding out
}
