package gzidx

import (
	"bufio"
	"io"
	"os"

	"github.com/coreos/gzidx/internal/rawflate"
)

// Reader is the extractor / reader handle of spec.md §4.5 (C5): it owns
// one open compressed file and one loaded index, and tracks a logical
// offset in uncompressed coordinates. A Reader is single-owner; concurrent
// calls on the same Reader from multiple goroutines are undefined.
type Reader struct {
	f      *os.File
	idx    *Index
	offset int64
	closed bool
}

// Open opens the gzip file at path and loads its sidecar index
// (path+".idx"). The returned Reader starts with a logical offset of 0.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrap(Open, err)
	}

	idx, err := readIndex(path + idxSuffix)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Reader{f: f, idx: idx}, nil
}

// Close releases the Reader's file handle. Closing an already-closed
// Reader is a no-op.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return wrap(Open, r.f.Close())
}

// Seek sets the reader's logical uncompressed offset. It does not
// validate n against the stream length and never errors.
func (r *Reader) Seek(n int64) {
	r.offset = n
}

// Tell returns the reader's current logical uncompressed offset.
func (r *Reader) Tell() int64 {
	return r.offset
}

// Read decodes up to len(buf) uncompressed bytes starting at the current
// logical offset, advancing it by the number of bytes written. It returns
// a negative count on decode or I/O failure, in which case the logical
// offset is left unchanged (spec.md §4.5, §7).
func (r *Reader) Read(buf []byte) (int, error) {
	if len(buf) <= 0 {
		return 0, nil
	}

	p, ok := r.idx.lookup(r.offset)
	if !ok {
		return 0, nil
	}

	seekPos := p.in
	if p.bits > 0 {
		seekPos--
	}
	if _, err := r.f.Seek(seekPos, io.SeekStart); err != nil {
		return -1, wrap(ReadErr, err)
	}

	br := bufio.NewReader(r.f)
	var primeByte byte
	if p.bits > 0 {
		b, err := br.ReadByte()
		if err != nil {
			return -1, wrap(ReadErr, err)
		}
		primeByte = b
	}

	dec := rawflate.NewRestartReader(br, int(p.bits), primeByte, p.window[:])

	skip := r.offset - p.out
	throwaway := make([]byte, rawflate.WindowSize)
	for skip > 0 {
		n := int64(len(throwaway))
		if skip < n {
			n = skip
		}
		got, err := dec.Read(throwaway[:n])
		skip -= int64(got)
		if err != nil {
			if err == io.EOF {
				return 0, nil
			}
			return -1, wrap(Data, err)
		}
		if got == 0 {
			return 0, nil
		}
	}

	var total int
	for total < len(buf) {
		n, err := dec.Read(buf[total:])
		total += n
		if err != nil {
			if err == io.EOF {
				r.offset += int64(total)
				return total, nil
			}
			return -1, wrap(Data, err)
		}
		if n == 0 {
			break
		}
	}

	r.offset += int64(total)
	return total, nil
}
