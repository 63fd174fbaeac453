package gzidx

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

var errCorruptSidecar = errors.New("gzidx: sidecar record digest mismatch")

// idxSuffix is appended to a compressed file's path to name its sidecar
// index file (spec.md §4.4, GLOSSARY: Sidecar).
const idxSuffix = ".idx"

// magic identifies a gzidx sidecar file.
var magic = [4]byte{'Z', 'S', 'E', 'K'}

// offSize is the on-disk width, in bytes, of an access point's out/in
// fields. SPEC_FULL.md resolves spec.md's open endianness question by
// always using 64-bit little-endian fields regardless of host width,
// which makes offSize a fixed constant rather than a host-dependent
// value — eliminating the original 32-on-64-bit incompatibility trap.
// The field is still written and checked so the on-disk layout, and the
// Incompatible error path, remain meaningful (spec.md §8 invariant 10).
const offSize = 8

// WriteIndex serializes idx to a gzip-compressed sidecar next to path
// (path+".idx"), per the fixed layout in spec.md §4.4.
func WriteIndex(path string, idx *Index) error {
	out, err := os.Create(path + idxSuffix)
	if err != nil {
		return wrap(Open, err)
	}
	defer out.Close()

	gw := gzip.NewWriter(out)

	if err := writeIndex(gw, idx); err != nil {
		gw.Close()
		return err
	}
	if err := gw.Close(); err != nil {
		return wrap(WriteErr, err)
	}
	return nil
}

func writeIndex(w io.Writer, idx *Index) error {
	hdr := make([]byte, 4+4+4)
	copy(hdr[0:4], magic[:])
	binary.LittleEndian.PutUint32(hdr[4:8], offSize)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(idx.Len()))
	if _, err := w.Write(hdr); err != nil {
		return wrap(WriteErr, err)
	}

	digest, err := blake2b.New256(nil)
	if err != nil {
		return wrap(Unknown, err)
	}

	rec := make([]byte, offSize+offSize+4+windowSize)
	for _, p := range idx.points {
		binary.LittleEndian.PutUint64(rec[0:8], uint64(p.out))
		binary.LittleEndian.PutUint64(rec[8:16], uint64(p.in))
		binary.LittleEndian.PutUint32(rec[16:20], uint32(p.bits))
		copy(rec[20:20+windowSize], p.window[:])
		if _, err := w.Write(rec); err != nil {
			return wrap(WriteErr, err)
		}
		digest.Write(rec)
	}

	// A trailer beyond what spec.md §4.4 defines: a blake2b-256 digest of
	// every record, so a reader can notice a sidecar whose records were
	// truncated or altered without waiting for a lookup to misbehave. An
	// implementation that only understands the byte-exact §4.4 layout
	// simply never reads these trailing bytes.
	if _, err := w.Write(digest.Sum(nil)); err != nil {
		return wrap(WriteErr, err)
	}
	return nil
}

// LoadIndex loads a sidecar index file directly, without an accompanying
// gzip file. It is the entry point for tools that only inspect an index
// (spec.md §6's `inspect` supplement) rather than extracting from it.
func LoadIndex(idxPath string) (*Index, error) {
	return readIndex(idxPath)
}

// readIndex loads a sidecar previously written by WriteIndex.
func readIndex(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrap(Open, err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, wrap(Zlib, err)
	}

	idx, err := readIndexBody(gr)
	if err != nil {
		gr.Close()
		return nil, err
	}
	if err := gr.Close(); err != nil {
		return nil, wrap(Zlib, err)
	}
	return idx, nil
}

func readIndexBody(r io.Reader) (*Index, error) {
	hdr := make([]byte, 4+4+4)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, wrap(ReadErr, err)
	}
	if hdr[0] != magic[0] || hdr[1] != magic[1] || hdr[2] != magic[2] || hdr[3] != magic[3] {
		return nil, &Error{Kind: Incompatible}
	}
	gotOffSize := binary.LittleEndian.Uint32(hdr[4:8])
	if gotOffSize != offSize {
		return nil, &Error{Kind: Incompatible}
	}
	count := binary.LittleEndian.Uint32(hdr[8:12])

	idx := &Index{points: make([]point, count)}
	digest, err := blake2b.New256(nil)
	if err != nil {
		return nil, wrap(Unknown, err)
	}
	rec := make([]byte, offSize+offSize+4+windowSize)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, rec); err != nil {
			return nil, wrap(ReadErr, err)
		}
		p := &idx.points[i]
		p.out = int64(binary.LittleEndian.Uint64(rec[0:8]))
		p.in = int64(binary.LittleEndian.Uint64(rec[8:16]))
		p.bits = int32(binary.LittleEndian.Uint32(rec[16:20]))
		copy(p.window[:], rec[20:20+windowSize])
		digest.Write(rec)
	}

	// The blake2b trailer is optional on read: a sidecar produced by a
	// strict §4.4 implementation simply won't have one.
	var want [blake2b.Size256]byte
	if n, err := io.ReadFull(r, want[:]); err == nil && n == len(want) {
		if !bytes.Equal(digest.Sum(nil), want[:]) {
			return nil, &Error{Kind: Data, Err: errCorruptSidecar}
		}
	}
	return idx, nil
}
