// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rawflate is a fork of the standard library's compress/flate
// decompressor, descended from the inflate fork carried in coreos-pkg's
// zran/gzran packages. It adds the three hooks a restartable DEFLATE
// decoder needs that the stdlib reader does not expose: stopping exactly
// at block boundaries (the Z_BLOCK granularity of zlib's inflate), a
// snapshot of the 32 KiB sliding-window dictionary at that point, and
// priming the bit accumulator with a partial byte so decoding can resume
// mid-byte.
//
// Every other decode path (Huffman table construction, literal/length
// and distance decoding, history copies) is unmodified stdlib flate.
package rawflate

import (
	"bufio"
	"hash"
	"hash/crc32"
	"io"
	"strconv"
)

const (
	maxCodeLen = 16    // max length of Huffman code
	maxHist    = 32768 // max history required
	// The next three numbers come from the RFC, section 3.2.7.
	maxLit   = 286
	maxDist  = 32
	numCodes = 19 // number of codes in Huffman meta-code
)

// WindowSize is the size of the sliding-window dictionary a restart must
// be primed with.
const WindowSize = maxHist

// A CorruptInputError reports the presence of corrupt input at a given offset.
type CorruptInputError int64

func (e CorruptInputError) Error() string {
	return "rawflate: corrupt input before offset " + strconv.FormatInt(int64(e), 10)
}

// An InternalError reports an error in the flate code itself.
type InternalError string

func (e InternalError) Error() string { return "rawflate: internal error: " + string(e) }

// A ReadError reports an error encountered while reading input.
type ReadError struct {
	Offset int64
	Err    error
}

func (e *ReadError) Error() string {
	return "rawflate: read error at offset " + strconv.FormatInt(e.Offset, 10) + ": " + e.Err.Error()
}

func (e *ReadError) Unwrap() error { return e.Err }

// Reader is the input interface required by the decoder. If the supplied
// io.Reader does not also implement io.ByteReader, NewReader wraps it in a
// bufio.Reader.
type Reader interface {
	io.Reader
	io.ByteReader
}

func makeReader(r io.Reader) Reader {
	if rr, ok := r.(Reader); ok {
		return rr
	}
	return bufio.NewReader(r)
}

const (
	huffmanChunkBits  = 9
	huffmanNumChunks  = 1 << huffmanChunkBits
	huffmanCountMask  = 15
	huffmanValueShift = 4
)

type huffmanDecoder struct {
	min      int
	chunks   [huffmanNumChunks]uint32
	links    [][]uint32
	linkMask uint32
}

func (h *huffmanDecoder) init(bits []int) bool {
	if h.min != 0 {
		*h = huffmanDecoder{}
	}

	var count [maxCodeLen]int
	var min, max int
	for _, n := range bits {
		if n == 0 {
			continue
		}
		if min == 0 || n < min {
			min = n
		}
		if n > max {
			max = n
		}
		count[n]++
	}
	if max == 0 {
		return false
	}

	h.min = min
	var linkBits uint
	var numLinks int
	if max > huffmanChunkBits {
		linkBits = uint(max) - huffmanChunkBits
		numLinks = 1 << linkBits
		h.linkMask = uint32(numLinks - 1)
	}
	code := 0
	var nextcode [maxCodeLen]int
	for i := min; i <= max; i++ {
		if i == huffmanChunkBits+1 {
			link := code >> 1
			if huffmanNumChunks < link {
				return false
			}
			h.links = make([][]uint32, huffmanNumChunks-link)
			for j := uint(link); j < huffmanNumChunks; j++ {
				reverse := int(reverseByte[j>>8]) | int(reverseByte[j&0xff])<<8
				reverse >>= uint(16 - huffmanChunkBits)
				off := j - uint(link)
				h.chunks[reverse] = uint32(off<<huffmanValueShift + uint(i))
				h.links[off] = make([]uint32, 1<<linkBits)
			}
		}
		n := count[i]
		nextcode[i] = code
		code += n
		code <<= 1
	}

	for i, n := range bits {
		if n == 0 {
			continue
		}
		code := nextcode[n]
		nextcode[n]++
		chunk := uint32(i<<huffmanValueShift | n)
		reverse := int(reverseByte[code>>8]) | int(reverseByte[code&0xff])<<8
		reverse >>= uint(16 - n)
		if n <= huffmanChunkBits {
			for off := reverse; off < huffmanNumChunks; off += 1 << uint(n) {
				h.chunks[off] = chunk
			}
		} else {
			value := h.chunks[reverse&(huffmanNumChunks-1)] >> huffmanValueShift
			if value >= uint32(len(h.links)) {
				return false
			}
			linktab := h.links[value]
			reverse >>= huffmanChunkBits
			for off := reverse; off < numLinks; off += 1 << uint(n-huffmanChunkBits) {
				linktab[off] = chunk
			}
		}
	}
	return true
}

// Decompressor holds the state of a raw (unframed) DEFLATE decode.
type Decompressor struct {
	r       Reader
	roffset int64 // bytes consumed from r
	woffset int64 // bytes produced, flushed or not

	// Input bits, held in the low bits of b.
	b  uint32
	nb uint

	h1, h2 huffmanDecoder

	bits     [maxLit + maxDist]int
	codebits [numCodes]int

	// Sliding-window output history.
	hist  [maxHist]byte
	hp    int // next write position
	hw    int // bytes already handed to the caller
	hfull bool

	buf [4]byte

	step     func(*Decompressor)
	final    bool // true if the block currently being decoded is the last one
	boundary bool // true once a block has just completed
	err      error
	toRead   []byte
	hl, hd   *huffmanDecoder
	copyLen  int
	copyDist int

	digest hash.Hash32 // running CRC-32 of all output produced so far
}

// NewReader returns a decoder that reads a raw DEFLATE stream from r with
// no preset dictionary.
func NewReader(r io.Reader) *Decompressor {
	f := new(Decompressor)
	f.r = makeReader(r)
	f.step = (*Decompressor).nextBlock
	f.digest = crc32.NewIEEE()
	return f
}

// NewRestartReader returns a decoder primed to resume a DEFLATE stream at
// a block boundary: the top primeBits bits of primeByte are installed as
// the leading, not yet decoded bits of the stream (0 <= primeBits <= 7),
// and dict (which must be exactly WindowSize bytes, oldest first) is
// installed as the sliding-window dictionary, exactly as zlib's
// inflatePrime + inflateSetDictionary would for a Z_BLOCK restart.
func NewRestartReader(r io.Reader, primeBits int, primeByte byte, dict []byte) *Decompressor {
	f := new(Decompressor)
	f.r = makeReader(r)
	f.step = (*Decompressor).nextBlock
	if primeBits > 0 {
		f.b = uint32(primeByte) >> uint(8-primeBits)
		f.nb = uint(primeBits)
	}
	f.setDict(dict)
	f.digest = crc32.NewIEEE()
	return f
}

func (f *Decompressor) setDict(dict []byte) {
	if len(dict) > len(f.hist) {
		dict = dict[len(dict)-len(f.hist):]
	}
	f.hp = copy(f.hist[:], dict)
	if f.hp == len(f.hist) {
		f.hp = 0
		f.hfull = true
	}
	f.hw = f.hp
}

// atBoundary reports whether the decoder has reached a DEFLATE block
// boundary since the last call, and if so, whether that block was the
// stream's final block. It never advances past a boundary: Read and
// NextBoundary cooperate by checking and clearing f.boundary.
func (f *Decompressor) atBoundary() (final, yes bool) {
	if f.boundary {
		f.boundary = false
		return f.final, true
	}
	return false, false
}

// NextBoundary drives the decoder forward until it completes a DEFLATE
// block, returning once per completed block. final reports whether the
// completed block was the stream's last block; such a boundary has no
// successor and callers must not treat it as a restart candidate. err is
// io.EOF once the stream is fully drained.
func (f *Decompressor) NextBoundary() (final bool, err error) {
	for {
		if final, yes := f.atBoundary(); yes {
			return final, nil
		}
		if f.err != nil {
			return false, f.err
		}
		f.step(f)
	}
}

// Offsets returns the decoder's current compressed-byte and uncompressed-
// byte position, plus the number of unconsumed bits (0-7) of the byte
// preceding the compressed offset. Meaningful only when called right
// after NextBoundary reports a boundary.
func (f *Decompressor) Offsets() (compressedOffset, uncompressedOffset int64, bits int) {
	return f.roffset, f.woffset + int64(f.hp-f.hw), int(f.nb)
}

// Window returns a copy of the 32 KiB sliding-window dictionary as of the
// decoder's current position, oldest byte first. Bytes beyond what has
// actually been produced are zero and are never referenced by a restart
// that installs this window as a dictionary, since a DEFLATE stream
// cannot back-reference beyond its own produced output.
func (f *Decompressor) Window() [maxHist]byte {
	var w [maxHist]byte
	n := copy(w[:], f.hist[f.hp:])
	copy(w[n:], f.hist[:f.hp])
	return w
}

// Read implements io.Reader over the decoded output, draining whatever is
// buffered and otherwise driving the step machine forward. It does not
// stop at block boundaries; callers that need boundary granularity use
// NextBoundary instead.
func (f *Decompressor) Read(b []byte) (int, error) {
	for {
		if len(f.toRead) > 0 {
			n := copy(b, f.toRead)
			f.toRead = f.toRead[n:]
			return n, nil
		}
		if f.err != nil {
			return 0, f.err
		}
		if _, yes := f.atBoundary(); yes {
			// Nothing new to hand back yet; keep decoding.
			continue
		}
		f.step(f)
	}
}

func (f *Decompressor) nextBlock() {
	if f.final {
		if f.hw != f.hp {
			f.flush((*Decompressor).nextBlock)
			return
		}
		f.err = io.EOF
		return
	}
	for f.nb < 1+2 {
		if f.err = f.moreBits(); f.err != nil {
			return
		}
	}
	f.final = f.b&1 == 1
	f.b >>= 1
	typ := f.b & 3
	f.b >>= 2
	f.nb -= 1 + 2
	switch typ {
	case 0:
		f.dataBlock()
	case 1:
		f.hl = &fixedHuffmanDecoder
		f.hd = nil
		f.huffmanBlock()
	case 2:
		if f.err = f.readHuffman(); f.err != nil {
			break
		}
		f.hl = &f.h1
		f.hd = &f.h2
		f.huffmanBlock()
	default:
		f.err = CorruptInputError(f.roffset)
	}
}

var codeOrder = [...]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

func (f *Decompressor) readHuffman() error {
	for f.nb < 5+5+4 {
		if err := f.moreBits(); err != nil {
			return err
		}
	}
	nlit := int(f.b&0x1F) + 257
	if nlit > maxLit {
		return CorruptInputError(f.roffset)
	}
	f.b >>= 5
	ndist := int(f.b&0x1F) + 1
	f.b >>= 5
	nclen := int(f.b&0xF) + 4
	f.b >>= 4
	f.nb -= 5 + 5 + 4

	for i := 0; i < nclen; i++ {
		for f.nb < 3 {
			if err := f.moreBits(); err != nil {
				return err
			}
		}
		f.codebits[codeOrder[i]] = int(f.b & 0x7)
		f.b >>= 3
		f.nb -= 3
	}
	for i := nclen; i < len(codeOrder); i++ {
		f.codebits[codeOrder[i]] = 0
	}
	if !f.h1.init(f.codebits[0:]) {
		return CorruptInputError(f.roffset)
	}

	for i, n := 0, nlit+ndist; i < n; {
		x, err := f.huffSym(&f.h1)
		if err != nil {
			return err
		}
		if x < 16 {
			f.bits[i] = x
			i++
			continue
		}
		var rep int
		var nb uint
		var b int
		switch x {
		default:
			return InternalError("unexpected length code")
		case 16:
			rep = 3
			nb = 2
			if i == 0 {
				return CorruptInputError(f.roffset)
			}
			b = f.bits[i-1]
		case 17:
			rep = 3
			nb = 3
			b = 0
		case 18:
			rep = 11
			nb = 7
			b = 0
		}
		for f.nb < nb {
			if err := f.moreBits(); err != nil {
				return err
			}
		}
		rep += int(f.b & uint32(1<<nb-1))
		f.b >>= nb
		f.nb -= nb
		if i+rep > n {
			return CorruptInputError(f.roffset)
		}
		for j := 0; j < rep; j++ {
			f.bits[i] = b
			i++
		}
	}

	if !f.h1.init(f.bits[0:nlit]) || !f.h2.init(f.bits[nlit:nlit+ndist]) {
		return CorruptInputError(f.roffset)
	}
	return nil
}

func (f *Decompressor) huffmanBlock() {
	for {
		v, err := f.huffSym(f.hl)
		if err != nil {
			f.err = err
			return
		}
		var n uint
		var length int
		switch {
		case v < 256:
			f.hist[f.hp] = byte(v)
			f.hp++
			if f.hp == len(f.hist) {
				f.flush((*Decompressor).huffmanBlock)
				return
			}
			continue
		case v == 256:
			// End of block: a restart candidate lives exactly here.
			f.step = (*Decompressor).nextBlock
			f.boundary = true
			return
		case v < 265:
			length = v - (257 - 3)
			n = 0
		case v < 269:
			length = v*2 - (265*2 - 11)
			n = 1
		case v < 273:
			length = v*4 - (269*4 - 19)
			n = 2
		case v < 277:
			length = v*8 - (273*8 - 35)
			n = 3
		case v < 281:
			length = v*16 - (277*16 - 67)
			n = 4
		case v < 285:
			length = v*32 - (281*32 - 131)
			n = 5
		default:
			length = 258
			n = 0
		}
		if n > 0 {
			for f.nb < n {
				if err = f.moreBits(); err != nil {
					f.err = err
					return
				}
			}
			length += int(f.b & uint32(1<<n-1))
			f.b >>= n
			f.nb -= n
		}

		var dist int
		if f.hd == nil {
			for f.nb < 5 {
				if err = f.moreBits(); err != nil {
					f.err = err
					return
				}
			}
			dist = int(reverseByte[(f.b&0x1F)<<3])
			f.b >>= 5
			f.nb -= 5
		} else {
			if dist, err = f.huffSym(f.hd); err != nil {
				f.err = err
				return
			}
		}

		switch {
		case dist < 4:
			dist++
		case dist >= 30:
			f.err = CorruptInputError(f.roffset)
			return
		default:
			nb := uint(dist-2) >> 1
			extra := (dist & 1) << nb
			for f.nb < nb {
				if err = f.moreBits(); err != nil {
					f.err = err
					return
				}
			}
			extra |= int(f.b & uint32(1<<nb-1))
			f.b >>= nb
			f.nb -= nb
			dist = 1<<(nb+1) + 1 + extra
		}

		if dist > len(f.hist) {
			f.err = InternalError("bad history distance")
			return
		}
		if !f.hfull && dist > f.hp {
			f.err = CorruptInputError(f.roffset)
			return
		}

		f.copyLen, f.copyDist = length, dist
		if f.copyHist() {
			return
		}
	}
}

func (f *Decompressor) copyHist() bool {
	p := f.hp - f.copyDist
	if p < 0 {
		p += len(f.hist)
	}
	for f.copyLen > 0 {
		n := f.copyLen
		if x := len(f.hist) - f.hp; n > x {
			n = x
		}
		if x := len(f.hist) - p; n > x {
			n = x
		}
		forwardCopy(f.hist[:], f.hp, p, n)
		p += n
		f.hp += n
		f.copyLen -= n
		if f.hp == len(f.hist) {
			f.flush((*Decompressor).copyHuff)
			return true
		}
		if p == len(f.hist) {
			p = 0
		}
	}
	return false
}

func (f *Decompressor) copyHuff() {
	if f.copyHist() {
		return
	}
	f.huffmanBlock()
}

func (f *Decompressor) dataBlock() {
	f.nb = 0
	f.b = 0

	nr, err := io.ReadFull(f.r, f.buf[0:4])
	f.roffset += int64(nr)
	if err != nil {
		f.err = &ReadError{f.roffset, err}
		return
	}
	n := int(f.buf[0]) | int(f.buf[1])<<8
	nn := int(f.buf[2]) | int(f.buf[3])<<8
	if uint16(nn) != uint16(^n) {
		f.err = CorruptInputError(f.roffset)
		return
	}

	if n == 0 {
		// Zero-length stored block: a sync point, and a block boundary.
		f.boundary = true
		f.flush((*Decompressor).nextBlock)
		return
	}

	f.copyLen = n
	f.copyData()
}

func (f *Decompressor) copyData() {
	n := f.copyLen
	for n > 0 {
		m := len(f.hist) - f.hp
		if m > n {
			m = n
		}
		m, err := io.ReadFull(f.r, f.hist[f.hp:f.hp+m])
		f.roffset += int64(m)
		if err != nil {
			f.err = &ReadError{f.roffset, err}
			return
		}
		n -= m
		f.hp += m
		if f.hp == len(f.hist) {
			f.copyLen = n
			f.flush((*Decompressor).copyData)
			return
		}
	}
	f.boundary = true
	f.step = (*Decompressor).nextBlock
}

func (f *Decompressor) moreBits() error {
	c, err := f.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	f.roffset++
	f.b |= uint32(c) << f.nb
	f.nb += 8
	return nil
}

func (f *Decompressor) huffSym(h *huffmanDecoder) (int, error) {
	n := uint(h.min)
	for {
		for f.nb < n {
			if err := f.moreBits(); err != nil {
				return 0, err
			}
		}
		chunk := h.chunks[f.b&(huffmanNumChunks-1)]
		n = uint(chunk & huffmanCountMask)
		if n > huffmanChunkBits {
			chunk = h.links[chunk>>huffmanValueShift][(f.b>>huffmanChunkBits)&h.linkMask]
			n = uint(chunk & huffmanCountMask)
			if n == 0 {
				f.err = CorruptInputError(f.roffset)
				return 0, f.err
			}
		}
		if n <= f.nb {
			f.b >>= n
			f.nb -= n
			return int(chunk >> huffmanValueShift), nil
		}
	}
}

func (f *Decompressor) flush(step func(*Decompressor)) {
	f.toRead = f.hist[f.hw:f.hp]
	f.digest.Write(f.toRead)
	f.woffset += int64(f.hp - f.hw)
	f.hw = f.hp
	if f.hp == len(f.hist) {
		f.hp = 0
		f.hw = 0
		f.hfull = true
	}
	f.step = step
}

// Digest returns the running CRC-32 (IEEE) and byte count of all output
// produced so far. Meaningful once decoding has reached end of stream.
func (f *Decompressor) Digest() (sum uint32, size int64) {
	return f.digest.Sum32(), f.woffset
}

func forwardCopy(dst []byte, dstPos, srcPos, n int) {
	if dstPos-srcPos >= n {
		copy(dst[dstPos:dstPos+n], dst[srcPos:srcPos+n])
		return
	}
	for i := 0; i < n; i++ {
		dst[dstPos+i] = dst[srcPos+i]
	}
}
