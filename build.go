package gzidx

import (
	"bufio"
	"io"
	"os"

	"github.com/coreos/pkg/capnslog"

	"github.com/coreos/gzidx/internal/gzheader"
	"github.com/coreos/gzidx/internal/rawflate"
)

var plog = capnslog.NewPackageLogger("github.com/coreos/gzidx", "gzidx")

// span is the target uncompressed-byte distance between access points
// (spec.md, GLOSSARY: SPAN).
const span = 1 << 20

// BuildIndex performs a single forward decompression pass over the gzip
// (or zlib) file at path and returns an index of access points sufficient
// to restart DEFLATE at span-separated block boundaries (spec.md §4.3,
// C3). Only the first member of a concatenated gzip file is indexed.
func BuildIndex(path string) (*Index, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, wrap(Open, err)
	}
	defer in.Close()

	br := bufio.NewReader(in)
	hdr, err := gzheader.Sniff(br)
	if err != nil {
		return nil, wrap(Data, err)
	}

	dec := rawflate.NewReader(br)

	idx := newIndex()
	idx.append(point{out: 0, in: hdr.Length, bits: 0})
	last := int64(0)

	var totalRead int64
	var points int
	for {
		final, berr := dec.NextBoundary()
		if berr != nil {
			if berr == io.EOF {
				break
			}
			if berr == io.ErrUnexpectedEOF && totalRead == 0 {
				return nil, &Error{Kind: Data, Err: berr}
			}
			return nil, wrap(Data, berr)
		}

		compOff, outOff, bits := dec.Offsets()
		totalRead = outOff

		if final {
			// No successor block: resuming from here would be
			// meaningless, so no access point is recorded.
			continue
		}

		if outOff-last > span {
			idx.append(point{
				out:    outOff,
				in:     hdr.Length + compOff,
				bits:   int32(bits),
				window: dec.Window(),
			})
			last = outOff
			points++
			plog.Debugf("access point #%d at uncompressed offset %d (compressed %d, %d bits)", points, outOff, hdr.Length+compOff, bits)
		}
	}

	if hdr.Format == gzheader.Gzip {
		crc, size := dec.Digest()
		if err := gzheader.ReadGzipTrailer(br, crc, uint32(size)); err != nil {
			return nil, &Error{Kind: Data, Err: err}
		}
	}

	idx.trim()
	plog.Infof("built index for %s: %d access points over %d uncompressed bytes", path, idx.Len(), totalRead)
	return idx, nil
}
