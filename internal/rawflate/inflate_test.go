package rawflate

import (
	"bytes"
	"compress/flate"
	"hash/crc32"
	"io"
	"math/rand"
	"testing"
)

// deflateWithFlushes compresses data in chunkSize pieces, calling Flush
// after each one so the stream contains several block boundaries instead
// of a single block running end to end.
func deflateWithFlushes(t *testing.T, data []byte, chunkSize int) []byte {
	t.Helper()
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.BestSpeed)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(data); i += chunkSize {
		end := i + chunkSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := fw.Write(data[i:end]); err != nil {
			t.Fatal(err)
		}
		if err := fw.Flush(); err != nil {
			t.Fatal(err)
		}
	}
	if err := fw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// deflateWithoutFlush compresses data in one shot with no intermediate
// Flush calls, so block boundaries fall wherever the compressor's own
// block-splitting heuristics put them. Flush always emits a byte-aligned
// empty stored block as its sync marker (inflate.go's dataBlock zero-
// length case), so a suite built only from flushed fixtures can never
// observe bits > 0 at a boundary; this helper is what lets a test do so.
func deflateWithoutFlush(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := fw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func randomPayload(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	data := make([]byte, n)
	r.Read(data)
	return data
}

func TestReadFullStream(t *testing.T) {
	data := randomPayload(64*1024, 1)
	compressed := deflateWithFlushes(t, data, 4096)

	dec := NewReader(bytes.NewReader(compressed))
	got, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("decoded %d bytes, want %d bytes, content mismatch", len(got), len(data))
	}

	sum, size := dec.Digest()
	if size != int64(len(data)) {
		t.Fatalf("Digest size = %d, want %d", size, len(data))
	}
	if sum != crc32.ChecksumIEEE(data) {
		t.Fatalf("Digest crc = %x, want %x", sum, crc32.ChecksumIEEE(data))
	}
}

func TestNextBoundaryRestart(t *testing.T) {
	data := randomPayload(64*1024, 2)
	compressed := deflateWithFlushes(t, data, 4096)

	dec := NewReader(bytes.NewReader(compressed))
	var (
		gotBoundary                    bool
		compOff, outOff int64
		bits            int
		window          [WindowSize]byte
	)
	for {
		final, err := dec.NextBoundary()
		if err != nil {
			t.Fatalf("NextBoundary: %v", err)
		}
		c, o, b := dec.Offsets()
		if !final && o > 0 {
			compOff, outOff, bits = c, o, b
			window = dec.Window()
			gotBoundary = true
			break
		}
		if final {
			break
		}
	}
	if !gotBoundary {
		t.Fatal("never observed a non-final boundary")
	}

	var primeByte byte
	if bits > 0 {
		primeByte = compressed[compOff-1]
	}

	restart := NewRestartReader(bytes.NewReader(compressed[compOff:]), bits, primeByte, window[:])
	tail, err := io.ReadAll(restart)
	if err != nil {
		t.Fatalf("ReadAll after restart: %v", err)
	}
	want := data[outOff:]
	if !bytes.Equal(tail, want) {
		t.Fatalf("restart decoded %d bytes, want %d bytes starting at %d", len(tail), len(want), outOff)
	}
}

// TestNextBoundaryBitMisalignedRestart exercises the fractional-byte
// priming path: a stream compressed with no Flush calls, large enough to
// force several natural block splits, whose boundaries are not
// byte-aligned. It requires at least one captured boundary with
// bits > 0 and verifies that restarting from it with NewRestartReader
// decodes the remainder byte-identically.
func TestNextBoundaryBitMisalignedRestart(t *testing.T) {
	// A 4-symbol alphabet: fully random bytes would be written as
	// byte-aligned stored blocks, which never leave bits > 0.
	r := rand.New(rand.NewSource(4))
	alphabet := []byte{'A', 'C', 'G', 'T'}
	data := make([]byte, 512*1024)
	for i := range data {
		data[i] = alphabet[r.Intn(len(alphabet))]
	}
	compressed := deflateWithoutFlush(t, data)

	dec := NewReader(bytes.NewReader(compressed))
	var (
		found                           bool
		compOff, outOff int64
		bits            int
		window          [WindowSize]byte
	)
	for {
		final, err := dec.NextBoundary()
		if err != nil {
			t.Fatalf("NextBoundary: %v", err)
		}
		c, o, b := dec.Offsets()
		if !final && b > 0 {
			compOff, outOff, bits = c, o, b
			window = dec.Window()
			found = true
			break
		}
		if final {
			break
		}
	}
	if !found {
		t.Fatal("no bit-misaligned boundary observed; expected at least one without Flush")
	}

	primeByte := compressed[compOff-1]
	restart := NewRestartReader(bytes.NewReader(compressed[compOff:]), bits, primeByte, window[:])
	tail, err := io.ReadAll(restart)
	if err != nil {
		t.Fatalf("ReadAll after restart: %v", err)
	}
	want := data[outOff:]
	if !bytes.Equal(tail, want) {
		t.Fatalf("restart from bit-misaligned boundary (bits=%d) decoded %d bytes, want %d bytes starting at %d", bits, len(tail), len(want), outOff)
	}
}

func TestNextBoundaryReportsFinal(t *testing.T) {
	data := randomPayload(1024, 3)
	compressed := deflateWithFlushes(t, data, 4096)

	dec := NewReader(bytes.NewReader(compressed))
	sawFinal := false
	for {
		final, err := dec.NextBoundary()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextBoundary: %v", err)
		}
		if final {
			sawFinal = true
		}
	}
	if !sawFinal {
		t.Fatal("stream never reported a final boundary")
	}
}
