package gzidx

import (
	"bytes"
	"path/filepath"
	"testing"
)

func sampleIndex() *Index {
	idx := newIndex()
	idx.append(point{out: 0, in: 10, bits: 0})
	p := point{out: 1 << 20, in: 5000, bits: 5}
	p.window[0] = 0xAB
	p.window[windowSize-1] = 0xCD
	idx.append(p)
	idx.trim()
	return idx
}

func TestWriteReadIndexRoundTrip(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "payload.gz")

	want := sampleIndex()
	if err := WriteIndex(base, want); err != nil {
		t.Fatalf("WriteIndex: %v", err)
	}

	got, err := readIndex(base + idxSuffix)
	if err != nil {
		t.Fatalf("readIndex: %v", err)
	}
	if got.Len() != want.Len() {
		t.Fatalf("Len() = %d, want %d", got.Len(), want.Len())
	}
	for i := range want.points {
		if got.points[i] != want.points[i] {
			t.Fatalf("point %d mismatch: got %+v, want %+v", i, got.points[i], want.points[i])
		}
	}
}

func TestLoadIndexMatchesReadIndex(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "payload.gz")
	want := sampleIndex()
	if err := WriteIndex(base, want); err != nil {
		t.Fatalf("WriteIndex: %v", err)
	}

	got, err := LoadIndex(base + idxSuffix)
	if err != nil {
		t.Fatalf("LoadIndex: %v", err)
	}
	if got.Len() != want.Len() {
		t.Fatalf("Len() = %d, want %d", got.Len(), want.Len())
	}
}

// TestReadIndexBodyBadMagic covers spec.md §8 scenario S5.
func TestReadIndexBodyBadMagic(t *testing.T) {
	bad := []byte{'X', 'X', 'X', 'X', offSize, 0, 0, 0, 0, 0, 0, 0}
	if _, err := readIndexBody(bytes.NewReader(bad)); KindOf(err) != Incompatible {
		t.Fatalf("KindOf(err) = %v, want Incompatible", KindOf(err))
	}
}

func TestReadIndexBodyBadOffSize(t *testing.T) {
	bad := []byte{'Z', 'S', 'E', 'K', 4, 0, 0, 0, 0, 0, 0, 0}
	if _, err := readIndexBody(bytes.NewReader(bad)); KindOf(err) != Incompatible {
		t.Fatalf("KindOf(err) = %v, want Incompatible", KindOf(err))
	}
}

func TestReadIndexBodyDigestMismatch(t *testing.T) {
	var buf bytes.Buffer
	if err := writeIndex(&buf, sampleIndex()); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xFF // corrupt one byte of the blake2b trailer

	if _, err := readIndexBody(bytes.NewReader(raw)); KindOf(err) != Data {
		t.Fatalf("KindOf(err) = %v, want Data", KindOf(err))
	}
}

func TestReadIndexBodyTruncated(t *testing.T) {
	var buf bytes.Buffer
	if err := writeIndex(&buf, sampleIndex()); err != nil {
		t.Fatal(err)
	}
	truncated := buf.Bytes()[:20]
	if _, err := readIndexBody(bytes.NewReader(truncated)); KindOf(err) != ReadErr {
		t.Fatalf("KindOf(err) = %v, want ReadErr", KindOf(err))
	}
}
