// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rawflate

// reverseByte[x] is x with its bits reversed; huffman codes are read from
// the bitstream in the opposite order they appear in the encoder's tables.
var reverseByte [256]byte

// fixedHuffmanDecoder is the literal/length decoder for DEFLATE's type-1
// (fixed Huffman) blocks, per RFC 1951 section 3.2.6. Fixed blocks encode
// distances directly in 5 reversed bits rather than through a Huffman
// table, so no distance decoder is built here.
var fixedHuffmanDecoder huffmanDecoder

func init() {
	for i := 0; i < 256; i++ {
		var r byte
		for b := 0; b < 8; b++ {
			r <<= 1
			r |= byte(i>>uint(b)) & 1
		}
		reverseByte[i] = r
	}

	var bits [288]int
	for i := 0; i < 144; i++ {
		bits[i] = 8
	}
	for i := 144; i < 256; i++ {
		bits[i] = 9
	}
	for i := 256; i < 280; i++ {
		bits[i] = 7
	}
	for i := 280; i < 288; i++ {
		bits[i] = 8
	}
	if !fixedHuffmanDecoder.init(bits[:]) {
		panic("rawflate: failed to build fixed Huffman decoder")
	}
}
