// Copyright 2024 The ProbeChain Authors
// This file is part of the ijvm library.
//
// The ijvm library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ijvm library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ijvm library. If not, see <http://www.gnu.org/licenses/>.

package ijvm

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

// buildImage assembles a well-formed IJVM image from a constant pool and a
// text section, per §4.A/§6.
func buildImage(constants []word, text []byte) []byte {
	var buf bytes.Buffer
	var u32 [4]byte

	binary.BigEndian.PutUint32(u32[:], magicNumber)
	buf.Write(u32[:])

	binary.BigEndian.PutUint32(u32[:], 0) // reserved/version
	buf.Write(u32[:])

	constBytes := make([]byte, len(constants)*4)
	for i, c := range constants {
		binary.BigEndian.PutUint32(constBytes[i*4:], uint32(c))
	}
	binary.BigEndian.PutUint32(u32[:], uint32(len(constBytes)))
	buf.Write(u32[:])
	buf.Write(constBytes)

	binary.BigEndian.PutUint32(u32[:], 0) // reserved/origin
	buf.Write(u32[:])

	binary.BigEndian.PutUint32(u32[:], uint32(len(text)))
	buf.Write(u32[:])
	buf.Write(text)

	return buf.Bytes()
}

// newTestVM builds a VM directly from constants/text, wired to a discard
// input and a capturing output buffer.
func newTestVM(t *testing.T, constants []word, text []byte) (*VM, *strings.Builder) {
	t.Helper()
	out := &strings.Builder{}
	m, err := fromImage(buildImage(constants, text), strings.NewReader(""), out)
	if err != nil {
		t.Fatalf("fromImage: %v", err)
	}
	return m, out
}

// be16 encodes v as a big-endian u16 pair.
func be16(v uint16) []byte {
	return []byte{byte(v >> 8), byte(v)}
}

// i16 encodes a signed 16-bit branch offset as a big-endian pair.
func i16(v int16) []byte {
	return be16(uint16(v))
}

// cat concatenates byte slices into one.
func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
