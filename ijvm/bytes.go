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

import "encoding/binary"

// word is the uniform 32-bit two's-complement value type used for stack
// slots, local variables, constants, and array elements.
type word = int32

// byteVal is an 8-bit unsigned value, as text and immediate operands are.
type byteVal = byte

// readU32 decodes a big-endian unsigned 32-bit integer starting at p[0].
func readU32(p []byte) uint32 {
	return binary.BigEndian.Uint32(p)
}

// readU16 decodes a big-endian unsigned 16-bit integer starting at p[0].
func readU16(p []byte) uint16 {
	return binary.BigEndian.Uint16(p)
}

// readI16 decodes a big-endian signed 16-bit integer starting at p[0].
// The range is -32768..32767.
func readI16(p []byte) int16 {
	return int16(readU16(p))
}
