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
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// magicNumber is the required first 4 bytes of every IJVM image (§4.A, §6).
const magicNumber = 0x1DEADFAD

// scratchWords is the number of zero words pre-pushed onto the stack at
// load time, below any program-pushed value (§4.A).
const scratchWords = 1024

// headerMinSize is the number of bytes that must be present before the
// constant pool: magic, reserved/version, and the constant-pool byte count.
const headerMinSize = 12

// load reads the image at path, parses it, and returns a freshly
// initialized VM wired to in/out. A single error covers every load-time
// failure (§7): the loader never returns a partial VM.
func load(path string, in io.Reader, out io.Writer) (*VM, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "ijvm: could not create VM")
	}
	return fromImage(raw, in, out)
}

// initStd loads path wired to os.Stdin/os.Stdout.
func initStd(path string) (*VM, error) {
	return load(path, os.Stdin, os.Stdout)
}

// fromImage parses raw image bytes per the layout in §4.A/§6 and assembles
// the initial VM state.
func fromImage(raw []byte, in io.Reader, out io.Writer) (*VM, error) {
	if len(raw) < headerMinSize {
		return nil, errors.Wrap(ErrTruncatedImage, "ijvm: could not create VM")
	}
	if readU32(raw[0:4]) != magicNumber {
		return nil, errors.Wrap(ErrBadMagic, "ijvm: could not create VM")
	}
	// off 4: reserved/version, ignored but still consumed (§6).

	constByteSize := int(readU32(raw[8:12]))
	if constByteSize < 0 || headerMinSize+constByteSize+8 > len(raw) {
		return nil, errors.Wrap(ErrTruncatedImage, "ijvm: could not create VM")
	}
	constBytes := raw[headerMinSize : headerMinSize+constByteSize]
	constantPool := make([]word, constByteSize/4)
	for i := range constantPool {
		constantPool[i] = word(readU32(constBytes[i*4 : i*4+4]))
	}

	afterConst := headerMinSize + constByteSize
	// off 12+C: reserved/origin, ignored but still consumed (§6).
	textByteSize := int(readU32(raw[afterConst+4 : afterConst+8]))
	textStart := afterConst + 8
	if textByteSize < 0 || textStart+textByteSize > len(raw) {
		return nil, errors.Wrap(ErrTruncatedImage, "ijvm: could not create VM")
	}
	if textByteSize == 0 {
		return nil, errors.Wrap(ErrNoTextSection, "ijvm: could not create VM")
	}
	text := make([]byte, textByteSize)
	copy(text, raw[textStart:textStart+textByteSize])

	m := &VM{
		id:           uuid.New(),
		text:         text,
		constantPool: constantPool,
		checksum:     sha3.Sum256(raw),
		stack:        newOperandStack(),
		lv:           0,
		pc:           0,
		heap:         newHeap(),
		in:           in,
		out:          out,
		methodCache:  newMethodCache(),
	}
	for i := 0; i < scratchWords; i++ {
		m.stack.push(0)
	}

	return m, nil
}
