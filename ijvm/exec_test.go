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
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestAddTwoNumbersAndOutput mirrors BIPUSH 5; BIPUSH 3; IADD; OUT; HALT.
func TestAddTwoNumbersAndOutput(t *testing.T) {
	text := []byte{0x10, 0x05, 0x10, 0x03, 0x60, 0xFD, 0xFF}
	m, out := newTestVM(t, nil, text)
	m.Run()

	assert.True(t, m.Finished())
	assert.Equal(t, HaltClean, m.HaltReason())
	assert.Equal(t, "\x08", out.String())
	assert.Equal(t, word(0), m.TOS(), "tos reverts to the scratch region after OUT consumes the sum")
}

// TestBranchTaken mirrors BIPUSH 0; IFEQ +5; BIPUSH 'A'; OUT; BIPUSH 'B'; OUT; HALT.
// The branch target (opcode-byte-address + offset, confirmed against the
// original step()'s pc arithmetic) lands exactly on the first OUT, which
// fires once on the leftover scratch word (emitting a NUL) before falling
// through to the still-reachable "BIPUSH 'B'; OUT" pair.
func TestBranchTaken(t *testing.T) {
	text := []byte{0x10, 0x00, 0x99, 0x00, 0x05, 0x10, 0x41, 0xFD, 0x10, 0x42, 0xFD, 0xFF}
	m, out := newTestVM(t, nil, text)
	m.Run()

	assert.True(t, m.Finished())
	assert.Equal(t, "\x00B", out.String())
}

// TestLoopCountdown builds BIPUSH 3; ISTORE 0; loop: IINC 0,-1; ILOAD 0;
// IFEQ end; GOTO loop; end: HALT and checks it terminates after exactly
// three iterations with bounded stack growth.
func TestLoopCountdown(t *testing.T) {
	var text []byte
	text = append(text, byte(OpBipush), 0x03)
	text = append(text, byte(OpIStore), 0x00)

	loopAddr := len(text)
	ifEqAddr := loopAddr + 3 + 2 // IINC(3) + ILOAD(2)
	gotoAddr := ifEqAddr + 3     // IFEQ(3)
	endAddr := gotoAddr + 3      // GOTO(3)

	text = append(text, byte(OpIInc), 0x00, byte(int8(-1)))
	text = append(text, byte(OpILoad), 0x00)
	text = append(text, byte(OpIfEq))
	text = append(text, i16(int16(endAddr-ifEqAddr))...)
	text = append(text, byte(OpGoto))
	text = append(text, i16(int16(loopAddr-gotoAddr))...)
	text = append(text, byte(OpHalt))

	m, _ := newTestVM(t, nil, text)

	iterations := 0
	maxTop := m.stack.top
	for !m.Finished() {
		m.Step()
		iterations++
		if m.stack.top > maxTop {
			maxTop = m.stack.top
		}
		if iterations > 100 {
			t.Fatal("loop did not terminate")
		}
	}

	assert.True(t, m.Finished())
	assert.Equal(t, HaltClean, m.HaltReason())
	// Two setup instructions, two untaken passes of IINC, ILOAD, IFEQ, GOTO,
	// a third pass of IINC, ILOAD and the taken IFEQ, then HALT:
	// 2 + 4 + 4 + 3 + 1 = 14 steps, i.e. exactly three loop iterations.
	assert.Equal(t, 14, iterations)
	assert.LessOrEqual(t, maxTop, m.stack.top+2, "loop should not grow the stack unboundedly")
}

func TestBipushSignExtends(t *testing.T) {
	text := []byte{byte(OpBipush), 0xFF, byte(OpHalt)}
	m, _ := newTestVM(t, nil, text)
	m.Run()
	assert.Equal(t, word(-1), m.TOS())
}

func TestIaddWraps(t *testing.T) {
	text := []byte{
		byte(OpLdcW), 0x00, 0x00,
		byte(OpLdcW), 0x00, 0x01,
		byte(OpIAdd),
		byte(OpHalt),
	}
	m, _ := newTestVM(t, []word{0x7FFFFFFF, 1}, text)
	m.Run()
	assert.Equal(t, word(-0x80000000), m.TOS())
}

func TestIstoreIloadRoundTrip(t *testing.T) {
	text := []byte{
		byte(OpBipush), 0x2A,
		byte(OpIStore), 0x05,
		byte(OpILoad), 0x05,
		byte(OpHalt),
	}
	m, _ := newTestVM(t, nil, text)
	top := m.stack.top
	m.Run()
	assert.Equal(t, word(42), m.TOS())
	assert.Equal(t, top+1, m.stack.top, "net effect of ISTORE v; ILOAD v is a single pushed value")
}

func TestPopOnEmptyStackHalts(t *testing.T) {
	text := []byte{byte(OpPop), byte(OpHalt)}
	m, _ := newTestVM(t, nil, text)
	m.stack.top = -1
	m.Step()
	assert.True(t, m.Halted())
	assert.Equal(t, HaltFault, m.HaltReason())
	assert.ErrorIs(t, m.FaultErr(), ErrStackUnderflow)
}

func TestUnknownOpcodeHalts(t *testing.T) {
	text := []byte{0x01, byte(OpHalt)}
	m, _ := newTestVM(t, nil, text)
	m.Run()
	assert.Equal(t, HaltFault, m.HaltReason())
	assert.ErrorIs(t, m.FaultErr(), ErrUnknownOpcode)
}

func TestNetOpcodesAreUnknown(t *testing.T) {
	text := []byte{byte(OpNetBind), byte(OpHalt)}
	m, _ := newTestVM(t, nil, text)
	m.Run()
	assert.Equal(t, HaltFault, m.HaltReason())
	assert.ErrorIs(t, m.FaultErr(), ErrUnknownOpcode)
}

func TestBranchOutOfRangeHalts(t *testing.T) {
	text := []byte{byte(OpGoto), 0x7F, 0xFF, byte(OpHalt)}
	m, _ := newTestVM(t, nil, text)
	m.Run()
	assert.Equal(t, HaltFault, m.HaltReason())
	assert.ErrorIs(t, m.FaultErr(), ErrBranchOutOfRange)
}

func TestWideIllegalSubOpcodeHalts(t *testing.T) {
	text := []byte{byte(OpWide), byte(OpNop), byte(OpHalt)}
	m, _ := newTestVM(t, nil, text)
	m.Run()
	assert.Equal(t, HaltFault, m.HaltReason())
	assert.ErrorIs(t, m.FaultErr(), ErrBadWideSubOpcode)
}

func TestWideIload(t *testing.T) {
	text := cat(
		[]byte{byte(OpBipush), 0x07, byte(OpIStore)}, []byte{0x00},
		[]byte{byte(OpWide), byte(OpILoad)}, be16(0),
		[]byte{byte(OpHalt)},
	)
	m, _ := newTestVM(t, nil, text)
	m.Run()
	assert.Equal(t, word(7), m.TOS())
}

func TestErrOpcodeEmitsMessageAndHalts(t *testing.T) {
	text := []byte{byte(OpErr)}
	m, out := newTestVM(t, nil, text)
	m.Run()
	assert.Equal(t, "ERROR, halting the emulator.\n", out.String())
	assert.Equal(t, HaltRequested, m.HaltReason())
}

func TestNewArrayNegativeCountHalts(t *testing.T) {
	text := []byte{byte(OpBipush), 0xFF, byte(OpNewArray), byte(OpHalt)}
	m, _ := newTestVM(t, nil, text)
	m.Run()
	assert.Equal(t, HaltFault, m.HaltReason())
	assert.ErrorIs(t, m.FaultErr(), ErrNegativeArrayCount)
}

func TestNewArrayZeroCountIsLegal(t *testing.T) {
	text := []byte{byte(OpBipush), 0x00, byte(OpNewArray), byte(OpHalt)}
	m, _ := newTestVM(t, nil, text)
	m.Run()
	assert.Equal(t, HaltClean, m.HaltReason())
	assert.Equal(t, word(firstHeapRef), m.TOS())
}

// TestArrayStoreAndLoadRoundTrip relies on the bottom-up stack order for
// IASTORE/IALOAD (§4.F): value, index, arrayref — arrayref pops first.
func TestArrayStoreAndLoadRoundTrip(t *testing.T) {
	text := cat(
		[]byte{byte(OpBipush), 0x03, byte(OpNewArray)}, // stack: [ref]
		[]byte{byte(OpIStore), 0x00},                    // stash ref in local 0
		[]byte{byte(OpBipush), 0x2A},                     // [value]
		[]byte{byte(OpBipush), 0x01},                     // [value, index]
		[]byte{byte(OpILoad), 0x00},                      // [value, index, ref]
		[]byte{byte(OpIAStore)},
		[]byte{byte(OpBipush), 0x01},                     // [index]
		[]byte{byte(OpILoad), 0x00},                      // [index, ref]
		[]byte{byte(OpIALoad)},
		[]byte{byte(OpHalt)},
	)
	m, _ := newTestVM(t, nil, text)
	m.Run()
	assert.Equal(t, HaltClean, m.HaltReason())
	assert.Equal(t, word(42), m.TOS())
}

func TestArrayOutOfBoundsHalts(t *testing.T) {
	text := cat(
		[]byte{byte(OpBipush), 0x01, byte(OpNewArray)},
		[]byte{byte(OpIStore), 0x00},
		[]byte{byte(OpBipush), 0x05}, // [index]
		[]byte{byte(OpILoad), 0x00},  // [index, ref]
		[]byte{byte(OpIALoad)},
		[]byte{byte(OpHalt)},
	)
	m, out := newTestVM(t, nil, text)
	m.Run()
	assert.Equal(t, HaltFault, m.HaltReason())
	assert.ErrorIs(t, m.FaultErr(), ErrBadArrayAccess)
	assert.Equal(t, "ERROR: Array index out of bounds.\n", out.String())
}

func TestGCReclaimsUnreachableCycle(t *testing.T) {
	m, out := newTestVM(t, nil, []byte{byte(OpHalt)})
	refA := m.heap.alloc(1)
	refB := m.heap.alloc(1)
	m.heap.find(refA).data[0] = refB
	m.heap.find(refB).data[0] = refA
	// Nothing reachable from the stack.
	nonRoots := walkNonRootSlots(m.stack, m.lv)
	m.writeOut(gcTriggered)
	m.heap.collect(m.stack, nonRoots)

	assert.Contains(t, out.String(), "Garbage collection triggered.")
	assert.True(t, m.IsHeapFreed(refA))
	assert.True(t, m.IsHeapFreed(refB))
}

func TestGCRetainsArrayHeldByLocal(t *testing.T) {
	m, _ := newTestVM(t, nil, []byte{byte(OpHalt)})
	refA := m.heap.alloc(1)
	refB := m.heap.alloc(1)
	m.heap.find(refA).data[0] = refB

	m.stack.push(refA) // simulate ISTORE into a local slot that's still a root
	nonRoots := walkNonRootSlots(m.stack, m.lv)
	m.heap.collect(m.stack, nonRoots)

	assert.False(t, m.IsHeapFreed(refA))
	assert.False(t, m.IsHeapFreed(refB))
}
