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
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
)

// VM is one IJVM execution context: its text, constant pool, stack, heap,
// and the two byte streams it was initialized with. A VM is single-threaded
// and non-reentrant (§5); it must not be driven from more than one
// goroutine at a time.
type VM struct {
	id uuid.UUID

	text         []byte
	constantPool []word
	checksum     [32]byte

	stack *operandStack
	lv    int
	pc    int

	heap *heap

	halted     bool
	haltReason HaltReason
	faultErr   error

	in  io.Reader
	out io.Writer

	methodCache *lru.Cache
}

// Init loads the IJVM binary at path and wires it to the given I/O
// streams, per §4.A/§4.G.
func Init(path string, in io.Reader, out io.Writer) (*VM, error) {
	return load(path, in, out)
}

// InitStd loads the IJVM binary at path, wired to os.Stdin and os.Stdout.
func InitStd(path string) (*VM, error) {
	return initStd(path)
}

// Destroy releases the VM's owned resources: text, constant pool, stack,
// and heap. The I/O streams are not owned by the VM (§5) and are left
// untouched. A destroyed VM must not be stepped again.
func (m *VM) Destroy() {
	m.text = nil
	m.constantPool = nil
	m.stack = nil
	m.heap = nil
	m.methodCache.Purge()
}

// GetText returns the VM's text section.
func (m *VM) GetText() []byte { return m.text }

// GetTextSize returns the length of the text section in bytes.
func (m *VM) GetTextSize() int { return len(m.text) }

// GetConstant returns constant_pool[i], or 0 if i is out of range.
func (m *VM) GetConstant(i int) word {
	if i < 0 || i >= len(m.constantPool) {
		return 0
	}
	return m.constantPool[i]
}

// GetProgramCounter returns the current program counter.
func (m *VM) GetProgramCounter() int { return m.pc }

// TOS returns the top-of-stack word, or 0 if the stack is empty.
func (m *VM) TOS() word { return m.stack.tos() }

// GetLocalVariable returns stack[LV+i].
func (m *VM) GetLocalVariable(i int) word { return m.stack.get(m.lv + i) }

// GetInstruction peeks at text[PC] without advancing PC. Returns
// (0, false) if PC is out of range.
func (m *VM) GetInstruction() (Opcode, bool) {
	if m.pc < 0 || m.pc >= len(m.text) {
		return 0, false
	}
	return Opcode(m.text[m.pc]), true
}

// Run steps the VM until Finished reports true.
func (m *VM) Run() {
	for !m.Finished() {
		m.Step()
	}
}

// Finished reports whether the VM has halted or the program counter has
// reached the end of the text section (§4.G).
func (m *VM) Finished() bool {
	return m.halted || m.pc >= len(m.text)
}

// Halted reports whether the VM stopped due to HALT, ERR, or a fault,
// as opposed to simply running off the end of the text section.
func (m *VM) Halted() bool { return m.halted }

// HaltReason classifies why a finished VM stopped. It is additive
// diagnostic information only (§9 Design Notes) and never affects
// Finished/Halted.
func (m *VM) HaltReason() HaltReason {
	if !m.Finished() {
		return HaltNone
	}
	if m.haltReason == HaltNone {
		return HaltInstruction
	}
	return m.haltReason
}

// FaultErr returns the underlying cause of a HaltFault, or nil otherwise.
func (m *VM) FaultErr() error { return m.faultErr }

// GetCallStackSize reports the number of frames on the call stack,
// including the main frame (§4.D).
func (m *VM) GetCallStackSize() int { return m.getCallStackSize() }

// IsHeapFreed reports whether ref was freed by the most recent GC cycle.
func (m *VM) IsHeapFreed(ref word) bool { return m.heap.isFreed(ref) }

// ID returns an opaque identifier unique to this VM instance, stable for
// its lifetime. It is additive (not part of the spec's observable
// contract) and exists purely to correlate log lines and CLI sessions
// with a particular run.
func (m *VM) ID() uuid.UUID { return m.id }

// ImageChecksum returns the SHA3-256 digest of the raw image bytes this VM
// was loaded from. Additive: purely informational, never consulted by
// Step/Run.
func (m *VM) ImageChecksum() [32]byte { return m.checksum }

// DumpState renders a human-readable snapshot of the VM's visible state
// (PC, LV, stack contents, heap objects) for debugging. Additive: not part
// of the execution contract.
func (m *VM) DumpState() string {
	liveStack := make([]word, m.stack.top+1)
	if m.stack.top >= 0 {
		copy(liveStack, m.stack.elements[:m.stack.top+1])
	}
	return fmt.Sprintf("pc=%d lv=%d halted=%v reason=%s stack=%s heap=%s",
		m.pc, m.lv, m.halted, m.HaltReason(), spew.Sdump(liveStack), spew.Sdump(m.heap.objects))
}

func (m *VM) writeOut(s string) {
	if m.out == nil {
		return
	}
	io.WriteString(m.out, s)
}

func (m *VM) readIn() byte {
	if m.in == nil {
		return 0
	}
	var b [1]byte
	n, err := m.in.Read(b[:])
	if n == 0 || err != nil {
		return 0
	}
	return b[0]
}
