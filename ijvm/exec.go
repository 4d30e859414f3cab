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

const (
	errOutOfBounds = "ERROR: Array index out of bounds.\n"
	errHalting     = "ERROR, halting the emulator.\n"
	gcTriggered    = "Garbage collection triggered.\n"
)

// fault halts the VM with the given fatal cause, per §7: every run-time
// fault is terminal, and the VM records it for HaltReason/FaultErr but
// never returns it from Step/Run directly.
func (m *VM) fault(err error) error {
	m.halted = true
	m.haltReason = HaltFault
	m.faultErr = err
	return nil
}

// fetchByte reads one byte at PC, advancing PC, or reports false (leaving
// the fault to the caller) if PC is already at or past the end of text.
func (m *VM) fetchByte() (byteVal, bool) {
	if m.pc >= len(m.text) {
		return 0, false
	}
	b := m.text[m.pc]
	m.pc++
	return b, true
}

// fetchOperand reads n bytes of immediate operand starting at PC without
// advancing PC (the caller advances once it knows how many bytes it used);
// it reports false if those n bytes would run past the end of text.
func (m *VM) fetchOperand(n int) ([]byte, bool) {
	if m.pc+n > len(m.text) {
		return nil, false
	}
	return m.text[m.pc : m.pc+n], true
}

// Step executes exactly one instruction, per §4.E. It is a no-op if the VM
// is already Finished. Any run-time fault sets Halted/HaltReason instead of
// returning a Go error, matching the facade contract in §4.G.
func (m *VM) Step() {
	if m.Finished() {
		return
	}

	opPC := m.pc
	opByte, ok := m.fetchByte()
	if !ok {
		m.fault(ErrPCOutOfRange)
		return
	}
	if err := m.dispatch(Opcode(opByte), opPC); err != nil {
		m.fault(err)
	}
}

// dispatch executes the instruction identified by op, whose opcode byte sat
// at text offset opPC. It returns a non-nil error on any fault; the caller
// (Step) is responsible for translating that into halted state.
func (m *VM) dispatch(op Opcode, opPC int) error {
	switch op {
	case OpNop:
		return nil

	case OpBipush:
		operand, ok := m.fetchOperand(1)
		if !ok {
			return ErrPCOutOfRange
		}
		m.pc++
		m.stack.push(word(int8(operand[0])))
		return nil

	case OpLdcW:
		operand, ok := m.fetchOperand(2)
		if !ok {
			return ErrPCOutOfRange
		}
		m.pc += 2
		idx := int(readU16(operand))
		if idx < 0 || idx >= len(m.constantPool) {
			return ErrBadConstantIndex
		}
		m.stack.push(m.constantPool[idx])
		return nil

	case OpDup:
		m.stack.push(m.stack.tos())
		return nil

	case OpPop:
		if m.stack.top < 0 {
			return ErrStackUnderflow
		}
		m.stack.pop()
		return nil

	case OpSwap:
		if m.stack.top < 1 {
			return ErrStackUnderflow
		}
		a, b := m.stack.top, m.stack.top-1
		m.stack.elements[a], m.stack.elements[b] = m.stack.elements[b], m.stack.elements[a]
		return nil

	case OpIAdd:
		if m.stack.top < 1 {
			return ErrStackUnderflow
		}
		v2, v1 := m.stack.pop(), m.stack.pop()
		m.stack.push(v1 + v2)
		return nil

	case OpISub:
		if m.stack.top < 1 {
			return ErrStackUnderflow
		}
		v2, v1 := m.stack.pop(), m.stack.pop()
		m.stack.push(v1 - v2)
		return nil

	case OpIAnd:
		if m.stack.top < 1 {
			return ErrStackUnderflow
		}
		v2, v1 := m.stack.pop(), m.stack.pop()
		m.stack.push(v1 & v2)
		return nil

	case OpIOr:
		if m.stack.top < 1 {
			return ErrStackUnderflow
		}
		v2, v1 := m.stack.pop(), m.stack.pop()
		m.stack.push(v1 | v2)
		return nil

	case OpIInc:
		operand, ok := m.fetchOperand(2)
		if !ok {
			return ErrPCOutOfRange
		}
		m.pc += 2
		v, delta := operand[0], int8(operand[1])
		m.stack.set(m.lv+int(v), m.stack.get(m.lv+int(v))+word(delta))
		return nil

	case OpILoad:
		operand, ok := m.fetchOperand(1)
		if !ok {
			return ErrPCOutOfRange
		}
		m.pc++
		m.stack.push(m.stack.get(m.lv + int(operand[0])))
		return nil

	case OpIStore:
		operand, ok := m.fetchOperand(1)
		if !ok {
			return ErrPCOutOfRange
		}
		m.pc++
		if m.stack.top < 0 {
			return ErrStackUnderflow
		}
		m.stack.set(m.lv+int(operand[0]), m.stack.pop())
		return nil

	case OpIfEq:
		return m.branch(opPC, func(v word) bool { return v == 0 })

	case OpIfLt:
		return m.branch(opPC, func(v word) bool { return v < 0 })

	case OpIfICmpEq:
		operand, ok := m.fetchOperand(2)
		if !ok {
			return ErrPCOutOfRange
		}
		m.pc += 2
		if m.stack.top < 1 {
			return ErrStackUnderflow
		}
		v2, v1 := m.stack.pop(), m.stack.pop()
		if v1 == v2 {
			return m.takeBranch(opPC, operand)
		}
		return nil

	case OpGoto:
		operand, ok := m.fetchOperand(2)
		if !ok {
			return ErrPCOutOfRange
		}
		return m.takeBranch(opPC, operand)

	case OpInvokeVirtual:
		operand, ok := m.fetchOperand(2)
		if !ok {
			return ErrPCOutOfRange
		}
		m.pc += 2
		return m.invokeVirtual(int(readU16(operand)))

	case OpIReturn:
		return m.ireturn()

	case OpTailcall:
		operand, ok := m.fetchOperand(2)
		if !ok {
			return ErrPCOutOfRange
		}
		m.pc += 2
		return m.tailcall(int(readU16(operand)))

	case OpWide:
		return m.wide()

	case OpHalt:
		m.halted = true
		m.haltReason = HaltClean
		return nil

	case OpErr:
		m.writeOut(errHalting)
		m.halted = true
		m.haltReason = HaltRequested
		return nil

	case OpIn:
		b := m.readIn()
		m.stack.push(word(b))
		return nil

	case OpOut:
		if m.stack.top < 0 {
			return ErrStackUnderflow
		}
		v := m.stack.pop()
		m.writeOut(string([]byte{byte(v)}))
		return nil

	case OpNewArray:
		if m.stack.top < 0 {
			return ErrStackUnderflow
		}
		count := m.stack.pop()
		if count < 0 {
			return ErrNegativeArrayCount
		}
		ref := m.heap.alloc(count)
		m.stack.push(ref)
		return nil

	case OpIALoad:
		if m.stack.top < 1 {
			return ErrStackUnderflow
		}
		// Stack order is value, index, arrayref from bottom up (§4.F):
		// arrayref pops first, off the top.
		arrayRef, index := m.stack.pop(), m.stack.pop()
		obj := m.heap.find(arrayRef)
		if obj == nil || index < 0 || int(index) >= len(obj.data) {
			m.writeOut(errOutOfBounds)
			return ErrBadArrayAccess
		}
		m.stack.push(obj.data[index])
		return nil

	case OpIAStore:
		if m.stack.top < 2 {
			return ErrStackUnderflow
		}
		arrayRef, index, value := m.stack.pop(), m.stack.pop(), m.stack.pop()
		obj := m.heap.find(arrayRef)
		if obj == nil || index < 0 || int(index) >= len(obj.data) {
			m.writeOut(errOutOfBounds)
			return ErrBadArrayAccess
		}
		obj.data[index] = value
		return nil

	case OpGC:
		m.writeOut(gcTriggered)
		nonRoots := walkNonRootSlots(m.stack, m.lv)
		m.heap.collect(m.stack, nonRoots)
		return nil

	default:
		return ErrUnknownOpcode
	}
}

// branch implements the IFEQ/IFLT family: pop one value, test it with cond,
// and branch if true.
func (m *VM) branch(opPC int, cond func(word) bool) error {
	operand, ok := m.fetchOperand(2)
	if !ok {
		return ErrPCOutOfRange
	}
	m.pc += 2
	if m.stack.top < 0 {
		return ErrStackUnderflow
	}
	v := m.stack.pop()
	if cond(v) {
		return m.takeBranch(opPC, operand)
	}
	return nil
}

// takeBranch sets PC to opPC + the signed 16-bit offset encoded in operand,
// bounds-checking the result against the text section (§4.E).
func (m *VM) takeBranch(opPC int, operand []byte) error {
	off := int(readI16(operand))
	target := opPC + off
	if target < 0 || target > len(m.text) {
		return ErrBranchOutOfRange
	}
	m.pc = target
	return nil
}

// wide implements the WIDE prefix: re-dispatch ILOAD/ISTORE/IINC with a
// 16-bit, rather than 8-bit, local variable index (§4.E).
func (m *VM) wide() error {
	sub, ok := m.fetchByte()
	if !ok {
		return ErrPCOutOfRange
	}
	switch Opcode(sub) {
	case wideSubILoad:
		operand, ok := m.fetchOperand(2)
		if !ok {
			return ErrPCOutOfRange
		}
		m.pc += 2
		m.stack.push(m.stack.get(m.lv + int(readU16(operand))))
		return nil

	case wideSubIStore:
		operand, ok := m.fetchOperand(2)
		if !ok {
			return ErrPCOutOfRange
		}
		m.pc += 2
		if m.stack.top < 0 {
			return ErrStackUnderflow
		}
		m.stack.set(m.lv+int(readU16(operand)), m.stack.pop())
		return nil

	case wideSubIInc:
		operand, ok := m.fetchOperand(3)
		if !ok {
			return ErrPCOutOfRange
		}
		m.pc += 3
		v := int(readU16(operand))
		delta := int8(operand[2])
		m.stack.set(m.lv+v, m.stack.get(m.lv+v)+word(delta))
		return nil

	default:
		return ErrBadWideSubOpcode
	}
}
