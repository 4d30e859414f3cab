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

import lru "github.com/hashicorp/golang-lru"

// methodHeaderCacheSize bounds the memoized method-header decode cache
// (SPEC_FULL.md §11). The constant pool and text are immutable after load,
// so this is a pure speed optimization with no observable effect.
const methodHeaderCacheSize = 256

// methodHeader is the decoded (numParams, numLocals, methodAddr) triple
// read from a method's 4-byte header at its text address (§4.D).
type methodHeader struct {
	numParams  int
	numLocals  int
	methodAddr int
}

// resolveMethod decodes the header for the method referenced by constant
// pool index idx, consulting (and populating) the memoization cache.
func (m *VM) resolveMethod(idx int) (methodHeader, error) {
	if idx < 0 || idx >= len(m.constantPool) {
		return methodHeader{}, ErrBadConstantIndex
	}
	if cached, ok := m.methodCache.Get(idx); ok {
		return cached.(methodHeader), nil
	}
	methodAddr := int(m.constantPool[idx])
	if methodAddr+3 >= len(m.text) || methodAddr < 0 {
		return methodHeader{}, ErrBadMethodAddress
	}
	hdr := methodHeader{
		numParams:  int(readU16(m.text[methodAddr:])),
		numLocals:  int(readU16(m.text[methodAddr+2:])),
		methodAddr: methodAddr,
	}
	m.methodCache.Add(idx, hdr)
	return hdr, nil
}

// invokeVirtual implements INVOKEVIRTUAL idx (§4.D).
func (m *VM) invokeVirtual(idx int) error {
	hdr, err := m.resolveMethod(idx)
	if err != nil {
		return err
	}
	p, l := hdr.numParams, hdr.numLocals
	if m.stack.top < p-1 {
		return ErrStackUnderflow
	}
	newLV := m.stack.top - p + 1

	for i := 0; i < l; i++ {
		m.stack.push(0)
	}
	m.stack.push(word(m.pc))
	m.stack.push(word(m.lv))

	linkTarget := newLV + p + l
	m.stack.set(newLV, word(linkTarget))

	m.lv = newLV
	m.pc = hdr.methodAddr + 4
	return nil
}

// ireturn implements IRETURN (§4.D).
func (m *VM) ireturn() error {
	if m.stack.top < 0 || m.lv == 0 {
		return ErrNoCallerFrame
	}
	rv := m.stack.pop()
	t := int(m.stack.get(m.lv))
	savedPC := int(m.stack.get(t))
	savedLV := int(m.stack.get(t + 1))

	m.stack.truncate(m.lv)
	m.lv = savedLV
	m.pc = savedPC
	m.stack.push(rv)
	return nil
}

// tailcall implements TAILCALL idx (0xCB): replaces the current frame with
// a fresh one for method idx, preserving the caller's saved PC/LV so the
// eventual IRETURN returns to the original caller (§4.D).
func (m *VM) tailcall(idx int) error {
	if m.lv == 0 {
		return ErrNoCallerFrame
	}
	hdr, err := m.resolveMethod(idx)
	if err != nil {
		return err
	}
	p, l := hdr.numParams, hdr.numLocals
	if m.stack.top < p-1 {
		return ErrStackUnderflow
	}

	args := make([]word, p)
	for i := p - 1; i >= 0; i-- {
		args[i] = m.stack.pop()
	}

	linkIdx := int(m.stack.get(m.lv))
	callerPC := m.stack.get(linkIdx)
	callerLV := m.stack.get(linkIdx + 1)

	m.stack.truncate(m.lv)

	for _, a := range args {
		m.stack.push(a)
	}
	for i := 0; i < l; i++ {
		m.stack.push(0)
	}
	m.stack.push(callerPC)
	m.stack.push(callerLV)

	newTop := m.stack.top
	newLV := newTop - (p + l + 2) + 1
	m.stack.set(newLV, word(newLV+p+l))

	m.lv = newLV
	m.pc = hdr.methodAddr + 4
	return nil
}

// getCallStackSize walks from LV via stack[stack[cur]+1] until the walked
// LV is 0, counting one per hop plus one for the main frame (§4.D).
func (m *VM) getCallStackSize() int {
	if m.stack.top < 0 {
		return 0
	}
	count := 1
	cur := m.lv
	for cur != 0 {
		t := int(m.stack.get(cur))
		cur = int(m.stack.get(t + 1))
		count++
	}
	return count
}

func newMethodCache() *lru.Cache {
	c, err := lru.New(methodHeaderCacheSize)
	if err != nil {
		// lru.New only fails for size <= 0, which methodHeaderCacheSize
		// never is; a panic here would indicate a constant typo, not a
		// reachable runtime condition.
		panic(err)
	}
	return c
}
