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

import mapset "github.com/deckarep/golang-set"

// firstHeapRef is the first reference issued by a run; references are
// opaque, non-zero, and monotonically increasing (§3).
const firstHeapRef = 100

// heapObject is a garbage-collected array object.
// Size is fixed at allocation (§3).
type heapObject struct {
	ref    word
	data   []word
	marked bool
}

// heap is a growable ordered sequence of heap objects. Membership is looked
// up by linear scan on reference (§3) — this is mandated by the spec, not an
// implementation convenience, so heap deliberately does not index objects by
// a map keyed on reference.
type heap struct {
	objects  []*heapObject
	nextRef  word
	freedLog []word
}

func newHeap() *heap {
	return &heap{nextRef: firstHeapRef}
}

// find returns the live object for ref, or nil if ref does not identify one.
func (h *heap) find(ref word) *heapObject {
	for _, obj := range h.objects {
		if obj.ref == ref {
			return obj
		}
	}
	return nil
}

// alloc appends a new object of count zero words and returns its reference.
// It also resets the freed-reference log, per §4.F.
func (h *heap) alloc(count word) word {
	obj := &heapObject{
		ref:  h.nextRef,
		data: make([]word, count),
	}
	h.nextRef++
	h.objects = append(h.objects, obj)
	h.freedLog = h.freedLog[:0]
	return obj.ref
}

// isFreed reports whether ref appears in the current freed-reference log.
func (h *heap) isFreed(ref word) bool {
	for _, r := range h.freedLog {
		if r == ref {
			return true
		}
	}
	return false
}

// collect runs a precise mark-and-sweep cycle.
//
// The candidate roots are the stack indices in [0, top] that are NOT frame
// metadata (saved PC / saved LV slots), per the walk described in §4.F.
// nonRoots is the set of metadata indices, computed once by the
// caller (walkNonRootSlots) and passed in as a mapset.Set so the mark phase
// can do a cheap membership test instead of re-walking the frame chain for
// every stack slot.
func (h *heap) collect(s *operandStack, nonRoots mapset.Set) {
	for _, obj := range h.objects {
		obj.marked = false
	}

	for i := 0; i <= s.top; i++ {
		if nonRoots.Contains(i) {
			continue
		}
		h.markFrom(s.get(i))
	}

	h.freedLog = h.freedLog[:0]
	kept := h.objects[:0]
	for _, obj := range h.objects {
		if obj.marked {
			obj.marked = false
			kept = append(kept, obj)
		} else {
			h.freedLog = append(h.freedLog, obj.ref)
		}
	}
	h.objects = kept
}

// markFrom marks the object identified by ref (if any) and, transitively,
// every word in its data that itself identifies a live object.
func (h *heap) markFrom(ref word) {
	obj := h.find(ref)
	if obj == nil || obj.marked {
		return
	}
	obj.marked = true
	for _, v := range obj.data {
		h.markFrom(v)
	}
}

// walkNonRootSlots walks the frame chain starting at lv and returns the set
// of stack indices holding saved-PC/saved-LV metadata (§4.F's root
// identification procedure). These indices must be excluded when scanning
// the stack for GC roots.
func walkNonRootSlots(s *operandStack, lv int) mapset.Set {
	nonRoots := mapset.NewThreadUnsafeSet()
	cur := lv
	for cur != 0 {
		t := int(s.get(cur))
		nonRoots.Add(t)
		nonRoots.Add(t + 1)
		cur = int(s.get(t + 1))
	}
	return nonRoots
}
