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

import "errors"

// Load-time sentinel errors (§4.A, §7). A caller never sees a partial VM on
// any of these: Init/InitStd return (nil, err).
var (
	ErrBadMagic       = errors.New("ijvm: bad magic number")
	ErrTruncatedImage = errors.New("ijvm: declared section exceeds remaining file")
	ErrNoTextSection  = errors.New("ijvm: image has no trailing text section")
)

// Run-time fault sentinels (§7). Each one is fatal: the dispatcher sets
// halted=true and stops stepping. They are never returned from Step/Run
// (which report faults only through Halted/HaltReason/Finished, per the
// facade contract in §4.G) but are attached to the HaltReason for logging.
var (
	ErrStackUnderflow     = errors.New("ijvm: stack underflow")
	ErrPCOutOfRange       = errors.New("ijvm: program counter out of range")
	ErrBranchOutOfRange   = errors.New("ijvm: branch target out of range")
	ErrBadConstantIndex   = errors.New("ijvm: constant pool index out of range")
	ErrBadMethodAddress   = errors.New("ijvm: invalid method header address")
	ErrBadWideSubOpcode   = errors.New("ijvm: WIDE with illegal sub-opcode")
	ErrNegativeArrayCount = errors.New("ijvm: NEWARRAY with negative count")
	ErrBadArrayAccess     = errors.New("ijvm: array access with bad reference or out-of-range index")
	ErrUnknownOpcode      = errors.New("ijvm: unknown opcode")
	ErrNoCallerFrame      = errors.New("ijvm: IRETURN with no caller frame")
	ErrGCAllocation       = errors.New("ijvm: allocation failure during garbage collection")
)

// HaltReason classifies why a finished VM stopped. It is purely additive
// diagnostic information (Design Notes, SPEC_FULL.md §7): it never changes
// the boolean Finished/Halted contract and is not consulted by Step/Run to
// decide anything.
type HaltReason string

const (
	// HaltNone means the VM has not halted (Finished may still be true if
	// the program counter has simply reached the end of the text).
	HaltNone HaltReason = ""
	// HaltInstruction means the program reached the end of the text
	// section without executing HALT or ERR.
	HaltInstruction HaltReason = "end-of-text"
	// HaltClean means the program executed HALT.
	HaltClean HaltReason = "halt"
	// HaltRequested means the program executed ERR.
	HaltRequested HaltReason = "err"
	// HaltFault means a runtime fault occurred (see the sentinel errors
	// above); the underlying cause is available via (*VM).FaultErr().
	HaltFault HaltReason = "fault"
)
