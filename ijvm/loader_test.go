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
	"strings"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromImageSucceedsOnWellFormedImage(t *testing.T) {
	raw := buildImage([]word{1, 2}, []byte{byte(OpHalt)})
	m, err := fromImage(raw, strings.NewReader(""), &strings.Builder{})
	require.NoError(t, err)
	assert.Equal(t, 0, m.GetProgramCounter())
	assert.Equal(t, 0, m.lv)
	assert.False(t, m.Halted())
	assert.Equal(t, word(1), m.GetConstant(0))
	assert.Equal(t, word(2), m.GetConstant(1))
	assert.Equal(t, scratchWords-1, m.stack.top, "loader pre-pushes the scratch region")
}

func TestFromImageRejectsBadMagic(t *testing.T) {
	raw := buildImage(nil, []byte{byte(OpHalt)})
	raw[0] = 0x00
	_, err := fromImage(raw, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestFromImageRejectsTruncatedHeader(t *testing.T) {
	_, err := fromImage([]byte{0x1D, 0xEA, 0xDF}, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTruncatedImage)
}

func TestFromImageRejectsTruncatedConstantPool(t *testing.T) {
	raw := buildImage([]word{1, 2, 3}, []byte{byte(OpHalt)})
	truncated := raw[:len(raw)-10]
	_, err := fromImage(truncated, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTruncatedImage)
}

func TestFromImageRejectsMissingTextSection(t *testing.T) {
	raw := buildImage([]word{1}, nil)
	_, err := fromImage(raw, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoTextSection)
}

func TestFromImageRejectsTruncatedText(t *testing.T) {
	raw := buildImage(nil, []byte{byte(OpHalt), byte(OpHalt)})
	truncated := raw[:len(raw)-1]
	_, err := fromImage(truncated, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTruncatedImage)
}

// TestFromImageNeverPanicsOnFuzzedBytes feeds random byte blobs (including
// ones shaped like a plausible header) through the loader and asserts that
// every outcome is either a clean VM or an error — never a panic.
func TestFromImageNeverPanicsOnFuzzedBytes(t *testing.T) {
	f := fuzz.New().NilChance(0).NumElements(0, 512)

	for i := 0; i < 200; i++ {
		var raw []byte
		f.Fuzz(&raw)

		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("fromImage panicked on fuzzed input (len=%d): %v", len(raw), r)
				}
			}()
			_, _ = fromImage(raw, nil, nil)
		}()
	}
}

// TestFromImageNeverPanicsOnFuzzedHeaderShapes fuzzes byte blobs that carry
// a correct magic number but arbitrary section-size fields, the likeliest
// place for an off-by-one to turn into an out-of-range slice panic.
func TestFromImageNeverPanicsOnFuzzedHeaderShapes(t *testing.T) {
	f := fuzz.New()

	for i := 0; i < 200; i++ {
		raw := buildImage(nil, []byte{byte(OpHalt)})
		var junk [20]byte
		f.Fuzz(&junk)
		if len(raw) > 4 {
			copy(raw[4:], junk[:min(len(junk), len(raw)-4)])
		}
		raw[0], raw[1], raw[2], raw[3] = 0x1D, 0xEA, 0xDF, 0xAD

		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("fromImage panicked on fuzzed header (iteration %d): %v", i, r)
				}
			}()
			_, _ = fromImage(raw, nil, nil)
		}()
	}
}
