// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fingerprint builds a stable, order-dependent cache key
// from descriptor field values. It is grounded on the
// HashRenderPipelineDescriptor pattern (hash/fnv over a fixed field
// order) used by the reference pipeline-cache implementation in the
// example pack: a descriptor is written field-by-field, in a fixed
// order chosen by the caller, into an FNV-1a accumulator.
package fingerprint

import "hash/fnv"

// Builder accumulates descriptor fields into a stable fingerprint.
// The zero value is ready to use.
type Builder struct {
	h uint64
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

func (b *Builder) write(p []byte) {
	h := fnv.New64a()
	// Re-seed with the previous accumulated value so repeated writes
	// chain deterministically. The result depends on the order of the
	// writes, so the caller is responsible for writing fields in a
	// fixed order.
	var seed [8]byte
	for i := range seed {
		seed[i] = byte(b.h >> (8 * i))
	}
	h.Write(seed[:])
	h.Write(p)
	b.h = h.Sum64()
}

// WriteString folds s into the fingerprint.
func (b *Builder) WriteString(s string) *Builder {
	b.write([]byte(s))
	return b
}

// WriteInt folds an integer value into the fingerprint.
func (b *Builder) WriteInt(v int) *Builder {
	return b.WriteUint64(uint64(v))
}

// WriteBool folds a boolean value into the fingerprint.
func (b *Builder) WriteBool(v bool) *Builder {
	if v {
		return b.WriteString("T")
	}
	return b.WriteString("F")
}

// WriteUint64 folds a uint64 value into the fingerprint.
func (b *Builder) WriteUint64(v uint64) *Builder {
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(v >> (8 * i))
	}
	b.write(buf[:])
	return b
}

// Sum64 returns the accumulated fingerprint.
func (b *Builder) Sum64() uint64 {
	return b.h
}
