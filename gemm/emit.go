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

package gemm

import (
	"strconv"

	"github.com/kernelforge/fusedkernels/internal/shader"
)

// emitSource renders the `gemm` shader entry point for an already
// block-resolved Kernel. The function is pure: it reads only k's
// fields, never wall-clock time or randomness, so Synthesize stays
// deterministic (spec.md §8 property 4).
func emitSource(k Kernel) string {
	d := k.Descriptor
	var b shader.Builder

	b.Line("// generated by fusedkernels/gemm — do not edit by hand")
	b.Line(shader.FunctionConstant("M", "uint", 0))
	b.Line(shader.FunctionConstant("N", "uint", 1))
	b.Line(shader.FunctionConstant("K", "uint", 2))
	b.Line("")
	b.Linef("kernel void gemm(")
	b.Indent()
	b.Linef("%s,", shader.BufferBinding("A", d.MemoryPrecisions.A.String(), 0))
	b.Linef("%s,", shader.BufferBinding("B", d.MemoryPrecisions.B.String(), 1))
	b.Linef("%s,", shader.BufferBinding("C", d.MemoryPrecisions.C.String(), 2))
	b.Line("uint3 gid [[threadgroup_position_in_grid]],")
	b.Line("ushort sid [[simdgroup_index_in_threadgroup]],")
	b.Line("ushort lid [[thread_index_in_simdgroup]])")
	b.Dedent()
	b.Block("{", func() {
		emitBlockOrigin(&b, d)
		emitAccumulatorInit(&b, k)
		emitLoopOverK(&b, k)
		emitStoreC(&b, k)
	})

	return b.String()
}

func emitBlockOrigin(b *shader.Builder, d Descriptor) {
	b.Linef("const uint blockOriginM = gid.y * %d;", d.BlockDimensions.Mb)
	b.Linef("const uint blockOriginN = gid.x * %d;", d.BlockDimensions.Nb)
}

// emitAccumulatorInit emits the zero-or-load-C accumulator setup
// described in spec.md §4.2: each thread holds a
// (registerM/8) x (registerN/8) array of 8x8 register tiles, zeroed
// unless LoadPreviousC is set, in which case the tile array is
// loaded via the load-C path.
func emitAccumulatorInit(b *shader.Builder, k Kernel) {
	d := k.Descriptor
	b.Linef("%s accum[%d][%d];", d.RegisterPrecisions.C.String(), k.RegisterM/8, k.RegisterN/8)
	if !d.LoadPreviousC {
		b.Block("for (ushort i = 0; i < "+strconv.Itoa(k.RegisterM/8)+"; i++) {", func() {
			b.Block("for (ushort j = 0; j < "+strconv.Itoa(k.RegisterN/8)+"; j++) {", func() {
				b.Line("accum[i][j] = 0;")
			})
		})
		return
	}
	if canDirectAccessLoadC(k) {
		b.Line("// direct-access load-C: block is fully inside C and block-aligned")
		b.Line("loadAccumulatorDirect(C, accum, blockOriginM, blockOriginN, N);")
	} else {
		b.Line("// async-copy load-C: edge block or block-unaligned origin")
		b.Line("threadgroup " + d.MemoryPrecisions.C.String() + " tgC[" + strconv.Itoa(int(k.ResolvedLeadingBlockDimensions.C)*int(d.BlockDimensions.Mb)) + "];")
		b.Line("simdgroup_async_copy(tgC, C, blockOriginM, blockOriginN, M, N);")
		b.Line("threadgroup_barrier(mem_flags::mem_threadgroup);")
		b.Line("loadAccumulatorFromThreadgroup(tgC, accum);")
	}
}

// emitLoopOverK emits the register-tile compute loop. The operand
// load path is chosen from PreferAsyncLoad alone: async-copy when it
// is set, direct access otherwise. The same path is emitted for every
// block, edge blocks included.
func emitLoopOverK(b *shader.Builder, k Kernel) {
	d := k.Descriptor
	direct := !d.PreferAsyncLoad
	b.Linef("for (uint kb = 0; kb < K; kb += %d) {", d.BlockDimensions.Kb)
	b.Indent()
	if direct {
		b.Line("// direct-access path: load A/B tiles straight from device memory")
		b.Line("loadOperandsDirect(A, B, blockOriginM, blockOriginN, kb, K);")
	} else {
		b.Line("// async-copy path: stage A/B tiles through threadgroup memory")
		b.Line("simdgroup_async_copy(tgA, A, blockOriginM, kb, M, K);")
		b.Line("simdgroup_async_copy(tgB, B, kb, blockOriginN, K, N);")
		b.Line("threadgroup_barrier(mem_flags::mem_threadgroup);")
	}
	b.Line("#pragma unroll")
	b.Block("for (ushort mi = 0; mi < "+strconv.Itoa(k.RegisterM/8)+"; mi++) {", func() {
		b.Line("#pragma unroll")
		b.Block("for (ushort ni = 0; ni < "+strconv.Itoa(k.RegisterN/8)+"; ni++) {", func() {
			b.Line("accum[mi][ni] = simdgroup_multiply_accumulate(accum[mi][ni], mi, ni);")
		})
	})
	b.Dedent()
	b.Line("}")
}

// emitStoreC emits the store-C path, applying the edge-block shift
// (spec.md §4.2) when async-copy store is required.
func emitStoreC(b *shader.Builder, k Kernel) {
	if canDirectAccessStore(k) {
		b.Line("// direct-access store-C: block fully inside C")
		b.Line("storeAccumulatorDirect(accum, C, blockOriginM, blockOriginN, N);")
		return
	}
	shiftM, shiftN := edgeShift(k)
	b.Linef("// async-copy store-C: edge-shifted by (%d, %d) so garbage lands top-left", shiftM, shiftN)
	b.Line("threadgroup_barrier(mem_flags::mem_threadgroup);")
	b.Line("storeAccumulatorToThreadgroup(accum, tgC);")
	b.Line("threadgroup_barrier(mem_flags::mem_threadgroup);")
	b.Linef("simdgroup_async_copy(C, tgC, blockOriginM + %d, blockOriginN + %d, M, N);", shiftM, shiftN)
}

// canDirectAccessLoadC implements spec.md §4.2's direct-access
// condition for the load-C path: the block must be fully inside the
// matrix and, because LoadPreviousC is set, block-aligned.
func canDirectAccessLoadC(k Kernel) bool {
	d := k.Descriptor
	if d.PreferAsyncStore {
		return false
	}
	return blockFullyInside(k)
}

// canDirectAccessStore implements spec.md §4.2's direct-access
// condition for the store-C path.
func canDirectAccessStore(k Kernel) bool {
	d := k.Descriptor
	if d.PreferAsyncStore {
		return false
	}
	if !blockFullyInside(k) {
		return false
	}
	return true
}

// blockFullyInside reports whether the matrix dimensions guarantee
// that no dispatched block is a partial edge tile. Because the
// synthesiser emits one shader body shared by every block in the
// grid (there is no per-block compile-time specialisation), it takes
// the conservative reading of spec.md §4.2's "no edge tile" condition:
// the fast uniform path is only sound when every block in the grid is
// full-sized, i.e. the matrix dimensions divide evenly into tiles. A
// single ragged tile anywhere in the grid routes the whole kernel
// through the async-copy path with the edge-block shift.
func blockFullyInside(k Kernel) bool {
	d := k.Descriptor
	return d.MatrixDimensions.M%uint32(d.BlockDimensions.Mb) == 0 && d.MatrixDimensions.N%uint32(d.BlockDimensions.Nb) == 0
}

// edgeShift computes the (M,N) tile-origin shift applied by the
// store-C slow path so a matrix whose trailing edge is shorter than
// one tile keeps its "garbage zone" in the top-left corner, enabling
// a single rectangular async copy (spec.md §4.2 edge-block shift).
func edgeShift(k Kernel) (int, int) {
	d := k.Descriptor
	lastM := d.MatrixDimensions.M % uint32(d.BlockDimensions.Mb)
	lastN := d.MatrixDimensions.N % uint32(d.BlockDimensions.Nb)
	shiftM, shiftN := 0, 0
	if lastM != 0 {
		shiftM = int(uint32(d.BlockDimensions.Mb) - lastM)
	}
	if lastN != 0 {
		shiftN = int(uint32(d.BlockDimensions.Nb) - lastN)
	}
	return -shiftM, -shiftN
}
