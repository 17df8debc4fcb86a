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

import "github.com/kernelforge/fusedkernels/precision"

// defaultBlockDims chooses (Mb, Nb, Kb) for a descriptor whose
// BlockDimensions is unset, keyed by (memory precisions, device
// class) per spec.md §4.2. The table mirrors the shape of the
// teacher's hand-tuned per-architecture CacheParams* functions
// (hwy/contrib/matmul/cache_params.go): conservative, hardcoded
// constants rather than a search.
func defaultBlockDims(mem OperandPrecisions, dc precision.DeviceClass) BlockDims {
	allFP32 := mem.A == precision.FP32 && mem.B == precision.FP32 && mem.C == precision.FP32

	switch {
	case allFP32:
		// Narrower tiles: FP32 operands consume threadgroup memory
		// twice as fast as FP16/BF16 for the same tile footprint.
		return BlockDims{Mb: 32, Nb: 32, Kb: 8}
	case dc == precision.Apple9:
		// Apple9's larger threadgroup memory budget supports a wider
		// mixed-precision tile.
		return BlockDims{Mb: 48, Nb: 48, Kb: 32}
	default:
		return BlockDims{Mb: 32, Nb: 32, Kb: 32}
	}
}

// defaultSplits chooses (Ms, Ns) for a descriptor whose Splits is
// unset. Ms*Ns is constrained to {1, 2, 4} per spec.md §4.2, yielding
// a threadgroup of 32, 64 or 128 threads. Wider blocks get more
// splits so each SIMD group's register tile count stays bounded.
func defaultSplits(b BlockDims) Splits {
	area := int(b.Mb) * int(b.Nb)
	switch {
	case area >= 48*48:
		return Splits{Ms: 2, Ns: 2}
	case area >= 32*32:
		return Splits{Ms: 2, Ns: 1}
	default:
		return Splits{Ms: 1, Ns: 1}
	}
}
