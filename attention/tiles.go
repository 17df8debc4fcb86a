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

package attention

import "github.com/kernelforge/fusedkernels/precision"

// defaultBlocks chooses (Rb, Cb) for a descriptor that did not
// override them, keyed by head dimension D and device class — the
// attention analogue of gemm.defaultBlockDims. Smaller D leaves more
// threadgroup-memory budget for a wider row/column block; the
// thresholds mirror the GEMM table's shape (a handful of hardcoded
// bands, not a search).
func defaultBlocks(d Dims, dc precision.DeviceClass) (rb, cb uint16) {
	switch {
	case d.D <= 32:
		rb, cb = 64, 64
	case d.D <= 64:
		rb, cb = 32, 32
	default:
		rb, cb = 16, 16
	}
	if dc == precision.Apple9 {
		rb *= 2
		cb *= 2
	}
	return rb, cb
}

// ceilToMultiple rounds v up to the nearest multiple of m. Used to
// derive leadingDimensionDerivativeST from C and Cb, per spec.md §9's
// own recommended rule for the open question it flags.
func ceilToMultiple(v, m uint16) uint16 {
	if m == 0 {
		return v
	}
	rem := v % m
	if rem == 0 {
		return v
	}
	return v + (m - rem)
}
