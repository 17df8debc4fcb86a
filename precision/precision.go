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

// Package precision defines the operand precisions understood by the
// GEMM and attention kernel synthesisers, and the legality rule that
// relates an operand's memory precision to its register precision.
package precision

import "fmt"

// Precision is a tag for one of the operand precisions a kernel
// variant may be synthesised for.
type Precision int

const (
	// FP32 is full 32-bit IEEE-754 float, used for both memory and
	// register (accumulator) storage.
	FP32 Precision = iota
	// FP16 is IEEE-754 half precision.
	FP16
	// BF16 is Brain Float 16: float32's exponent range with a
	// truncated 7-bit mantissa. Never legal as an accumulator.
	BF16
)

// String returns the shader-side spelling of p, used verbatim in
// emitted source text.
func (p Precision) String() string {
	switch p {
	case FP32:
		return "float"
	case FP16:
		return "half"
	case BF16:
		return "bfloat"
	default:
		return fmt.Sprintf("Precision(%d)", int(p))
	}
}

// ByteSize returns the in-memory size of one element of p.
func (p Precision) ByteSize() int {
	switch p {
	case FP32:
		return 4
	case FP16, BF16:
		return 2
	default:
		return 0
	}
}

// Valid reports whether p is one of the three known precision tags.
func (p Precision) Valid() bool {
	return p == FP32 || p == FP16 || p == BF16
}

// ParsePrecision parses the shader-side spelling produced by
// String back into a Precision, for CLI flags and JSON descriptors.
func ParsePrecision(s string) (Precision, error) {
	switch s {
	case "float":
		return FP32, nil
	case "half":
		return FP16, nil
	case "bfloat":
		return BF16, nil
	default:
		return 0, fmt.Errorf("precision: unrecognized precision %q", s)
	}
}

// LegalPair reports whether register precision r is a legal choice
// for an operand whose backing memory holds precision m.
//
// A register precision is legal iff it matches the memory precision,
// or the register widens to FP32 for the duration of computation.
func LegalPair(m, r Precision) bool {
	return r == m || r == FP32
}

// LegalAccumulator reports whether r is a legal register precision
// for the C operand of a GEMM. BF16's truncated mantissa corrupts reductions,
// so it is never legal here even though LegalPair would accept it for
// m == BF16.
func LegalAccumulator(r Precision) bool {
	return r == FP32 || r == FP16
}

// DeviceClass tags the GPU family the synthesiser is choosing tile
// sizes for. It plays the same role for the GEMM/attention tile
// tables that hwy.DispatchLevel plays for the teacher's CPU SIMD
// dispatch: a small enum selecting among hand-tuned constant tables.
type DeviceClass int

const (
	// Generic is the conservative, architecture-agnostic default.
	Generic DeviceClass = iota
	// Apple7 targets Apple7-class GPUs (32 KB threadgroup memory,
	// narrower async-copy engines).
	Apple7
	// Apple9 targets Apple9-class GPUs (64 KB threadgroup memory,
	// wider async-copy engines, native bfloat16 ALUs).
	Apple9
)

// String returns a human-readable name for the device class.
func (d DeviceClass) String() string {
	switch d {
	case Generic:
		return "generic"
	case Apple7:
		return "apple7"
	case Apple9:
		return "apple9"
	default:
		return fmt.Sprintf("DeviceClass(%d)", int(d))
	}
}
