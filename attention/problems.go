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

// Validate reports the first problem Synthesize would fail on, or
// nil if d is valid.
func Validate(d Descriptor) error {
	return validate(d)
}

// Problems returns every violation found on d, unlike Validate and
// Synthesize which both stop at the first.
func Problems(d Descriptor) []error {
	var problems []error

	operands := []struct {
		op Operand
		p  precision.Precision
	}{
		{Q, d.MemoryPrecisions.Q}, {K, d.MemoryPrecisions.K}, {V, d.MemoryPrecisions.V}, {O, d.MemoryPrecisions.O},
	}
	for _, o := range operands {
		if !o.p.Valid() {
			problems = append(problems, newDescriptorError(o.op.String()+".memoryPrecision", "unrecognized precision %d", int(o.p)))
		}
	}

	switch d.Type.(type) {
	case Forward, BackwardQuery, BackwardKeyValue:
	default:
		problems = append(problems, newDescriptorError("type", "unrecognized kernel type"))
	}

	if d.MatrixDimensions.D == 0 {
		problems = append(problems, newDescriptorError("matrixDimensions.D", "head dimension must be positive"))
	}

	return problems
}
