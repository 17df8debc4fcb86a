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

// Validate reports the first problem Synthesize would fail on, or
// nil if d is valid. It runs the exact same checks as Synthesize,
// without building a Kernel.
func Validate(d Descriptor) error {
	if err := validatePrecisions(d); err != nil {
		return err
	}
	if d.BlockDimensions.IsZero() {
		d.BlockDimensions = defaultBlockDims(d.MemoryPrecisions, d.DeviceClass)
	}
	if d.Splits.IsZero() {
		d.Splits = defaultSplits(d.BlockDimensions)
	}
	if err := validateAlignment(d); err != nil {
		return err
	}
	if _, err := resolveLeadingBlockDims(d); err != nil {
		return err
	}
	return nil
}

// Problems returns every violation found on d, unlike Validate and
// Synthesize which both stop at the first. Useful for a CLI validate
// mode and for tests enumerating every precision-pair combination at
// once.
func Problems(d Descriptor) []error {
	var problems []error

	pairs := []struct {
		op   Operand
		m, r precision.Precision
	}{
		{A, d.MemoryPrecisions.A, d.RegisterPrecisions.A},
		{B, d.MemoryPrecisions.B, d.RegisterPrecisions.B},
		{C, d.MemoryPrecisions.C, d.RegisterPrecisions.C},
	}
	for _, p := range pairs {
		if !p.m.Valid() {
			problems = append(problems, newDescriptorError(p.op.String()+".memoryPrecision", "unrecognized precision %d", int(p.m)))
		}
		if !p.r.Valid() {
			problems = append(problems, newDescriptorError(p.op.String()+".registerPrecision", "unrecognized precision %d", int(p.r)))
		}
		if p.m.Valid() && p.r.Valid() && !precision.LegalPair(p.m, p.r) {
			problems = append(problems, newDescriptorError(p.op.String()+".registerPrecision", "register precision %v illegal for memory precision %v", p.r, p.m))
		}
	}
	if d.RegisterPrecisions.C.Valid() && !precision.LegalAccumulator(d.RegisterPrecisions.C) {
		problems = append(problems, newDescriptorError("C.registerPrecision", "bfloat16 is not a legal accumulator precision"))
	}

	blocks := d.BlockDimensions
	if blocks.IsZero() {
		blocks = defaultBlockDims(d.MemoryPrecisions, d.DeviceClass)
	}
	splits := d.Splits
	if splits.IsZero() {
		splits = defaultSplits(blocks)
	}
	mbUnit := 8 * int(splits.Ms)
	nbUnit := 8 * int(splits.Ns)
	if mbUnit == 0 || int(blocks.Mb)%mbUnit != 0 {
		problems = append(problems, newDescriptorError("blockDimensions.Mb", "%d is not a multiple of 8*Ms (%d)", blocks.Mb, mbUnit))
	}
	if nbUnit == 0 || int(blocks.Nb)%nbUnit != 0 {
		problems = append(problems, newDescriptorError("blockDimensions.Nb", "%d is not a multiple of 8*Ns (%d)", blocks.Nb, nbUnit))
	}

	for _, op := range []Operand{A, B, C} {
		expected := expectedLeadingBlockDim(op, d, blocks)
		override := leadingOverride(op, d.LeadingBlockDimensions)
		if override != 0 && override < expected {
			problems = append(problems, newDescriptorError(op.String()+".leadingBlockDimension", "override %d is less than expected extent %d", override, expected))
		}
	}

	return problems
}
