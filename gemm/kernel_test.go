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
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kernelforge/fusedkernels/precision"
)

func basicDescriptor() Descriptor {
	return Descriptor{
		MatrixDimensions:   Dims{M: 256, N: 256, K: 256},
		MemoryPrecisions:   OperandPrecisions{A: precision.FP16, B: precision.FP16, C: precision.FP32},
		RegisterPrecisions: OperandPrecisions{A: precision.FP32, B: precision.FP32, C: precision.FP32},
	}
}

func TestSynthesizeDeterministic(t *testing.T) {
	d := basicDescriptor()
	k1, err := Synthesize(d)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	k2, err := Synthesize(d)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if k1.Source != k2.Source {
		t.Fatal("Synthesize is not deterministic: source text differs across identical descriptors")
	}
	if diff := cmp.Diff(k1, k2); diff != "" {
		t.Fatalf("Synthesize is not deterministic (-k1 +k2):\n%s", diff)
	}
	if k1.Fingerprint() != k2.Fingerprint() {
		t.Fatal("identical descriptors produced different fingerprints")
	}
}

func TestSynthesizeRejectsBF16Accumulator(t *testing.T) {
	d := basicDescriptor()
	d.RegisterPrecisions.C = precision.BF16
	if _, err := Synthesize(d); err == nil {
		t.Fatal("expected error for BF16 accumulator, got nil")
	}
}

func TestSynthesizeRejectsIllegalRegisterPrecision(t *testing.T) {
	d := basicDescriptor()
	d.MemoryPrecisions.A = precision.FP16
	d.RegisterPrecisions.A = precision.BF16
	if _, err := Synthesize(d); err == nil {
		t.Fatal("expected error for illegal (FP16 memory, BF16 register) pair, got nil")
	}
}

func TestTileAlignmentInvariant(t *testing.T) {
	cases := []Descriptor{
		basicDescriptor(),
		func() Descriptor {
			d := basicDescriptor()
			d.BlockDimensions = BlockDims{Mb: 48, Nb: 48, Kb: 32}
			d.Splits = Splits{Ms: 2, Ns: 2}
			return d
		}(),
	}
	for i, d := range cases {
		k, err := Synthesize(d)
		if err != nil {
			t.Fatalf("case %d: Synthesize: %v", i, err)
		}
		mbUnit := 8 * int(k.Descriptor.Splits.Ms)
		nbUnit := 8 * int(k.Descriptor.Splits.Ns)
		if int(k.Descriptor.BlockDimensions.Mb)%mbUnit != 0 {
			t.Errorf("case %d: Mb=%d not a multiple of 8*Ms=%d", i, k.Descriptor.BlockDimensions.Mb, mbUnit)
		}
		if int(k.Descriptor.BlockDimensions.Nb)%nbUnit != 0 {
			t.Errorf("case %d: Nb=%d not a multiple of 8*Ns=%d", i, k.Descriptor.BlockDimensions.Nb, nbUnit)
		}
		wantTG := 32 * int(k.Descriptor.Splits.Ms) * int(k.Descriptor.Splits.Ns)
		if k.ThreadgroupSize != wantTG {
			t.Errorf("case %d: ThreadgroupSize = %d, want %d", i, k.ThreadgroupSize, wantTG)
		}
	}
}

func TestLeadingBlockDimensionInvariant(t *testing.T) {
	d := basicDescriptor()
	d.BlockDimensions = BlockDims{Mb: 32, Nb: 32, Kb: 32}
	d.Splits = Splits{Ms: 1, Ns: 1}
	d.LeadingBlockDimensions = LeadingBlockDims{A: 40} // override, must be >= Kb(32)
	k, err := Synthesize(d)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if k.ResolvedLeadingBlockDimensions.A != 40 {
		t.Errorf("ResolvedLeadingBlockDimensions.A = %d, want 40", k.ResolvedLeadingBlockDimensions.A)
	}
	if k.ResolvedLeadingBlockDimensions.B < 32 || k.ResolvedLeadingBlockDimensions.C < 32 {
		t.Errorf("unset leading dims resolved below expected extent: %+v", k.ResolvedLeadingBlockDimensions)
	}
}

func TestLeadingBlockDimensionOverrideTooSmallRejected(t *testing.T) {
	d := basicDescriptor()
	d.BlockDimensions = BlockDims{Mb: 32, Nb: 32, Kb: 32}
	d.Splits = Splits{Ms: 1, Ns: 1}
	d.LeadingBlockDimensions = LeadingBlockDims{A: 8} // less than expected Kb=32
	if _, err := Synthesize(d); err == nil {
		t.Fatal("expected descriptor error for undersized leading block dimension override")
	}
}

func TestLoadPreviousCConstructionSucceeds(t *testing.T) {
	d := basicDescriptor()
	d.LoadPreviousC = true
	k, err := Synthesize(d)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if k.Source == "" {
		t.Fatal("expected non-empty source for load-previous-C kernel")
	}
}

func TestEdgeBlockUsesAsyncStore(t *testing.T) {
	d := basicDescriptor()
	d.MatrixDimensions = Dims{M: 250, N: 250, K: 256} // not a multiple of Mb/Nb
	d.BlockDimensions = BlockDims{Mb: 32, Nb: 32, Kb: 32}
	d.Splits = Splits{Ms: 1, Ns: 1}
	k, err := Synthesize(d)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if canDirectAccessStore(k) {
		t.Fatal("expected edge block (250 not a multiple of 32) to require async-copy store")
	}
}

func TestDefaultTilesSatisfyInvariantsAcrossPrecisions(t *testing.T) {
	combos := []OperandPrecisions{
		{A: precision.FP32, B: precision.FP32, C: precision.FP32},
		{A: precision.FP16, B: precision.FP16, C: precision.FP32},
		{A: precision.BF16, B: precision.BF16, C: precision.FP32},
	}
	for _, mem := range combos {
		d := Descriptor{
			MatrixDimensions:   Dims{M: 512, N: 512, K: 512},
			MemoryPrecisions:   mem,
			RegisterPrecisions: OperandPrecisions{A: precision.FP32, B: precision.FP32, C: precision.FP32},
		}
		k, err := Synthesize(d)
		if err != nil {
			t.Fatalf("mem=%+v: Synthesize: %v", mem, err)
		}
		if k.ThreadgroupMemoryAllocation <= 0 {
			t.Errorf("mem=%+v: non-positive threadgroup memory allocation", mem)
		}
	}
}
