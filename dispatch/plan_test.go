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

package dispatch

import (
	"testing"

	"github.com/kernelforge/fusedkernels/attention"
	"github.com/kernelforge/fusedkernels/gemm"
	"github.com/kernelforge/fusedkernels/precision"
)

func gemmDescriptor(m, n, k uint32) gemm.Descriptor {
	return gemm.Descriptor{
		MatrixDimensions:   gemm.Dims{M: m, N: n, K: k},
		MemoryPrecisions:   gemm.OperandPrecisions{A: precision.FP16, B: precision.FP16, C: precision.FP32},
		RegisterPrecisions: gemm.OperandPrecisions{A: precision.FP32, B: precision.FP32, C: precision.FP32},
	}
}

var gemmSizes = []uint32{7, 8, 9, 16, 17, 31, 32, 33, 127, 128, 129, 151, 152, 153}

func TestPlanGEMMGridCoversMatrixAcrossSizes(t *testing.T) {
	for _, m := range gemmSizes {
		for _, n := range gemmSizes {
			k, err := gemm.Synthesize(gemmDescriptor(m, n, 64))
			if err != nil {
				t.Fatalf("Synthesize(%d,%d): %v", m, n, err)
			}
			rec, err := PlanGEMM(k, Limits{})
			if err != nil {
				t.Fatalf("PlanGEMM(%d,%d): %v", m, n, err)
			}
			wantGridX := ceilDiv(int(n), int(k.Descriptor.BlockDimensions.Nb))
			wantGridY := ceilDiv(int(m), int(k.Descriptor.BlockDimensions.Mb))
			if rec.Grid != [3]int{wantGridX, wantGridY, 1} {
				t.Errorf("M=%d N=%d: Grid = %v, want (%d,%d,1)", m, n, rec.Grid, wantGridX, wantGridY)
			}
			if rec.Group != [3]int{k.ThreadgroupSize, 1, 1} {
				t.Errorf("M=%d N=%d: Group = %v, want (%d,1,1)", m, n, rec.Group, k.ThreadgroupSize)
			}
			wantOps := 2 * uint64(m) * uint64(n) * uint64(64)
			if rec.EstimatedOps != wantOps {
				t.Errorf("M=%d N=%d: EstimatedOps = %d, want %d", m, n, rec.EstimatedOps, wantOps)
			}
		}
	}
}

func TestPlanGEMMRejectsOversizedThreadgroup(t *testing.T) {
	k, err := gemm.Synthesize(gemmDescriptor(128, 128, 64))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	_, err = PlanGEMM(k, Limits{MaxThreadsPerThreadgroup: 1})
	if err == nil {
		t.Fatal("expected LimitError for undersized MaxThreadsPerThreadgroup")
	}
	if _, ok := err.(*LimitError); !ok {
		t.Fatalf("error type = %T, want *LimitError", err)
	}
}

func attentionDescriptors(r, c, d uint16) (attention.Descriptor, attention.Descriptor, attention.Descriptor) {
	base := attention.Descriptor{
		MatrixDimensions: attention.Dims{R: r, C: c, D: d},
		MemoryPrecisions: attention.OperandPrecisions{Q: precision.FP16, K: precision.FP16, V: precision.FP16, O: precision.FP16},
	}
	fwd := base
	fwd.Type = attention.Forward{StoreLogsumexp: true}
	bq := base
	bq.Type = attention.BackwardQuery{}
	bkv := base
	bkv.Type = attention.BackwardKeyValue{StoreDerivativeST: true}
	return fwd, bq, bkv
}

func TestPlanAttentionSequenceFiveStages(t *testing.T) {
	fwdD, bqD, bkvD := attentionDescriptors(64, 64, 32)
	fwd, err := attention.Synthesize(fwdD)
	if err != nil {
		t.Fatalf("Synthesize(forward): %v", err)
	}
	bq, err := attention.Synthesize(bqD)
	if err != nil {
		t.Fatalf("Synthesize(backwardQuery): %v", err)
	}
	bkv, err := attention.Synthesize(bkvD)
	if err != nil {
		t.Fatalf("Synthesize(backwardKeyValue): %v", err)
	}

	dKDesc := DerivedDKDescriptor(bkv)
	dK, err := gemm.Synthesize(dKDesc)
	if err != nil {
		t.Fatalf("Synthesize(dK): %v", err)
	}
	dQDesc := DerivedDQDescriptor(bkv)
	if !dQDesc.TransposeState.A {
		t.Error("DerivedDQDescriptor must transpose A")
	}
	dQ, err := gemm.Synthesize(dQDesc)
	if err != nil {
		t.Fatalf("Synthesize(dQ): %v", err)
	}

	seq, err := PlanAttentionSequence(fwd, bq, bkv, dK, dQ, Limits{})
	if err != nil {
		t.Fatalf("PlanAttentionSequence: %v", err)
	}
	records := seq.Records()
	if len(records) != 5 {
		t.Fatalf("len(Records()) = %d, want 5", len(records))
	}
	wantNames := []string{"forward", "backwardQuery", "backwardKeyValue", "derivativeK", "derivativeQ"}
	for i, want := range wantNames {
		if records[i].Name != want {
			t.Errorf("Records()[%d].Name = %q, want %q", i, records[i].Name, want)
		}
	}

	foundDQRebind := false
	for _, b := range seq.BackwardQuery.Bindings {
		if b == "dQ(rebinds Q@0)" {
			foundDQRebind = true
		}
	}
	if !foundDQRebind {
		t.Error("expected backwardQuery bindings to include the dQ rebind marker")
	}

	found := false
	for _, b := range seq.BackwardKeyValue.Bindings {
		if b == "dST" {
			found = true
		}
	}
	if !found {
		t.Error("expected backwardKeyValue bindings to include dST when StoreDerivativeST is set")
	}
}

func TestPlanAttentionSequenceRagged(t *testing.T) {
	sizes := []uint16{10, 80}
	heads := []uint16{3, 80}
	for _, rc := range sizes {
		for _, d := range heads {
			fwdD, bqD, bkvD := attentionDescriptors(rc, rc, d)
			fwd, err := attention.Synthesize(fwdD)
			if err != nil {
				t.Fatalf("R=C=%d D=%d: Synthesize(forward): %v", rc, d, err)
			}
			bq, err := attention.Synthesize(bqD)
			if err != nil {
				t.Fatalf("R=C=%d D=%d: Synthesize(backwardQuery): %v", rc, d, err)
			}
			bkv, err := attention.Synthesize(bkvD)
			if err != nil {
				t.Fatalf("R=C=%d D=%d: Synthesize(backwardKeyValue): %v", rc, d, err)
			}
			dK, err := gemm.Synthesize(DerivedDKDescriptor(bkv))
			if err != nil {
				t.Fatalf("R=C=%d D=%d: Synthesize(dK): %v", rc, d, err)
			}
			dQ, err := gemm.Synthesize(DerivedDQDescriptor(bkv))
			if err != nil {
				t.Fatalf("R=C=%d D=%d: Synthesize(dQ): %v", rc, d, err)
			}
			if _, err := PlanAttentionSequence(fwd, bq, bkv, dK, dQ, Limits{}); err != nil {
				t.Fatalf("R=C=%d D=%d: PlanAttentionSequence: %v", rc, d, err)
			}
		}
	}
}
