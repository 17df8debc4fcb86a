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

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kernelforge/fusedkernels/precision"
)

func forwardDescriptor() Descriptor {
	return Descriptor{
		MatrixDimensions: Dims{R: 64, C: 64, D: 32},
		MemoryPrecisions: OperandPrecisions{Q: precision.FP16, K: precision.FP16, V: precision.FP16, O: precision.FP16},
		Type:             Forward{StoreLogsumexp: true},
	}
}

func TestSynthesizeDeterministic(t *testing.T) {
	d := forwardDescriptor()
	k1, err := Synthesize(d)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	k2, err := Synthesize(d)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if k1.Source != k2.Source {
		t.Fatal("Synthesize is not deterministic: source text differs")
	}
	if diff := cmp.Diff(k1, k2); diff != "" {
		t.Fatalf("Synthesize is not deterministic (-k1 +k2):\n%s", diff)
	}
	if k1.Fingerprint() != k2.Fingerprint() {
		t.Fatal("identical descriptors produced different fingerprints")
	}
}

func TestForwardEmitsLogsumexpWhenRequested(t *testing.T) {
	d := forwardDescriptor()
	k, err := Synthesize(d)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !strings.Contains(k.Source, "storeLogsumexp") {
		t.Error("expected forward kernel with StoreLogsumexp to emit a storeLogsumexp call")
	}

	d.Type = Forward{StoreLogsumexp: false}
	k2, err := Synthesize(d)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if strings.Contains(k2.Source, "storeLogsumexp") {
		t.Error("expected forward kernel without StoreLogsumexp to omit storeLogsumexp call")
	}
}

func TestBackwardKeyValueEmitsDerivativeSTOnlyWhenRequested(t *testing.T) {
	d := forwardDescriptor()
	d.Type = BackwardKeyValue{StoreDerivativeST: true}
	k, err := Synthesize(d)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !strings.Contains(k.Source, "storeDerivativeSTDirect") {
		t.Error("expected backward-key-value kernel with StoreDerivativeST to emit storeDerivativeSTDirect")
	}
	if !strings.Contains(k.Source, "device bfloat* dST") {
		t.Error("expected dS^T scratch buffer to be declared bfloat, per spec.md's bandwidth rationale")
	}

	d.Type = BackwardKeyValue{StoreDerivativeST: false}
	k2, err := Synthesize(d)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if strings.Contains(k2.Source, "storeDerivativeSTDirect") {
		t.Error("expected backward-key-value kernel without StoreDerivativeST to omit storeDerivativeSTDirect")
	}
}

func TestLeadingDimensionDerivativeSTRule(t *testing.T) {
	d := forwardDescriptor()
	d.MatrixDimensions = Dims{R: 64, C: 100, D: 32} // C not a multiple of Cb
	d.Type = BackwardKeyValue{StoreDerivativeST: true}
	k, err := Synthesize(d)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if k.LeadingDimensionDerivativeST < k.Descriptor.MatrixDimensions.C {
		t.Errorf("LeadingDimensionDerivativeST = %d, want >= C = %d", k.LeadingDimensionDerivativeST, k.Descriptor.MatrixDimensions.C)
	}
	if k.LeadingDimensionDerivativeST%k.ColBlock != 0 {
		t.Errorf("LeadingDimensionDerivativeST = %d is not aligned to ColBlock = %d", k.LeadingDimensionDerivativeST, k.ColBlock)
	}
}

func TestSynthesizeRejectsZeroHeadDimension(t *testing.T) {
	d := forwardDescriptor()
	d.MatrixDimensions.D = 0
	if _, err := Synthesize(d); err == nil {
		t.Fatal("expected descriptor error for zero head dimension")
	}
}

func TestSynthesizeRejectsUnrecognizedPrecision(t *testing.T) {
	d := forwardDescriptor()
	d.MemoryPrecisions.Q = precision.Precision(99)
	if _, err := Synthesize(d); err == nil {
		t.Fatal("expected descriptor error for unrecognized precision")
	}
}

func TestThreeKernelTypesProduceDistinctSource(t *testing.T) {
	base := forwardDescriptor()
	fwd, err := Synthesize(base)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	base.Type = BackwardQuery{}
	bq, err := Synthesize(base)
	if err != nil {
		t.Fatalf("backwardQuery: %v", err)
	}
	base.Type = BackwardKeyValue{}
	bkv, err := Synthesize(base)
	if err != nil {
		t.Fatalf("backwardKeyValue: %v", err)
	}
	sources := map[string]string{"forward": fwd.Source, "backwardQuery": bq.Source, "backwardKeyValue": bkv.Source}
	for a, sa := range sources {
		for b, sb := range sources {
			if a != b && sa == sb {
				t.Errorf("%s and %s produced identical source", a, b)
			}
		}
	}
}
