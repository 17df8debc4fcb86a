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

// Package dispatch computes grid and threadgroup sizes for
// synthesised kernels and sequences the five dispatches of a full
// attention forward/backward pass (spec.md §4.5). It is stateless:
// every function is a pure computation over its arguments.
package dispatch

import (
	"fmt"

	"github.com/kernelforge/fusedkernels/attention"
	"github.com/kernelforge/fusedkernels/gemm"
	"github.com/kernelforge/fusedkernels/precision"
)

// Record is one planned dispatch: the grid/threadgroup sizes, the
// threadgroup-memory allocation the pipeline must declare, the buffer
// roles in binding-index order, and an estimated op count for
// GFLOPS-style reporting by the (external) test harness.
type Record struct {
	Name                   string
	Grid                   [3]int
	Group                  [3]int
	ThreadgroupMemoryBytes int
	Bindings               []string
	EstimatedOps           uint64
}

// Limits describes the device constraints a planned dispatch must
// respect. A zero field means "unconstrained".
type Limits struct {
	MaxThreadsPerThreadgroup int
	MaxGridDimension         int
}

// LimitError reports that a planned dispatch would exceed a device
// limit (spec.md §7's dispatch error: "grid or threadgroup size
// exceeds device limits... surfaced synchronously; dispatch is not
// issued").
type LimitError struct {
	Record string
	Reason string
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("dispatch: %s exceeds device limits: %s", e.Record, e.Reason)
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func checkLimits(r Record, limits Limits) error {
	threads := r.Group[0] * r.Group[1] * r.Group[2]
	if limits.MaxThreadsPerThreadgroup > 0 && threads > limits.MaxThreadsPerThreadgroup {
		return &LimitError{Record: r.Name, Reason: fmt.Sprintf("threadgroup size %d exceeds max %d", threads, limits.MaxThreadsPerThreadgroup)}
	}
	if limits.MaxGridDimension > 0 {
		for i, dim := range r.Grid {
			if dim > limits.MaxGridDimension {
				return &LimitError{Record: r.Name, Reason: fmt.Sprintf("grid dimension %d (axis %d) exceeds max %d", dim, i, limits.MaxGridDimension)}
			}
		}
	}
	return nil
}

// PlanGEMM computes the dispatch record for a synthesised GEMM
// kernel: grid = (ceilDiv(N, Nb), ceilDiv(M, Mb), 1), group =
// (threadgroupSize, 1, 1) (spec.md §4.5).
func PlanGEMM(k gemm.Kernel, limits Limits) (Record, error) {
	d := k.Descriptor
	r := Record{
		Name:                   "gemm",
		Grid:                   [3]int{ceilDiv(int(d.MatrixDimensions.N), int(d.BlockDimensions.Nb)), ceilDiv(int(d.MatrixDimensions.M), int(d.BlockDimensions.Mb)), 1},
		Group:                  [3]int{k.ThreadgroupSize, 1, 1},
		ThreadgroupMemoryBytes: k.ThreadgroupMemoryAllocation,
		Bindings:               []string{"A", "B", "C"},
		EstimatedOps:           2 * uint64(d.MatrixDimensions.M) * uint64(d.MatrixDimensions.N) * uint64(d.MatrixDimensions.K),
	}
	if err := checkLimits(r, limits); err != nil {
		return Record{}, err
	}
	return r, nil
}

// attentionOps estimates the op count of one attention kernel
// dispatch as 4*R*C*D: one multiply-add for the QK^T score and one
// for the score-V product, each counted as two ops.
func attentionOps(d attention.Dims) uint64 {
	return 4 * uint64(d.R) * uint64(d.C) * uint64(d.D)
}

// planAttentionKernel builds the Record for one of the three
// attention kernel types, deriving its grid width along the axis
// spec.md §4.5 assigns to that type: R for forward/backwardQuery, C
// for backwardKeyValue.
func planAttentionKernel(name string, k attention.Kernel, bindings []string, limits Limits) (Record, error) {
	d := k.Descriptor
	var gridWidth int
	switch d.Type.(type) {
	case attention.BackwardKeyValue:
		gridWidth = ceilDiv(int(d.MatrixDimensions.C), int(k.ColBlock))
	default:
		gridWidth = ceilDiv(int(d.MatrixDimensions.R), int(k.RowBlock))
	}
	r := Record{
		Name:                   name,
		Grid:                   [3]int{gridWidth, 1, 1},
		Group:                  [3]int{k.ThreadgroupSize, 1, 1},
		ThreadgroupMemoryBytes: k.ThreadgroupMemoryAllocation,
		Bindings:               bindings,
		EstimatedOps:           attentionOps(d.MatrixDimensions),
	}
	if err := checkLimits(r, limits); err != nil {
		return Record{}, err
	}
	return r, nil
}

// PlanForward plans the forward-pass dispatch. Bindings follow the
// fixed buffer-binding scheme of spec.md §6: Q=0, K=1, V=2, O=3, and
// L=4 when the kernel stores the logsumexp.
func PlanForward(k attention.Kernel, limits Limits) (Record, error) {
	bindings := []string{"Q", "K", "V", "O"}
	if fwd, ok := k.Descriptor.Type.(attention.Forward); ok && fwd.StoreLogsumexp {
		bindings = append(bindings, "L")
	}
	return planAttentionKernel("forward", k, bindings, limits)
}

// PlanBackwardQuery plans the backward-query dispatch. Per spec.md
// §6's binding scheme there is no dedicated dQ slot; the host rebinds
// buffer index 0 (Q's slot) to the dQ accumulation buffer, which is
// reflected here as the first binding's role.
func PlanBackwardQuery(k attention.Kernel, limits Limits) (Record, error) {
	bindings := []string{"dQ(rebinds Q@0)", "K", "V", "O", "L", "dO", "D"}
	return planAttentionKernel("backwardQuery", k, bindings, limits)
}

// PlanBackwardKeyValue plans the backward-key-value dispatch.
func PlanBackwardKeyValue(k attention.Kernel, limits Limits) (Record, error) {
	bindings := []string{"Q", "K", "V", "dO", "L", "D", "dV"}
	if bkv, ok := k.Descriptor.Type.(attention.BackwardKeyValue); ok && bkv.StoreDerivativeST {
		bindings = append(bindings, "dST")
	}
	return planAttentionKernel("backwardKeyValue", k, bindings, limits)
}

// DerivedDKDescriptor builds the GEMM descriptor for stage 4 of the
// attention sequence: dK = dS^T * Q, shaped (M=R, N=D, K=C), with A
// (the dS^T scratch) in BF16 leading at bkv's padded stride, B and C
// in FP32, no transpose (spec.md §4.5 step 4).
func DerivedDKDescriptor(bkv attention.Kernel) gemm.Descriptor {
	d := bkv.Descriptor
	return gemm.Descriptor{
		MatrixDimensions:   gemm.Dims{M: uint32(d.MatrixDimensions.R), N: uint32(d.MatrixDimensions.D), K: uint32(d.MatrixDimensions.C)},
		MemoryPrecisions:   gemm.OperandPrecisions{A: precision.BF16, B: precision.FP32, C: precision.FP32},
		RegisterPrecisions: gemm.OperandPrecisions{A: precision.FP32, B: precision.FP32, C: precision.FP32},
		TransposeState:     gemm.TransposeState{A: false, B: false},
		DeviceClass:        d.DeviceClass,
		// K (= the attention C axis) is tiled at the same granularity
		// as the attention kernel's column blocking, since A is the
		// dS^T buffer that kernel wrote; Mb/Nb use a conservative
		// fixed tile independent of R/D.
		BlockDimensions:        gemm.BlockDims{Mb: 32, Nb: 32, Kb: bkv.ColBlock},
		LeadingBlockDimensions: gemm.LeadingBlockDims{A: bkv.LeadingDimensionDerivativeST},
	}
}

// DerivedDQDescriptor builds the GEMM descriptor for stage 5: dQ +=
// dS * K, the same shape and A buffer as DerivedDKDescriptor but with
// A transposed (spec.md §4.5 step 5).
func DerivedDQDescriptor(bkv attention.Kernel) gemm.Descriptor {
	d := DerivedDKDescriptor(bkv)
	d.TransposeState.A = true
	// The padded dS^T stride override only applies to the untransposed
	// (stage 4) access pattern; the transposed read defaults to the
	// tile's own Mb extent.
	d.LeadingBlockDimensions.A = 0
	d.LoadPreviousC = true // "+="
	return d
}

// Sequence is the full five-stage dispatch plan for one attention
// forward/backward pass (spec.md §4.5).
type Sequence struct {
	Forward          Record
	BackwardQuery    Record
	BackwardKeyValue Record
	DerivativeK      Record
	DerivativeQ      Record
}

// Records returns the sequence's five records in dispatch order.
func (s Sequence) Records() []Record {
	return []Record{s.Forward, s.BackwardQuery, s.BackwardKeyValue, s.DerivativeK, s.DerivativeQ}
}

// PlanAttentionSequence plans all five dispatches of a full attention
// forward/backward pass. fwd, bq and bkv must be Kernels synthesised
// from descriptors sharing the same matrix dimensions; dK and dQ are
// the two kernels synthesised from DerivedDKDescriptor(bkv) and
// DerivedDQDescriptor(bkv).
func PlanAttentionSequence(fwd, bq, bkv attention.Kernel, dK, dQ gemm.Kernel, limits Limits) (Sequence, error) {
	fwdRec, err := PlanForward(fwd, limits)
	if err != nil {
		return Sequence{}, err
	}
	bqRec, err := PlanBackwardQuery(bq, limits)
	if err != nil {
		return Sequence{}, err
	}
	bkvRec, err := PlanBackwardKeyValue(bkv, limits)
	if err != nil {
		return Sequence{}, err
	}
	dKRec, err := PlanGEMM(dK, limits)
	if err != nil {
		return Sequence{}, err
	}
	dKRec.Name = "derivativeK"
	dQRec, err := PlanGEMM(dQ, limits)
	if err != nil {
		return Sequence{}, err
	}
	dQRec.Name = "derivativeQ"

	return Sequence{
		Forward:          fwdRec,
		BackwardQuery:    bqRec,
		BackwardKeyValue: bkvRec,
		DerivativeK:      dKRec,
		DerivativeQ:      dQRec,
	}, nil
}
