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

import "github.com/kernelforge/fusedkernels/internal/shader"

// Buffer binding indices fixed by spec.md §6.
const (
	bufQ   = 0
	bufK   = 1
	bufV   = 2
	bufO   = 3
	bufL   = 4
	bufDO  = 5
	bufD   = 6
	bufDV  = 7
	bufDST = 8
)

// emitSource renders the `attention` shader entry point for an
// already block-resolved Kernel. Pure function of k.
func emitSource(k Kernel) string {
	var b shader.Builder

	b.Line("// generated by fusedkernels/attention — do not edit by hand")
	b.Linef("// kernel type: %s", k.Descriptor.Type.String())
	b.Line(shader.FunctionConstant("R", "uint", 0))
	b.Line(shader.FunctionConstant("C", "uint", 1))
	b.Line(shader.FunctionConstant("D", "ushort", 2))
	b.Line("")

	switch t := k.Descriptor.Type.(type) {
	case Forward:
		emitForward(&b, k, t)
	case BackwardQuery:
		emitBackwardQuery(&b, k, t)
	case BackwardKeyValue:
		emitBackwardKeyValue(&b, k, t)
	}

	return b.String()
}

func emitSignature(b *shader.Builder, bindings []string) {
	b.Line("kernel void attention(")
	b.Indent()
	for i, bind := range bindings {
		if i < len(bindings)-1 {
			b.Line(bind + ",")
		} else {
			b.Line(bind)
		}
	}
	b.Line("uint3 gid [[threadgroup_position_in_grid]],")
	b.Line("ushort sid [[simdgroup_index_in_threadgroup]],")
	b.Line("ushort lid [[thread_index_in_simdgroup]])")
	b.Dedent()
}

func emitStreamingSoftmaxLoop(b *shader.Builder, k Kernel, streamed, comment string) {
	b.Linef("// %s", comment)
	b.Linef("for (uint block = 0; block < C; block += %d) {", k.ColBlock)
	b.Indent()
	b.Linef("simdgroup_async_copy(tg%s, %s, block, D);", streamed, streamed)
	b.Line("threadgroup_barrier(mem_flags::mem_threadgroup);")
	b.Line("// running max/sum update, register-tile accumulation")
	b.Line("float blockMax = rowwiseMax(scores);")
	b.Line("float scale = exp2(runningMax - max(runningMax, blockMax));")
	b.Line("runningSum = runningSum * scale + rowwiseSumExp2(scores, blockMax);")
	b.Line("runningMax = max(runningMax, blockMax);")
	b.Dedent()
	b.Line("}")
}

// emitForward emits the forward attention kernel: streams K/V across
// C for each block of R, writes O and, if requested, L.
func emitForward(b *shader.Builder, k Kernel, t Forward) {
	d := k.Descriptor
	bindings := []string{
		shader.BufferBinding("Q", d.MemoryPrecisions.Q.String(), bufQ),
		shader.BufferBinding("K", d.MemoryPrecisions.K.String(), bufK),
		shader.BufferBinding("V", d.MemoryPrecisions.V.String(), bufV),
		shader.BufferBinding("O", d.MemoryPrecisions.O.String(), bufO),
	}
	if t.StoreLogsumexp {
		bindings = append(bindings, shader.BufferBinding("L", "float", bufL))
	}
	emitSignature(b, bindings)
	b.Block("{", func() {
		b.Linef("const uint rowOrigin = gid.x * %d;", k.RowBlock)
		b.Line("float runningMax = -INFINITY;")
		b.Line("float runningSum = 0.0;")
		b.Linef("threadgroup %s tgK[%d];", d.MemoryPrecisions.K.String(), int(k.ColBlock)*int(d.MatrixDimensions.D))
		emitStreamingSoftmaxLoop(b, k, "K", "stream K/V tiles, accumulate softmax(QK^T)V into registers")
		b.Line("storeOutputDirect(O, accum, rowOrigin, D);")
		if t.StoreLogsumexp {
			b.Line("// L scaled by 1/ln2 so shaders can use exp2 (spec.md row-statistic contract)")
			b.Line("storeLogsumexp(L, rowOrigin, runningMax + log2(runningSum));")
		}
	})
}

// emitBackwardQuery emits the backward-query kernel: streams K/V
// across C for each block of R, reads the saved L, writes dQ and D.
// t.StoreDerivativeST is part of the BackwardQuery descriptor for
// symmetry with BackwardKeyValue, but only the backward-key-value
// kernel ever materialises dS^T (spec.md §4.3); backward-query never
// reads it.
func emitBackwardQuery(b *shader.Builder, k Kernel, t BackwardQuery) {
	d := k.Descriptor
	_ = t
	bindings := []string{
		shader.BufferBinding("Q", d.MemoryPrecisions.Q.String(), bufQ),
		shader.BufferBinding("K", d.MemoryPrecisions.K.String(), bufK),
		shader.BufferBinding("V", d.MemoryPrecisions.V.String(), bufV),
		shader.BufferBinding("O", d.MemoryPrecisions.O.String(), bufO),
		shader.BufferBinding("L", "float", bufL),
		shader.BufferBinding("dO", d.MemoryPrecisions.O.String(), bufDO),
		shader.BufferBinding("D", "float", bufD),
	}
	emitSignature(b, bindings)
	b.Block("{", func() {
		b.Linef("const uint rowOrigin = gid.x * %d;", k.RowBlock)
		b.Line("float rowL = loadLogsumexp(L, rowOrigin);")
		b.Linef("threadgroup %s tgK[%d];", d.MemoryPrecisions.K.String(), int(k.ColBlock)*int(d.MatrixDimensions.D))
		emitStreamingSoftmaxLoop(b, k, "K", "stream K/V tiles, recompute softmax(QK^T) from saved L, accumulate dQ")
		b.Line("// dQ has no buffer index of its own (spec.md §6); the host rebinds")
		b.Line("// buffer index 0 (Q's slot) to the dQ scratch buffer for this dispatch.")
		b.Line("storeOutputDirect(Q, dQ_accum, rowOrigin, D);")
		b.Line("// D term scaled by 1/sqrt(D) (spec.md row-statistic contract)")
		b.Line("storeRowReduction(D, rowOrigin, rsqrt(float(D)) * dotProduct(dO_accum, O_accum));")
	})
}

// emitBackwardKeyValue emits the backward-key-value kernel: streams Q
// across R for each block of C, reads L and D, writes dV and,
// depending on StoreDerivativeST, the dS^T scratch buffer.
func emitBackwardKeyValue(b *shader.Builder, k Kernel, t BackwardKeyValue) {
	d := k.Descriptor
	bindings := []string{
		shader.BufferBinding("Q", d.MemoryPrecisions.Q.String(), bufQ),
		shader.BufferBinding("K", d.MemoryPrecisions.K.String(), bufK),
		shader.BufferBinding("V", d.MemoryPrecisions.V.String(), bufV),
		shader.BufferBinding("dO", d.MemoryPrecisions.O.String(), bufDO),
		shader.BufferBinding("L", "float", bufL),
		shader.BufferBinding("D", "float", bufD),
		shader.BufferBinding("dV", d.MemoryPrecisions.V.String(), bufDV),
	}
	if t.StoreDerivativeST {
		bindings = append(bindings, shader.BufferBinding("dST", "bfloat", bufDST))
	}
	emitSignature(b, bindings)
	b.Block("{", func() {
		b.Linef("const uint colOrigin = gid.x * %d;", k.ColBlock)
		b.Linef("threadgroup %s tgQ[%d];", d.MemoryPrecisions.Q.String(), int(k.RowBlock)*int(d.MatrixDimensions.D))
		b.Linef("// stream Q/dO tiles across R in chunks of %d, accumulate dV in registers", k.RowBlock)
		b.Linef("for (uint block = 0; block < R; block += %d) {", k.RowBlock)
		b.Indent()
		b.Line("simdgroup_async_copy(tgQ, Q, block, D);")
		b.Line("threadgroup_barrier(mem_flags::mem_threadgroup);")
		b.Line("// dS = P * (dP - D), P recomputed from saved L")
		if t.StoreDerivativeST {
			b.Linef("storeDerivativeSTDirect(dST, dSTile, colOrigin, block, %d);", k.LeadingDimensionDerivativeST)
		}
		b.Dedent()
		b.Line("}")
		b.Line("storeOutputDirect(dV, accum, colOrigin, D);")
	})
}
