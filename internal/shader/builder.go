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

// Package shader provides the text-emission primitives shared by the
// GEMM and attention kernel synthesisers. Where the teacher's
// cmd/hwygen/emitter.go builds a go/ast tree and hands it to
// go/printer, this package builds foreign (non-Go) shader source
// directly as text, since there is no Go AST to print: a
// strings.Builder wrapper that tracks indentation and renders
// function-constant declarations consistently across both
// synthesisers, so the emitted text stays byte-identical across
// repeated calls with the same inputs.
package shader

import (
	"fmt"
	"strings"
)

// Builder accumulates shader source text with tracked indentation.
// The zero value is ready to use.
type Builder struct {
	sb     strings.Builder
	indent int
}

// Indent increases the indentation level used by subsequent Line/Linef calls.
func (b *Builder) Indent() { b.indent++ }

// Dedent decreases the indentation level. It is a no-op below zero.
func (b *Builder) Dedent() {
	if b.indent > 0 {
		b.indent--
	}
}

// Line writes s at the current indentation level, followed by a newline.
func (b *Builder) Line(s string) {
	if s == "" {
		b.sb.WriteByte('\n')
		return
	}
	b.sb.WriteString(strings.Repeat("    ", b.indent))
	b.sb.WriteString(s)
	b.sb.WriteByte('\n')
}

// Linef formats and writes a line at the current indentation level.
func (b *Builder) Linef(format string, args ...any) {
	b.Line(fmt.Sprintf(format, args...))
}

// Block writes header, indents, invokes body, dedents, then writes "}".
// header should already contain the opening "{".
func (b *Builder) Block(header string, body func()) {
	b.Line(header)
	b.Indent()
	body()
	b.Dedent()
	b.Line("}")
}

// String returns the accumulated source text.
func (b *Builder) String() string {
	return b.sb.String()
}

// FunctionConstant renders one `constant <type> <name> [[function_constant(<index>)]];`
// declaration, the form both the GEMM and attention kernels use for
// their M/N/K and R/C/D problem-size constants (spec.md §6).
func FunctionConstant(name, typ string, index int) string {
	return fmt.Sprintf("constant %s %s [[function_constant(%d)]];", typ, name, index)
}

// BufferBinding renders one `device T* name [[buffer(index)]]` parameter
// fragment used in kernel entry-point signatures.
func BufferBinding(name, typ string, index int) string {
	return fmt.Sprintf("device %s* %s [[buffer(%d)]]", typ, name, index)
}
