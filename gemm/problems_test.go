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

	"github.com/kernelforge/fusedkernels/precision"
)

func TestValidateAcceptsWellFormedDescriptor(t *testing.T) {
	if err := Validate(basicDescriptor()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestProblemsReportsEveryViolation(t *testing.T) {
	d := basicDescriptor()
	d.RegisterPrecisions.A = precision.BF16  // illegal pair: memory FP16, register BF16
	d.RegisterPrecisions.C = precision.BF16  // illegal accumulator
	d.LeadingBlockDimensions.B = 1           // too small an override

	problems := Problems(d)
	if len(problems) < 3 {
		t.Fatalf("Problems() returned %d problems, want at least 3: %v", len(problems), problems)
	}
}

func TestProblemsEmptyForValidDescriptor(t *testing.T) {
	if problems := Problems(basicDescriptor()); len(problems) != 0 {
		t.Fatalf("Problems() = %v, want none", problems)
	}
}

func TestValidateAndSynthesizeAgree(t *testing.T) {
	d := basicDescriptor()
	d.RegisterPrecisions.C = precision.BF16
	validateErr := Validate(d)
	_, synthesizeErr := Synthesize(d)
	if (validateErr == nil) != (synthesizeErr == nil) {
		t.Fatalf("Validate() = %v, Synthesize() = %v; expected to agree on validity", validateErr, synthesizeErr)
	}
}
