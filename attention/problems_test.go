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
	"testing"

	"github.com/kernelforge/fusedkernels/precision"
)

func TestValidateAcceptsWellFormedDescriptor(t *testing.T) {
	if err := Validate(forwardDescriptor()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestProblemsReportsEveryViolation(t *testing.T) {
	d := forwardDescriptor()
	d.MemoryPrecisions.Q = precision.Precision(7)
	d.MemoryPrecisions.K = precision.Precision(9)
	d.MatrixDimensions.D = 0

	problems := Problems(d)
	if len(problems) < 3 {
		t.Fatalf("Problems() returned %d problems, want at least 3: %v", len(problems), problems)
	}
}

func TestProblemsEmptyForValidDescriptor(t *testing.T) {
	if problems := Problems(forwardDescriptor()); len(problems) != 0 {
		t.Fatalf("Problems() = %v, want none", problems)
	}
}
