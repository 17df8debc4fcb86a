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

import "fmt"

// DescriptorError reports a synchronous, fatal problem with a
// Descriptor discovered at Synthesize time (spec.md §7).
type DescriptorError struct {
	Field  string
	Reason string
}

func (e *DescriptorError) Error() string {
	return fmt.Sprintf("gemm: descriptor field %s: %s", e.Field, e.Reason)
}

func newDescriptorError(field, reason string, args ...any) *DescriptorError {
	return &DescriptorError{Field: field, Reason: fmt.Sprintf(reason, args...)}
}
