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

package fingerprint

import "testing"

func TestDeterministic(t *testing.T) {
	build := func() uint64 {
		return New().WriteInt(32).WriteInt(64).WriteBool(true).WriteString("fp32").Sum64()
	}
	a, b := build(), build()
	if a != b {
		t.Fatalf("fingerprint not deterministic: %d vs %d", a, b)
	}
}

func TestDistinguishesFields(t *testing.T) {
	a := New().WriteInt(32).WriteInt(64).Sum64()
	b := New().WriteInt(64).WriteInt(32).Sum64()
	if a == b {
		t.Fatal("fingerprint did not distinguish field order")
	}
}
