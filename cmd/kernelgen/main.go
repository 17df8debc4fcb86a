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

// Command kernelgen synthesises a GEMM or attention kernel from a
// descriptor and prints its shader source and layout metadata. It
// never touches a GPU: it is a way to inspect what the synthesiser
// would hand the driver.
//
// Usage:
//
//	kernelgen gemm --m 256 --n 256 --k 256 --a-precision half --b-precision half --c-precision float
//	kernelgen attention --r 64 --c 64 --d 32 --type forward --store-logsumexp
//	kernelgen gemm --descriptor desc.json
package main

import (
	"fmt"
	"os"

	"github.com/kernelforge/fusedkernels/cmd/kernelgen/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
