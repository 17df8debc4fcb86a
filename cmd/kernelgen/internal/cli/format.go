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

package cli

import (
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// printKernel writes a kernel's shader source followed by a sorted
// "key: value" metadata table to cmd's output stream.
func printKernel(cmd *cobra.Command, source string, metadata map[string]any) {
	keys := lo.Keys(metadata)
	sort.Strings(keys)

	cmd.Println(source)
	cmd.Println("---")
	rows := lo.Map(keys, func(k string, _ int) [2]any {
		return [2]any{k, metadata[k]}
	})
	for _, row := range rows {
		cmd.Printf("%-32s %v\n", row[0], row[1])
	}
}
