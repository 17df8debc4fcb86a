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

// Package cli implements the kernelgen command tree.
package cli

import (
	"github.com/spf13/cobra"
)

// Execute runs the kernelgen root command.
func Execute() error {
	root := &cobra.Command{
		Use:           "kernelgen",
		Short:         "Synthesise GEMM and attention GPU kernels without a device",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newGEMMCommand())
	root.AddCommand(newAttentionCommand())
	return root.Execute()
}
