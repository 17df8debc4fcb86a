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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kernelforge/fusedkernels/attention"
	"github.com/kernelforge/fusedkernels/precision"
)

func newAttentionCommand() *cobra.Command {
	var (
		r, c, d                                       uint16
		qPrec, kPrec, vPrec, oPrec                    string
		transposeQ, transposeK, transposeV, transposeO bool
		kernelType                                    string
		storeLogsumexp, storeDerivativeST             bool
		deviceClass                                   string
		blockR, blockC                                uint16
	)

	cmd := &cobra.Command{
		Use:   "attention",
		Short: "Synthesise a fused attention kernel (forward, backwardQuery or backwardKeyValue)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dc, err := parseDeviceClass(deviceClass)
			if err != nil {
				return err
			}
			memQ, err := precision.ParsePrecision(qPrec)
			if err != nil {
				return err
			}
			memK, err := precision.ParsePrecision(kPrec)
			if err != nil {
				return err
			}
			memV, err := precision.ParsePrecision(vPrec)
			if err != nil {
				return err
			}
			memO, err := precision.ParsePrecision(oPrec)
			if err != nil {
				return err
			}

			var kt attention.KernelType
			switch kernelType {
			case "forward":
				kt = attention.Forward{StoreLogsumexp: storeLogsumexp}
			case "backwardQuery":
				kt = attention.BackwardQuery{StoreDerivativeST: storeDerivativeST}
			case "backwardKeyValue":
				kt = attention.BackwardKeyValue{StoreDerivativeST: storeDerivativeST}
			default:
				return fmt.Errorf("unrecognized kernel type %q (want forward, backwardQuery or backwardKeyValue)", kernelType)
			}

			desc := attention.Descriptor{
				MatrixDimensions: attention.Dims{R: r, C: c, D: d},
				MemoryPrecisions: attention.OperandPrecisions{Q: memQ, K: memK, V: memV, O: memO},
				TransposeState:   attention.TransposeState{Q: transposeQ, K: transposeK, V: transposeV, O: transposeO},
				Type:             kt,
				DeviceClass:      dc,
				BlockR:           blockR,
				BlockC:           blockC,
			}

			k, err := attention.Synthesize(desc)
			if err != nil {
				return fmt.Errorf("synthesize attention kernel: %w", err)
			}
			printKernel(cmd, k.Source, map[string]any{
				"fingerprint":                  k.Fingerprint(),
				"rowBlock":                     k.RowBlock,
				"colBlock":                     k.ColBlock,
				"threadgroupSize":              k.ThreadgroupSize,
				"threadgroupMemoryAllocation":  k.ThreadgroupMemoryAllocation,
				"leadingDimensionDerivativeST": k.LeadingDimensionDerivativeST,
			})
			return nil
		},
	}

	cmd.Flags().Uint16Var(&r, "r", 0, "row count")
	cmd.Flags().Uint16Var(&c, "c", 0, "column count")
	cmd.Flags().Uint16Var(&d, "d", 0, "head dimension")
	cmd.Flags().StringVar(&qPrec, "q-precision", "half", "Q memory precision")
	cmd.Flags().StringVar(&kPrec, "k-precision", "half", "K memory precision")
	cmd.Flags().StringVar(&vPrec, "v-precision", "half", "V memory precision")
	cmd.Flags().StringVar(&oPrec, "o-precision", "half", "O memory precision")
	cmd.Flags().BoolVar(&transposeQ, "transpose-q", false, "transpose Q")
	cmd.Flags().BoolVar(&transposeK, "transpose-k", false, "transpose K")
	cmd.Flags().BoolVar(&transposeV, "transpose-v", false, "transpose V")
	cmd.Flags().BoolVar(&transposeO, "transpose-o", false, "transpose O")
	cmd.Flags().StringVar(&kernelType, "type", "forward", "forward|backwardQuery|backwardKeyValue")
	cmd.Flags().BoolVar(&storeLogsumexp, "store-logsumexp", false, "forward: write the L row statistic")
	cmd.Flags().BoolVar(&storeDerivativeST, "store-derivative-st", false, "backward: materialise dS^T to device memory")
	cmd.Flags().StringVar(&deviceClass, "device", "generic", "device class: generic|apple7|apple9")
	cmd.Flags().Uint16Var(&blockR, "block-r", 0, "row block override")
	cmd.Flags().Uint16Var(&blockC, "block-c", 0, "column block override")

	return cmd
}
