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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kernelforge/fusedkernels/gemm"
	"github.com/kernelforge/fusedkernels/precision"
)

// gemmDescriptorDTO is the JSON shape accepted by --descriptor. Field
// names mirror gemm.Descriptor, but precisions and the device class
// are spelled as strings ("half", "apple9"), and block dimensions,
// leading block dimensions and splits are not accepted: the
// synthesiser always picks their defaults for a descriptor file.
type gemmDescriptorDTO struct {
	MatrixDimensions struct{ M, N, K uint32 } `json:"matrixDimensions"`
	MemoryPrecisions struct{ A, B, C string } `json:"memoryPrecisions"`
	RegisterPrecisions struct{ A, B, C string } `json:"registerPrecisions"`
	TransposeState   struct{ A, B bool }       `json:"transposeState"`
	DeviceClass      string                    `json:"deviceClass"`
	PreferAsyncLoad  bool                      `json:"preferAsyncLoad"`
	PreferAsyncStore bool                      `json:"preferAsyncStore"`
	LoadPreviousC    bool                      `json:"loadPreviousC"`
}

func newGEMMCommand() *cobra.Command {
	var (
		m, n, k                                     uint32
		aPrec, bPrec, cPrec, aRegPrec, bRegPrec, cRegPrec string
		transposeA, transposeB                      bool
		deviceClass                                 string
		preferAsyncLoad, preferAsyncStore, loadPrevC bool
		descriptorFile                               string
	)

	cmd := &cobra.Command{
		Use:   "gemm",
		Short: "Synthesise a tiled GEMM kernel",
		RunE: func(cmd *cobra.Command, args []string) error {
			var d gemm.Descriptor
			if descriptorFile != "" {
				parsed, err := loadGEMMDescriptor(descriptorFile)
				if err != nil {
					return err
				}
				d = parsed
			} else {
				dc, err := parseDeviceClass(deviceClass)
				if err != nil {
					return err
				}
				memA, err := precision.ParsePrecision(aPrec)
				if err != nil {
					return err
				}
				memB, err := precision.ParsePrecision(bPrec)
				if err != nil {
					return err
				}
				memC, err := precision.ParsePrecision(cPrec)
				if err != nil {
					return err
				}
				regA, err := precision.ParsePrecision(aRegPrec)
				if err != nil {
					return err
				}
				regB, err := precision.ParsePrecision(bRegPrec)
				if err != nil {
					return err
				}
				regC, err := precision.ParsePrecision(cRegPrec)
				if err != nil {
					return err
				}
				d = gemm.Descriptor{
					MatrixDimensions:   gemm.Dims{M: m, N: n, K: k},
					MemoryPrecisions:   gemm.OperandPrecisions{A: memA, B: memB, C: memC},
					RegisterPrecisions: gemm.OperandPrecisions{A: regA, B: regB, C: regC},
					TransposeState:     gemm.TransposeState{A: transposeA, B: transposeB},
					DeviceClass:        dc,
					PreferAsyncLoad:    preferAsyncLoad,
					PreferAsyncStore:   preferAsyncStore,
					LoadPreviousC:      loadPrevC,
				}
			}

			kernel, err := gemm.Synthesize(d)
			if err != nil {
				return fmt.Errorf("synthesize gemm kernel: %w", err)
			}
			printKernel(cmd, kernel.Source, map[string]any{
				"fingerprint":                 kernel.Fingerprint(),
				"registerM":                   kernel.RegisterM,
				"registerN":                   kernel.RegisterN,
				"threadgroupSize":             kernel.ThreadgroupSize,
				"threadgroupMemoryAllocation": kernel.ThreadgroupMemoryAllocation,
				"blockDimensions":             kernel.Descriptor.BlockDimensions,
				"splits":                      kernel.Descriptor.Splits,
			})
			return nil
		},
	}

	cmd.Flags().Uint32Var(&m, "m", 0, "M dimension")
	cmd.Flags().Uint32Var(&n, "n", 0, "N dimension")
	cmd.Flags().Uint32Var(&k, "k", 0, "K dimension")
	cmd.Flags().StringVar(&aPrec, "a-precision", "float", "A memory precision: float|half|bfloat")
	cmd.Flags().StringVar(&bPrec, "b-precision", "float", "B memory precision: float|half|bfloat")
	cmd.Flags().StringVar(&cPrec, "c-precision", "float", "C memory precision: float|half|bfloat")
	cmd.Flags().StringVar(&aRegPrec, "a-register-precision", "float", "A register precision")
	cmd.Flags().StringVar(&bRegPrec, "b-register-precision", "float", "B register precision")
	cmd.Flags().StringVar(&cRegPrec, "c-register-precision", "float", "C register precision")
	cmd.Flags().BoolVar(&transposeA, "transpose-a", false, "transpose A")
	cmd.Flags().BoolVar(&transposeB, "transpose-b", false, "transpose B")
	cmd.Flags().StringVar(&deviceClass, "device", "generic", "device class: generic|apple7|apple9")
	cmd.Flags().BoolVar(&preferAsyncLoad, "prefer-async-load", false, "force async-copy loads")
	cmd.Flags().BoolVar(&preferAsyncStore, "prefer-async-store", false, "force async-copy stores")
	cmd.Flags().BoolVar(&loadPrevC, "load-previous-c", false, "accumulate into an existing C buffer")
	cmd.Flags().StringVar(&descriptorFile, "descriptor", "", "JSON descriptor file; overrides other flags")

	return cmd
}

func loadGEMMDescriptor(path string) (gemm.Descriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return gemm.Descriptor{}, fmt.Errorf("read descriptor file: %w", err)
	}
	var dto gemmDescriptorDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return gemm.Descriptor{}, fmt.Errorf("parse descriptor file: %w", err)
	}

	dc, err := parseDeviceClass(dto.DeviceClass)
	if err != nil {
		return gemm.Descriptor{}, err
	}
	memA, err := precision.ParsePrecision(dto.MemoryPrecisions.A)
	if err != nil {
		return gemm.Descriptor{}, err
	}
	memB, err := precision.ParsePrecision(dto.MemoryPrecisions.B)
	if err != nil {
		return gemm.Descriptor{}, err
	}
	memC, err := precision.ParsePrecision(dto.MemoryPrecisions.C)
	if err != nil {
		return gemm.Descriptor{}, err
	}
	regA, err := precision.ParsePrecision(dto.RegisterPrecisions.A)
	if err != nil {
		return gemm.Descriptor{}, err
	}
	regB, err := precision.ParsePrecision(dto.RegisterPrecisions.B)
	if err != nil {
		return gemm.Descriptor{}, err
	}
	regC, err := precision.ParsePrecision(dto.RegisterPrecisions.C)
	if err != nil {
		return gemm.Descriptor{}, err
	}

	return gemm.Descriptor{
		MatrixDimensions:   gemm.Dims{M: dto.MatrixDimensions.M, N: dto.MatrixDimensions.N, K: dto.MatrixDimensions.K},
		MemoryPrecisions:   gemm.OperandPrecisions{A: memA, B: memB, C: memC},
		RegisterPrecisions: gemm.OperandPrecisions{A: regA, B: regB, C: regC},
		TransposeState:     gemm.TransposeState{A: dto.TransposeState.A, B: dto.TransposeState.B},
		DeviceClass:        dc,
		PreferAsyncLoad:    dto.PreferAsyncLoad,
		PreferAsyncStore:   dto.PreferAsyncStore,
		LoadPreviousC:      dto.LoadPreviousC,
	}, nil
}

func parseDeviceClass(s string) (precision.DeviceClass, error) {
	switch s {
	case "", "generic":
		return precision.Generic, nil
	case "apple7":
		return precision.Apple7, nil
	case "apple9":
		return precision.Apple9, nil
	default:
		return 0, fmt.Errorf("unrecognized device class %q", s)
	}
}
