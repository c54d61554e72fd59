/*
 *     Copyright 2025 The CNAI Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/modelpack/llmctl/pkg/config"
)

var inferConfig = config.NewInfer()

// inferCmd represents the llmctl command for infer.
var inferCmd = &cobra.Command{
	Use:                "infer [flags]",
	Short:              "Send inference requests to a running TorchServe",
	Args:               cobra.NoArgs,
	DisableAutoGenTag:  true,
	SilenceUsage:       true,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := inferConfig.Validate(); err != nil {
			return err
		}

		return runInfer(cmd.Context())
	},
}

// init initializes infer command.
func init() {
	flags := inferCmd.Flags()
	flags.StringVar(&inferConfig.ModelName, "model_name", "", "name of the served model")
	flags.StringVar(&inferConfig.Data, "data", "", "directory of .txt and .json inputs")
	flags.StringArrayVarP(&inferConfig.Prompts, "prompt", "p", nil, "prompt to send, can be repeated")
	flags.BoolVar(&inferConfig.V2, "v2", false, "send the prompts as one request to the structured v2 endpoint")
	flags.StringVar(&inferConfig.InferenceAddress, "inference_address", inferConfig.InferenceAddress, "inference API address")
	flags.StringVar(&inferConfig.ManagementAddress, "management_address", inferConfig.ManagementAddress, "management API address")

	if err := viper.BindPFlags(flags); err != nil {
		panic(fmt.Errorf("bind infer flags to viper: %w", err))
	}
}

// runInfer runs the infer llmctl.
func runInfer(ctx context.Context) error {
	b, _, err := newBackend()
	if err != nil {
		return err
	}

	outputs, err := b.Infer(ctx, inferConfig)
	if err != nil {
		return err
	}

	for _, o := range outputs {
		fmt.Printf("## Inference on %s:\n%s\n\n", o.Input, o.Body)
	}

	return nil
}
