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

var unregisterConfig = config.NewUnregister()

// unregisterCmd represents the llmctl command for unregister.
var unregisterCmd = &cobra.Command{
	Use:                "unregister [flags]",
	Short:              "Unregister a model from a running TorchServe",
	Args:               cobra.NoArgs,
	DisableAutoGenTag:  true,
	SilenceUsage:       true,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := unregisterConfig.Validate(); err != nil {
			return err
		}

		return runUnregister(cmd.Context())
	},
}

// init initializes unregister command.
func init() {
	flags := unregisterCmd.Flags()
	flags.StringVar(&unregisterConfig.ModelName, "model_name", "", "name of the served model")
	flags.StringVar(&unregisterConfig.InferenceAddress, "inference_address", unregisterConfig.InferenceAddress, "inference API address")
	flags.StringVar(&unregisterConfig.ManagementAddress, "management_address", unregisterConfig.ManagementAddress, "management API address")

	if err := viper.BindPFlags(flags); err != nil {
		panic(fmt.Errorf("bind unregister flags to viper: %w", err))
	}
}

// runUnregister runs the unregister llmctl.
func runUnregister(ctx context.Context) error {
	b, _, err := newBackend()
	if err != nil {
		return err
	}

	if err := b.Unregister(ctx, unregisterConfig); err != nil {
		return err
	}

	fmt.Printf("Successfully unregistered model: %s\n", unregisterConfig.ModelName)
	return nil
}
