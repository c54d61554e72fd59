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
	"cmp"
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/modelpack/llmctl/pkg/config"
)

var registerConfig = config.NewRegister()

// registerCmd represents the llmctl command for register.
var registerCmd = &cobra.Command{
	Use:                "register [flags]",
	Short:              "Register a model archive with a running TorchServe",
	Args:               cobra.NoArgs,
	DisableAutoGenTag:  true,
	SilenceUsage:       true,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := registerConfig.Validate(); err != nil {
			return err
		}

		return runRegister(cmd.Context())
	},
}

// init initializes register command.
func init() {
	flags := registerCmd.Flags()
	flags.StringVar(&registerConfig.ModelName, "model_name", "", "name the model is served under")
	flags.StringVar(&registerConfig.Archive, "mar", "", "archive file name in the model store, or its URL")
	flags.IntVar(&registerConfig.InitialWorkers, "initial_workers", 0, "number of workers, defaults to the catalog value")
	flags.IntVar(&registerConfig.BatchSize, "batch_size", 0, "inference batch size, defaults to the catalog value")
	flags.IntVar(&registerConfig.MaxBatchDelay, "max_batch_delay", 0, "maximum batch delay in ms, defaults to the catalog value")
	flags.IntVar(&registerConfig.ResponseTimeout, "response_timeout", 0, "response timeout in seconds, defaults to the catalog value")
	flags.StringVar(&registerConfig.InferenceAddress, "inference_address", registerConfig.InferenceAddress, "inference API address")
	flags.StringVar(&registerConfig.ManagementAddress, "management_address", registerConfig.ManagementAddress, "management API address")

	if err := viper.BindPFlags(flags); err != nil {
		panic(fmt.Errorf("bind register flags to viper: %w", err))
	}
}

// runRegister runs the register llmctl.
func runRegister(ctx context.Context) error {
	b, c, err := newBackend()
	if err != nil {
		return err
	}

	// Unset parameters of catalog models take the catalog values.
	if entry, ok := c.Lookup(registerConfig.ModelName); ok {
		params := entry.RegistrationParams
		registerConfig.InitialWorkers = cmp.Or(registerConfig.InitialWorkers, params.InitialWorkers)
		registerConfig.BatchSize = cmp.Or(registerConfig.BatchSize, params.BatchSize)
		registerConfig.MaxBatchDelay = cmp.Or(registerConfig.MaxBatchDelay, params.MaxBatchDelay)
		registerConfig.ResponseTimeout = cmp.Or(registerConfig.ResponseTimeout, params.ResponseTimeout)
	}

	if err := b.Register(ctx, registerConfig); err != nil {
		return err
	}

	fmt.Printf("Successfully registered model: %s\n", registerConfig.ModelName)
	return nil
}
