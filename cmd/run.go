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

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/modelpack/llmctl/pkg/config"
	"github.com/modelpack/llmctl/pkg/system"
)

var runConfig = config.NewRun()

// runCmd represents the llmctl command for run.
var runCmd = &cobra.Command{
	Use:                "run [flags]",
	Short:              "Start TorchServe with a model archive and run inference on the input data",
	Args:               cobra.NoArgs,
	DisableAutoGenTag:  true,
	SilenceUsage:       true,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		debugMode = runConfig.Debug
		if err := runConfig.Validate(); err != nil {
			return err
		}

		return runRun(cmd.Context())
	},
}

// init initializes run command.
func init() {
	flags := runCmd.Flags()
	flags.StringVar(&runConfig.Data, "data", "", "directory of .txt and .json inputs to run inference on")
	flags.StringVar(&runConfig.ModelName, "model_name", "", "name of the model to serve")
	flags.StringVar(&runConfig.RepoVersion, "repo_version", "", "commit id the archive was generated from, defaults to the catalog version")
	flags.StringVar(&runConfig.GPUType, "gpu_type", "", "GPU type the model runs on, checked against the catalog")
	flags.StringVar(&runConfig.GenFolderName, "gen_folder_name", runConfig.GenFolderName, "name of the run folder holding the server config and logs")
	flags.BoolVar(&runConfig.StopServer, "stop_server", false, "stop the server after a successful run")
	flags.BoolVar(&runConfig.TSCleanup, "ts_cleanup", false, "remove the run folder once the server is stopped")
	flags.BoolVar(&runConfig.Debug, "debug_mode", false, "print the server output and the full error chain")
	flags.StringVar(&runConfig.ModelStore, "model_store", "", "model store directory holding the archive")
	flags.IntVar(&runConfig.QuantizeBits, "quantize_bits", 0, "quantization precision of the model, 4 or 8")
	flags.BoolVar(&runConfig.RegisterViaAPI, "register_via_api", false, "register the model through the management API instead of the startup snapshot")
	flags.StringVar(&runConfig.ServerConfig, "ts_config", "", "server config template, defaults to config.properties next to the catalog")
	flags.StringVar(&runConfig.LogConfig, "log_config", "", "server log config, defaults to log4j2.xml next to the catalog")

	if err := viper.BindPFlags(flags); err != nil {
		panic(fmt.Errorf("bind run flags to viper: %w", err))
	}
}

// runRun runs the run llmctl.
func runRun(ctx context.Context) error {
	b, _, err := newBackend()
	if err != nil {
		return err
	}

	logrus.Infof("run: host [%s]", system.Describe(ctx))
	return b.Run(ctx, runConfig)
}
