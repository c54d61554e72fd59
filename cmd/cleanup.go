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

var cleanupConfig = config.NewCleanup()

// cleanupCmd represents the llmctl command for cleanup.
var cleanupCmd = &cobra.Command{
	Use:                "cleanup [flags]",
	Short:              "Stop TorchServe and remove the run folder",
	Args:               cobra.NoArgs,
	DisableAutoGenTag:  true,
	SilenceUsage:       true,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cleanupConfig.Validate(); err != nil {
			return err
		}

		return runCleanup(cmd.Context())
	},
}

// init initializes cleanup command.
func init() {
	flags := cleanupCmd.Flags()
	flags.StringVar(&cleanupConfig.GenFolderName, "gen_folder_name", cleanupConfig.GenFolderName, "name of the run folder")
	flags.BoolVar(&cleanupConfig.KeepGenFolder, "keep_gen_folder", false, "only remove the server logs from the run folder")

	if err := viper.BindPFlags(flags); err != nil {
		panic(fmt.Errorf("bind cleanup flags to viper: %w", err))
	}
}

// runCleanup runs the cleanup llmctl.
func runCleanup(ctx context.Context) error {
	b, _, err := newBackend()
	if err != nil {
		return err
	}

	if err := b.Cleanup(ctx, cleanupConfig); err != nil {
		return err
	}

	fmt.Println("## Server stopped and run folder cleaned up")
	return nil
}
