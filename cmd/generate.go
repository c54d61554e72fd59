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

var generateConfig = config.NewGenerate()

// generateCmd represents the llmctl command for generate.
var generateCmd = &cobra.Command{
	Use:                "generate [flags]",
	Short:              "Download a model from the hub and package it into a model archive",
	Args:               cobra.NoArgs,
	DisableAutoGenTag:  true,
	SilenceUsage:       true,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		debugMode = generateConfig.Debug
		generateConfig.HFToken = viper.GetString("hf_token")
		if err := generateConfig.Validate(); err != nil {
			return err
		}

		return runGenerate(cmd.Context())
	},
}

// init initializes generate command.
func init() {
	flags := generateCmd.Flags()
	flags.StringVar(&generateConfig.ModelName, "model_name", "", "name of a catalog model, or of a custom model")
	flags.StringVar(&generateConfig.RepoID, "repo_id", "", "hub repository id of a custom model, such as owner/repo")
	flags.StringVar(&generateConfig.RepoVersion, "repo_version", "", "commit id of the hub repository, defaults to the catalog version or the latest commit")
	flags.BoolVar(&generateConfig.SkipDownload, "skip_download", false, "use the model files already present in --model_path")
	flags.BoolVar(&generateConfig.SkipDownload, "no_download", false, "alias of --skip_download")
	flags.StringVar(&generateConfig.ModelPath, "model_path", "", "directory of the model files, must be empty when downloading")
	flags.StringVar(&generateConfig.MarOutput, "mar_output", "", "model store directory receiving the archive")
	flags.StringVar(&generateConfig.HandlerPath, "handler_path", "", "handler file, defaults to the catalog handler")
	flags.StringVar(&generateConfig.HFToken, "hf_token", "", "hub access token, falls back to HF_TOKEN")
	flags.BoolVar(&generateConfig.Debug, "debug", false, "print the archiver output and the full error chain")
	flags.IntVar(&generateConfig.Concurrency, "concurrency", generateConfig.Concurrency, "number of files downloaded concurrently")

	if err := viper.BindPFlags(flags); err != nil {
		panic(fmt.Errorf("bind generate flags to viper: %w", err))
	}

	if err := viper.BindEnv("hf_token", "HF_TOKEN"); err != nil {
		panic(fmt.Errorf("bind HF_TOKEN to viper: %w", err))
	}
}

// runGenerate runs the generate llmctl.
func runGenerate(ctx context.Context) error {
	b, _, err := newBackend()
	if err != nil {
		return err
	}

	result, err := b.Generate(ctx, generateConfig)
	if err != nil {
		return err
	}

	fmt.Printf("## Mar file for %s exported at:\n## - %s\n", generateConfig.ModelName, result.Path)
	fmt.Printf("%-12s%s\n%-12s%d\n", "Digest:", result.Digest, "Size:", result.Size)
	return nil
}
